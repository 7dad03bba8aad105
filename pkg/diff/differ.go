// Package diff compares model-proposed file content against the original
// text resolved through the assembly side-table. Verbatim entries resolve
// directly; reference entries are decoded from their stored artifact.
package diff

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kcaldas/loom/pkg/codec"
	"github.com/kcaldas/loom/pkg/window"
)

// ErrNotRecoverable is returned when the side-table entry cannot yield the
// original text (summarized or dropped items).
var ErrNotRecoverable = errors.New("original content not recoverable from side-table entry")

// ArtifactLoader resolves artifact IDs to stored artifacts.
type ArtifactLoader interface {
	LoadArtifact(ctx context.Context, artifactID string) (codec.Artifact, error)
}

// Differ generates unified diffs against side-table-resolved originals.
type Differ struct {
	loader ArtifactLoader
	codec  *codec.Codec
}

func New(loader ArtifactLoader, c *codec.Codec) *Differ {
	if c == nil {
		c = codec.New()
	}
	return &Differ{loader: loader, codec: c}
}

// Resolve recovers the original text behind a side-table entry.
func (d *Differ) Resolve(ctx context.Context, rep window.Representation, language string) (string, error) {
	switch rep.Tier {
	case window.TierVerbatim:
		return rep.Text, nil
	case window.TierReference:
		if d.loader == nil {
			return "", fmt.Errorf("no artifact loader configured for reference %q", rep.ArtifactID)
		}
		artifact, err := d.loader.LoadArtifact(ctx, rep.ArtifactID)
		if err != nil {
			return "", fmt.Errorf("failed to load artifact %q: %w", rep.ArtifactID, err)
		}
		text, err := d.codec.Decode(artifact, language)
		if err != nil {
			return "", fmt.Errorf("failed to decode artifact %q: %w", rep.ArtifactID, err)
		}
		return text, nil
	case window.TierSummary, window.TierDropped:
		return "", fmt.Errorf("%w: tier %s", ErrNotRecoverable, rep.Tier)
	default:
		return "", fmt.Errorf("unknown representation tier %d", rep.Tier)
	}
}

// Unified resolves the original for path through the side-table entry and
// returns a unified diff against the proposed content. Identical content
// yields an empty diff.
func (d *Differ) Unified(ctx context.Context, path, language string, rep window.Representation, proposed string) (string, error) {
	original, err := d.Resolve(ctx, rep, language)
	if err != nil {
		return "", err
	}

	if original == proposed {
		return "", nil
	}

	unified := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(proposed),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	}

	diffText, err := difflib.GetUnifiedDiffString(unified)
	if err != nil {
		return "", fmt.Errorf("error generating unified diff: %w", err)
	}
	return diffText, nil
}
