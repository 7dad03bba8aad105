package diff

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/loom/pkg/codec"
	"github.com/kcaldas/loom/pkg/window"
)

type fakeLoader struct {
	artifacts map[string]codec.Artifact
}

func (f *fakeLoader) LoadArtifact(ctx context.Context, artifactID string) (codec.Artifact, error) {
	artifact, ok := f.artifacts[artifactID]
	if !ok {
		return codec.Artifact{}, errors.New("artifact not found")
	}
	return artifact, nil
}

func TestDiffer_Unified_VerbatimOriginal(t *testing.T) {
	d := New(nil, nil)

	rep := window.Representation{
		Tier: window.TierVerbatim,
		Text: "line one\nline two\n",
	}

	diffText, err := d.Unified(context.Background(), "main.go", "go", rep, "line one\nline changed\n")
	require.NoError(t, err)

	assert.Contains(t, diffText, "--- main.go")
	assert.Contains(t, diffText, "+++ main.go")
	assert.Contains(t, diffText, "-line two")
	assert.Contains(t, diffText, "+line changed")
}

func TestDiffer_Unified_IdenticalContent(t *testing.T) {
	d := New(nil, nil)

	rep := window.Representation{
		Tier: window.TierVerbatim,
		Text: "same\n",
	}

	diffText, err := d.Unified(context.Background(), "main.go", "go", rep, "same\n")
	require.NoError(t, err)
	assert.Empty(t, diffText)
}

func TestDiffer_Unified_ReferenceDecodesArtifact(t *testing.T) {
	c := codec.New()
	original := "package main\n\nfunc main() {}\n"
	result := c.Encode(original, "go", codec.StrategyCompression, false)

	loader := &fakeLoader{artifacts: map[string]codec.Artifact{
		"art-1": result.Artifact,
	}}
	d := New(loader, c)

	rep := window.Representation{
		Tier:       window.TierReference,
		ArtifactID: "art-1",
	}

	diffText, err := d.Unified(context.Background(), "main.go", "go", rep, "package main\n\nfunc main() { println() }\n")
	require.NoError(t, err)
	assert.Contains(t, diffText, "-func main() {}")
	assert.Contains(t, diffText, "+func main() { println() }")
}

func TestDiffer_Resolve_SummaryNotRecoverable(t *testing.T) {
	d := New(nil, nil)

	rep := window.Representation{Tier: window.TierSummary, Text: "structural summary"}

	_, err := d.Resolve(context.Background(), rep, "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRecoverable)
}

func TestDiffer_Resolve_DroppedNotRecoverable(t *testing.T) {
	d := New(nil, nil)

	rep := window.Representation{Tier: window.TierDropped}

	_, err := d.Resolve(context.Background(), rep, "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRecoverable)
}

func TestDiffer_Resolve_MissingArtifact(t *testing.T) {
	loader := &fakeLoader{artifacts: map[string]codec.Artifact{}}
	d := New(loader, nil)

	rep := window.Representation{Tier: window.TierReference, ArtifactID: "gone"}

	_, err := d.Resolve(context.Background(), rep, "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone")
}
