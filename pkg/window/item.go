// Package window implements budget-constrained context assembly: given
// candidate files and a hard token budget, it decides per item whether to
// include it verbatim, as a binary artifact reference, as a structural
// summary, or not at all, then renders the surviving items into the final
// prompt payload.
package window

import (
	"time"

	"github.com/kcaldas/loom/pkg/codec"
)

// PriorClass partitions candidates by why they are being considered.
// All explicitly requested items are considered before any recency-ranked
// item, regardless of individual cost.
type PriorClass int

const (
	// ClassRequested items were named by the caller. They are never skipped
	// outright while a cheaper representation tier remains available.
	ClassRequested PriorClass = iota

	// ClassRecency items are best-effort filler, visited in descending
	// last-modified order. No tier downgrade is spent on them.
	ClassRecency
)

func (c PriorClass) String() string {
	switch c {
	case ClassRequested:
		return "requested"
	case ClassRecency:
		return "recency"
	default:
		return "unknown"
	}
}

// CandidateItem is a unit eligible for inclusion in the context window.
type CandidateItem struct {
	Path     string
	Language string

	// Content is the full text. ContentMissing marks content that lives
	// elsewhere (large-object storage); a present-but-empty Content is a
	// genuine zero-length file and is always included at cost 0.
	Content        string
	ContentMissing bool

	// ArtifactID and Artifact are set when the store already holds a
	// materialized binary encoding of this item.
	ArtifactID string
	Artifact   *codec.Artifact

	ModTime time.Time
	Class   PriorClass
}

// HasArtifact reports whether a materialized binary artifact exists for the
// item.
func (i CandidateItem) HasArtifact() bool {
	return i.ArtifactID != "" && i.Artifact != nil
}

// Resolved pairs a candidate with the representation chosen for it.
type Resolved struct {
	Item CandidateItem
	Rep  Representation
}
