package window

import "fmt"

// Tier is the representation form chosen for a candidate item, ordered from
// most to least faithful. Downgrading moves strictly rightwards.
type Tier int

const (
	TierVerbatim Tier = iota
	TierReference
	TierSummary
	TierDropped
)

func (t Tier) String() string {
	switch t {
	case TierVerbatim:
		return "verbatim"
	case TierReference:
		return "reference"
	case TierSummary:
		return "summary"
	case TierDropped:
		return "dropped"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Representation is the resolved form of a candidate item. Exactly one tier
// applies; the populated fields depend on it. A dropped item carries only
// the reason, recorded for observability rather than silently vanishing.
type Representation struct {
	Tier Tier

	// Text is the rendered content for verbatim and summary tiers.
	Text string

	// ArtifactID, OriginalSize and CompressedSize describe the referenced
	// binary artifact for the reference tier.
	ArtifactID     string
	OriginalSize   int
	CompressedSize int

	// TokenCost is the committed cost of this representation. Zero for
	// dropped items.
	TokenCost int

	// DropReason explains a dropped item.
	DropReason string
}

// Retained reports whether the representation occupies payload space.
func (r Representation) Retained() bool {
	return r.Tier != TierDropped
}

// Drop reasons recorded on dropped representations.
const (
	ReasonBudgetMisconfigured = "budget misconfigured: reserved tokens meet or exceed total"
	ReasonBudgetExhausted     = "token budget exhausted"
	ReasonUnresolvable        = "item has neither content nor artifact"
	ReasonDoesNotFit          = "no representation fits remaining budget"
)
