package window

import (
	"sort"

	"github.com/kcaldas/loom/pkg/events"
	"github.com/kcaldas/loom/pkg/logging"
	"github.com/kcaldas/loom/pkg/summary"
	"github.com/kcaldas/loom/pkg/tokens"
)

// SmallFileTokenLimit is the verbatim-tier cutoff: items estimated at or
// above this many tokens are not considered for verbatim inclusion even when
// they would fit.
const SmallFileTokenLimit = 500

// Summarizer is the structural-summary collaborator. It must be total.
type Summarizer interface {
	Summarize(text, language string) string
}

// Allocator assigns each candidate item a representation tier under a
// running token budget. Allocation is a strict sequential scan with early
// termination; it holds no mutable state across calls.
type Allocator struct {
	estimator  tokens.Estimator
	summarizer Summarizer
	logger     logging.Logger
	publisher  events.Publisher
}

// AllocatorOption configures an Allocator.
type AllocatorOption func(*Allocator)

// WithEstimator injects a token estimator.
func WithEstimator(e tokens.Estimator) AllocatorOption {
	return func(a *Allocator) {
		if e != nil {
			a.estimator = e
		}
	}
}

// WithSummarizer injects a structural summarizer.
func WithSummarizer(s Summarizer) AllocatorOption {
	return func(a *Allocator) {
		if s != nil {
			a.summarizer = s
		}
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger logging.Logger) AllocatorOption {
	return func(a *Allocator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPublisher injects the event bus the allocator reports through.
func WithPublisher(p events.Publisher) AllocatorOption {
	return func(a *Allocator) {
		if p != nil {
			a.publisher = p
		}
	}
}

// NewAllocator creates an allocator with heuristic estimation and the
// default structural summarizer unless overridden.
func NewAllocator(opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		estimator:  tokens.NewHeuristicEstimator(),
		summarizer: summary.New(),
		logger:     logging.NewQuietLogger(),
		publisher:  events.NoOpEventBus{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate resolves a representation for every candidate item under the
// budget. Explicitly requested items keep their caller-supplied order and
// are processed first, downgrading tier by tier until they fit or nothing
// is left to downgrade to. Recency-ranked items follow in descending
// last-modified order (ties broken by ascending path) and are skipped
// outright when their preferred representation does not fit.
//
// The returned sequence contains every input item exactly once, including
// dropped ones, in processing order. Identical inputs always produce
// identical output.
func (a *Allocator) Allocate(items []CandidateItem, budget Budget) []Resolved {
	ordered := partition(items)

	if budget.Misconfigured() {
		a.logger.Warn("budget misconfigured, assembling nothing",
			"total", budget.Total, "reserved", budget.Reserved)
		resolved := make([]Resolved, 0, len(ordered))
		for _, item := range ordered {
			resolved = append(resolved, a.drop(item, ReasonBudgetMisconfigured))
		}
		return resolved
	}

	ledger := NewLedger(budget.Available())
	resolved := make([]Resolved, 0, len(ordered))

	for _, item := range ordered {
		if ledger.Exhausted() {
			// Zero-length content is verbatim at cost 0 and is always
			// included, even after the ledger fills.
			if !item.ContentMissing && item.Content == "" {
				resolved = append(resolved, Resolved{
					Item: item,
					Rep:  Representation{Tier: TierVerbatim},
				})
				continue
			}
			resolved = append(resolved, a.drop(item, ReasonBudgetExhausted))
			continue
		}
		resolved = append(resolved, a.resolve(item, ledger))
	}

	return resolved
}

// resolve picks the cheapest sufficient representation for one item and
// commits its cost.
func (a *Allocator) resolve(item CandidateItem, ledger *Ledger) Resolved {
	if item.ContentMissing && !item.HasArtifact() {
		return a.drop(item, ReasonUnresolvable)
	}

	candidates := a.tierCandidates(item)
	if len(candidates) == 0 {
		return a.drop(item, ReasonUnresolvable)
	}

	for _, rep := range candidates {
		if ledger.Commit(rep.TokenCost) {
			a.logger.Debug("item resolved",
				"path", item.Path, "tier", rep.Tier.String(),
				"cost", rep.TokenCost, "used", ledger.Used())
			return Resolved{Item: item, Rep: rep}
		}
		if item.Class == ClassRecency {
			// Recency items are best-effort filler: no downgrade path.
			return a.drop(item, ReasonDoesNotFit)
		}
	}

	return a.drop(item, ReasonDoesNotFit)
}

// tierCandidates returns the representations available for an item, ordered
// from most to least preferred.
func (a *Allocator) tierCandidates(item CandidateItem) []Representation {
	var candidates []Representation

	if !item.ContentMissing {
		cost := a.estimator.Estimate(item.Content)
		if cost == 0 || cost < SmallFileTokenLimit {
			candidates = append(candidates, Representation{
				Tier:      TierVerbatim,
				Text:      item.Content,
				TokenCost: cost,
			})
		}
	}

	if item.HasArtifact() {
		line := ReferenceLine(item.ArtifactID)
		candidates = append(candidates, Representation{
			Tier:           TierReference,
			ArtifactID:     item.ArtifactID,
			OriginalSize:   item.Artifact.OriginalSize,
			CompressedSize: item.Artifact.CompressedSize,
			TokenCost:      a.estimator.Estimate(line),
		})
	}

	if !item.ContentMissing && item.Content != "" {
		text := a.summarizer.Summarize(item.Content, item.Language)
		candidates = append(candidates, Representation{
			Tier:      TierSummary,
			Text:      text,
			TokenCost: a.estimator.Estimate(text),
		})
	}

	return candidates
}

func (a *Allocator) drop(item CandidateItem, reason string) Resolved {
	a.logger.Debug("item dropped", "path", item.Path, "reason", reason)
	a.publisher.Publish(events.TopicItemDropped, events.ItemDroppedEvent{
		Path:   item.Path,
		Reason: reason,
	})
	return Resolved{
		Item: item,
		Rep:  Representation{Tier: TierDropped, DropReason: reason},
	}
}

// partition orders items for processing: requested items first in their
// given order, then recency items by descending mod time, ties by ascending
// path for determinism.
func partition(items []CandidateItem) []CandidateItem {
	ordered := make([]CandidateItem, 0, len(items))
	var recency []CandidateItem

	for _, item := range items {
		if item.Class == ClassRequested {
			ordered = append(ordered, item)
		} else {
			recency = append(recency, item)
		}
	}

	sort.SliceStable(recency, func(i, j int) bool {
		if !recency[i].ModTime.Equal(recency[j].ModTime) {
			return recency[i].ModTime.After(recency[j].ModTime)
		}
		return recency[i].Path < recency[j].Path
	})

	return append(ordered, recency...)
}
