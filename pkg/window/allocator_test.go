package window

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/loom/pkg/codec"
)

func requested(path, content string) CandidateItem {
	return CandidateItem{Path: path, Language: "typescript", Content: content, Class: ClassRequested}
}

func recent(path, content string, mod time.Time) CandidateItem {
	return CandidateItem{Path: path, Language: "typescript", Content: content, ModTime: mod, Class: ClassRecency}
}

func withArtifact(item CandidateItem, id string) CandidateItem {
	c := codec.New()
	result := c.Encode(item.Content, item.Language, codec.StrategyCompression, false)
	item.ArtifactID = id
	item.Artifact = &result.Artifact
	return item
}

func repFor(t *testing.T, resolved []Resolved, path string) Representation {
	t.Helper()
	for _, r := range resolved {
		if r.Item.Path == path {
			return r.Rep
		}
	}
	t.Fatalf("no resolution for %s", path)
	return Representation{}
}

// Scenario A: a 100-char file under a roomy budget is included verbatim at
// its chars/4 cost.
func TestAllocate_SmallFileVerbatim(t *testing.T) {
	a := NewAllocator()
	items := []CandidateItem{requested("a.ts", strings.Repeat("x", 100))}

	resolved := a.Allocate(items, Budget{Total: 1000, Reserved: 0})

	require.Len(t, resolved, 1)
	assert.Equal(t, TierVerbatim, resolved[0].Rep.Tier)
	assert.Equal(t, 25, resolved[0].Rep.TokenCost)
}

// Scenario B: a 1000-token file cannot go verbatim into 10 available tokens,
// but its pre-existing binary artifact reference can.
func TestAllocate_BigFileFallsToReference(t *testing.T) {
	a := NewAllocator()
	item := withArtifact(requested("big.ts", strings.Repeat("x", 4000)), "art-7")

	resolved := a.Allocate([]CandidateItem{item}, Budget{Total: 10, Reserved: 0})

	rep := repFor(t, resolved, "big.ts")
	assert.Equal(t, TierReference, rep.Tier)
	assert.Equal(t, "art-7", rep.ArtifactID)
	assert.LessOrEqual(t, rep.TokenCost, 10)
	assert.Equal(t, 4000, rep.OriginalSize)
}

// Scenario C: recency items whose preferred representation does not fit are
// skipped outright; the allocator moves on rather than downgrading.
func TestAllocate_RecencySkipsWithoutDowngrade(t *testing.T) {
	a := NewAllocator()
	// Structural content so the summary is large (over the 100 available).
	var big strings.Builder
	for i := 0; i < 60; i++ {
		big.WriteString("export function veryLongGeneratedName")
		big.WriteString(strings.Repeat("x", 20))
		big.WriteString("() {\n  body();\n}\n")
	}
	items := []CandidateItem{
		recent("huge.ts", big.String(), time.Unix(2000, 0)),
		recent("tiny.ts", "export const a = 1;\n", time.Unix(1000, 0)),
	}

	resolved := a.Allocate(items, Budget{Total: 100, Reserved: 0})

	assert.Equal(t, TierDropped, repFor(t, resolved, "huge.ts").Tier)
	assert.Equal(t, TierVerbatim, repFor(t, resolved, "tiny.ts").Tier)
}

// A recency item whose verbatim form would fit only via a cheaper tier is
// still skipped: best-effort filler spends no downgrade path.
func TestAllocate_RecencyNeverDowngrades(t *testing.T) {
	a := NewAllocator()
	// ~300 token verbatim cost: preferred tier is verbatim, which does not
	// fit in 50 tokens. The summary would fit, but must not be used.
	content := "export const data = [\n" + strings.Repeat("  1,\n", 235) + "];\n"
	items := []CandidateItem{recent("filler.ts", content, time.Unix(0, 0))}

	resolved := a.Allocate(items, Budget{Total: 50, Reserved: 0})

	rep := repFor(t, resolved, "filler.ts")
	assert.Equal(t, TierDropped, rep.Tier)
	assert.Equal(t, ReasonDoesNotFit, rep.DropReason)
}

// Requested items downgrade tier by tier and are never dropped while a
// cheaper representation still fits.
func TestAllocate_RequestedDowngradesToSummary(t *testing.T) {
	a := NewAllocator()
	var src strings.Builder
	src.WriteString("export function keepMe() {\n")
	src.WriteString(strings.Repeat("  crunch();\n", 600))
	src.WriteString("}\n")
	items := []CandidateItem{requested("big.ts", src.String())}

	resolved := a.Allocate(items, Budget{Total: 200, Reserved: 0})

	rep := repFor(t, resolved, "big.ts")
	assert.Equal(t, TierSummary, rep.Tier)
	assert.Contains(t, rep.Text, "export function keepMe() {")
}

func TestAllocate_RequestedBeforeRecency(t *testing.T) {
	a := NewAllocator()
	items := []CandidateItem{
		recent("newest.ts", strings.Repeat("r", 400), time.Unix(5000, 0)),
		requested("asked.ts", strings.Repeat("q", 400)),
	}

	// Budget fits exactly one of the two.
	resolved := a.Allocate(items, Budget{Total: 150, Reserved: 0})

	assert.Equal(t, "asked.ts", resolved[0].Item.Path)
	assert.Equal(t, TierVerbatim, repFor(t, resolved, "asked.ts").Tier)
	assert.Equal(t, TierDropped, repFor(t, resolved, "newest.ts").Tier)
}

func TestAllocate_RecencyOrderingAndTieBreak(t *testing.T) {
	a := NewAllocator()
	tie := time.Unix(3000, 0)
	items := []CandidateItem{
		recent("b.ts", "x", tie),
		recent("c.ts", "x", time.Unix(1000, 0)),
		recent("a.ts", "x", tie),
		recent("z.ts", "x", time.Unix(9000, 0)),
	}

	resolved := a.Allocate(items, Budget{Total: 1000, Reserved: 0})

	var order []string
	for _, r := range resolved {
		order = append(order, r.Item.Path)
	}
	assert.Equal(t, []string{"z.ts", "a.ts", "b.ts", "c.ts"}, order)
}

func TestAllocate_MisconfiguredBudgetDropsEverything(t *testing.T) {
	a := NewAllocator()
	items := []CandidateItem{
		requested("a.ts", "content"),
		recent("b.ts", "content", time.Unix(0, 0)),
	}

	for _, budget := range []Budget{
		{Total: 100, Reserved: 100},
		{Total: 100, Reserved: 500},
		{Total: 0, Reserved: 0},
	} {
		resolved := a.Allocate(items, budget)
		require.Len(t, resolved, 2)
		for _, r := range resolved {
			assert.Equal(t, TierDropped, r.Rep.Tier)
			assert.Equal(t, ReasonBudgetMisconfigured, r.Rep.DropReason)
		}
	}
}

func TestAllocate_CommittedCostNeverExceedsAvailable(t *testing.T) {
	a := NewAllocator()
	var items []CandidateItem
	for i := 0; i < 40; i++ {
		path := string(rune('a'+i%26)) + ".ts"
		items = append(items, recent(path, strings.Repeat("y", 37*(i+1)), time.Unix(int64(i), 0)))
	}
	items = append(items, requested("main.ts", strings.Repeat("m", 900)))

	for _, available := range []int{1, 10, 100, 350, 5000} {
		resolved := a.Allocate(items, Budget{Total: available, Reserved: 0})
		total := 0
		for _, r := range resolved {
			total += r.Rep.TokenCost
		}
		assert.LessOrEqual(t, total, available, "available=%d", available)
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	a := NewAllocator()
	items := []CandidateItem{
		requested("one.ts", strings.Repeat("a", 300)),
		recent("two.ts", strings.Repeat("b", 2500), time.Unix(100, 0)),
		recent("three.ts", strings.Repeat("c", 50), time.Unix(100, 0)),
	}
	budget := Budget{Total: 400, Reserved: 50}

	first := a.Allocate(items, budget)
	second := a.Allocate(items, budget)

	assert.Equal(t, first, second)
}

func TestAllocate_UnresolvableItemIsRecordedNotFatal(t *testing.T) {
	a := NewAllocator()
	items := []CandidateItem{
		{Path: "ghost.ts", ContentMissing: true, Class: ClassRequested},
		requested("real.ts", "export const ok = true;"),
	}

	resolved := a.Allocate(items, Budget{Total: 1000, Reserved: 0})

	ghost := repFor(t, resolved, "ghost.ts")
	assert.Equal(t, TierDropped, ghost.Tier)
	assert.Equal(t, ReasonUnresolvable, ghost.DropReason)
	assert.Equal(t, TierVerbatim, repFor(t, resolved, "real.ts").Tier)
}

func TestAllocate_MissingContentWithArtifactIsReferenced(t *testing.T) {
	a := NewAllocator()
	c := codec.New()
	result := c.Encode("original text", "ts", codec.StrategyCompression, false)
	items := []CandidateItem{{
		Path:           "offloaded.ts",
		ContentMissing: true,
		ArtifactID:     "blob-1",
		Artifact:       &result.Artifact,
		Class:          ClassRequested,
	}}

	resolved := a.Allocate(items, Budget{Total: 100, Reserved: 0})

	rep := repFor(t, resolved, "offloaded.ts")
	assert.Equal(t, TierReference, rep.Tier)
	assert.Equal(t, "blob-1", rep.ArtifactID)
}

func TestAllocate_ZeroLengthAlwaysIncluded(t *testing.T) {
	a := NewAllocator()
	items := []CandidateItem{
		requested("filler.ts", strings.Repeat("f", 400)), // exactly 100 tokens
		requested("empty.ts", ""),
	}

	resolved := a.Allocate(items, Budget{Total: 100, Reserved: 0})

	empty := repFor(t, resolved, "empty.ts")
	assert.Equal(t, TierVerbatim, empty.Tier)
	assert.Equal(t, 0, empty.TokenCost)
}

func TestLedger_CommitRejectsOverrun(t *testing.T) {
	ledger := NewLedger(10)
	assert.True(t, ledger.Commit(6))
	assert.False(t, ledger.Commit(5))
	assert.Equal(t, 6, ledger.Used())
	assert.True(t, ledger.Commit(4))
	assert.True(t, ledger.Exhausted())
}
