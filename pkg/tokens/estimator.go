package tokens

// Estimator maps text to an approximate token count.
// Implementations must be total: they never fail and never return a negative count.
type Estimator interface {
	Estimate(content string) int
}

// Estimate provides a conservative token estimate for a string.
// Uses the chars/4 heuristic which slightly overestimates for English text.
// This is intentionally conservative, leaving room rather than overflowing.
func Estimate(content string) int {
	if len(content) == 0 {
		return 0
	}
	return (len(content) + 3) / 4 // ceiling division
}

// HeuristicEstimator implements Estimator with the chars/4 formula.
// It is the zero-dependency baseline and the fallback for every other estimator.
type HeuristicEstimator struct{}

func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{}
}

func (e *HeuristicEstimator) Estimate(content string) int {
	return Estimate(content)
}
