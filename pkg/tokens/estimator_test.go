package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate_Empty(t *testing.T) {
	assert.Equal(t, 0, Estimate(""))
}

func TestEstimate_CeilingDivision(t *testing.T) {
	assert.Equal(t, 1, Estimate("a"))
	assert.Equal(t, 1, Estimate("abcd"))
	assert.Equal(t, 2, Estimate("abcde"))
	assert.Equal(t, 25, Estimate(strings.Repeat("x", 100)))
}

func TestHeuristicEstimator_MatchesPackageFunc(t *testing.T) {
	e := NewHeuristicEstimator()
	for _, s := range []string{"", "go", "func main() {}", strings.Repeat("y", 4001)} {
		assert.Equal(t, Estimate(s), e.Estimate(s))
	}
}

func TestTiktokenEstimator_Empty(t *testing.T) {
	e := NewTiktokenEstimator("gpt-4o")
	assert.Equal(t, 0, e.Estimate(""))
}

func TestTiktokenEstimator_NonNegative(t *testing.T) {
	e := NewTiktokenEstimator("not-a-real-model")
	got := e.Estimate("package main\n\nfunc main() {}\n")
	assert.Greater(t, got, 0)
}

func TestNewEstimator_SelectsByKind(t *testing.T) {
	assert.IsType(t, &TiktokenEstimator{}, NewEstimator("tiktoken", "gpt-4o"))
	assert.IsType(t, &TiktokenEstimator{}, NewEstimator("Tiktoken", "gpt-4o"))
	assert.IsType(t, &HeuristicEstimator{}, NewEstimator("heuristic", "gpt-4o"))
	assert.IsType(t, &HeuristicEstimator{}, NewEstimator("", ""))
}

func TestTiktokenEstimator_DegradedFallback(t *testing.T) {
	// A nil encoder must fall back to the heuristic, never panic.
	e := &TiktokenEstimator{}
	assert.Equal(t, Estimate("hello world"), e.Estimate("hello world"))
}
