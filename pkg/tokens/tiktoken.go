package tokens

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// NewEstimator selects an estimator by name. "tiktoken" counts with a real
// BPE encoder for the given model; any other value gets the chars/4
// heuristic.
func NewEstimator(kind, model string) Estimator {
	if strings.EqualFold(kind, "tiktoken") {
		return NewTiktokenEstimator(model)
	}
	return NewHeuristicEstimator()
}

// TiktokenEstimator counts tokens with a real BPE encoder for a specific model.
// Any encoder failure falls back to the chars/4 heuristic so callers can treat
// estimation as a total operation.
type TiktokenEstimator struct {
	encoder *tiktoken.Tiktoken
}

// NewTiktokenEstimator builds an estimator for the given model name.
// Unknown models use the cl100k_base encoding; if that is also unavailable
// (e.g. the embedded BPE data cannot be loaded) the estimator silently
// degrades to the heuristic formula.
func NewTiktokenEstimator(model string) *TiktokenEstimator {
	encoder, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoder, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			encoder = nil
		}
	}
	return &TiktokenEstimator{encoder: encoder}
}

func (e *TiktokenEstimator) Estimate(content string) int {
	if len(content) == 0 {
		return 0
	}
	if e.encoder == nil {
		return Estimate(content)
	}
	return len(e.encoder.Encode(content, nil, nil))
}
