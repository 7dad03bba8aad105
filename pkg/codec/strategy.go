package codec

import "fmt"

// Strategy identifies the encoding algorithm used to produce an artifact.
// The set is closed: dispatch is a switch over the enum so an unsupported
// value is a compile-time-checked default arm, not a map lookup miss.
type Strategy int

const (
	// StrategyCompression deflates the UTF-8 bytes of the text. It is the
	// default and the only strategy with an unconditional round-trip
	// guarantee; the other two fall back to it on any encode failure.
	StrategyCompression Strategy = iota

	// StrategyTokenization substitutes language keywords and punctuation
	// clusters with single private-use codepoints before deflating.
	// Reversible in practice but not by construction: source text that
	// contains a stand-in codepoint corrupts decode. Density optimization
	// only; callers needing guaranteed fidelity must use compression.
	StrategyTokenization

	// StrategyAST parses source into a syntax tree, prunes position and
	// comment metadata, and deflates the serialized tree. Decoding requires
	// a registered Generator for the language; without one the artifact is
	// write-only.
	StrategyAST
)

// String returns the stable name of a strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyCompression:
		return "compression"
	case StrategyTokenization:
		return "tokenization"
	case StrategyAST:
		return "ast"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ParseStrategy parses a strategy from its string name.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "compression":
		return StrategyCompression, nil
	case "tokenization":
		return StrategyTokenization, nil
	case "ast":
		return StrategyAST, nil
	default:
		return 0, fmt.Errorf("unknown codec strategy: %q", name)
	}
}
