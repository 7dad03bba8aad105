package codec

import "time"

// Artifact is the opaque binary output of an encode. The codec is stateless;
// persistence and identity of artifacts belong to whichever store holds them.
type Artifact struct {
	Strategy       Strategy
	Data           []byte
	OriginalSize   int // bytes of source text before encoding
	CompressedSize int // len(Data)
	HasMetadata    bool
}

// Metadata is the record framed ahead of the raw text bytes when an artifact
// is encoded with metadata. The timestamp is informational only and must
// never affect decode correctness.
type Metadata struct {
	LineCount int       `json:"line_count"`
	CharCount int       `json:"char_count"`
	EncodedAt time.Time `json:"encoded_at"`
}

// Result is what Encode returns. Encode never fails: when a non-compression
// strategy cannot encode the input, the codec silently substitutes
// compression and records that it did so here, so callers (and tests) can
// observe the fallback instead of inferring it from logs.
type Result struct {
	Artifact       Artifact
	FellBack       bool
	FallbackReason string
}
