// Package codec converts source text to compact binary artifacts and back.
//
// Encode is total: any strategy-specific failure is absorbed by falling back
// to plain compression, so the caller always receives a valid artifact.
// Decode fails loudly with a per-strategy error when the artifact cannot be
// reconstructed; returning corrupted text would be worse than failing.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/kcaldas/loom/pkg/logging"
)

var (
	// ErrNoGenerator is returned when decoding an AST artifact for a
	// language with no registered code generator. AST artifacts are
	// write-only until one is supplied.
	ErrNoGenerator = errors.New("codec: no code generator registered for language")

	// ErrNoDictionary is returned when decoding a tokenization artifact for
	// a language without a substitution dictionary.
	ErrNoDictionary = errors.New("codec: no tokenization dictionary for language")

	// ErrUnknownStrategy is returned when decoding an artifact whose
	// strategy tag is not one of the known variants.
	ErrUnknownStrategy = errors.New("codec: unknown strategy")
)

// Generator turns a serialized syntax tree back into source text.
// None ship with the codec; callers register one per language if they need
// AST artifacts to be readable.
type Generator interface {
	Generate(tree string) (string, error)
}

// Codec encodes and decodes code artifacts. Stateless apart from the
// generator registry, which is fixed at construction.
type Codec struct {
	generators map[string]Generator
	logger     logging.Logger
	now        func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithGenerator registers a code generator for AST decoding of a language.
func WithGenerator(language string, gen Generator) Option {
	return func(c *Codec) {
		if gen != nil {
			c.generators[strings.ToLower(language)] = gen
		}
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger logging.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock injects the timestamp source for embedded metadata (for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{
		generators: make(map[string]Generator),
		logger:     logging.NewQuietLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode produces a binary artifact for the given text. It never fails: when
// the requested strategy cannot handle the input, compression is substituted
// and the result records the fallback.
func (c *Codec) Encode(text, language string, strategy Strategy, includeMetadata bool) Result {
	switch strategy {
	case StrategyCompression:
		return Result{Artifact: c.encodeCompression(text, includeMetadata)}

	case StrategyTokenization:
		artifact, err := c.encodeTokenization(text, language)
		if err != nil {
			return c.fallback(text, includeMetadata, strategy, err)
		}
		return Result{Artifact: artifact}

	case StrategyAST:
		artifact, err := c.encodeAST(text, language)
		if err != nil {
			return c.fallback(text, includeMetadata, strategy, err)
		}
		return Result{Artifact: artifact}

	default:
		return c.fallback(text, includeMetadata, strategy,
			fmt.Errorf("unsupported strategy %d", int(strategy)))
	}
}

// Decode reconstructs the original text from an artifact.
func (c *Codec) Decode(artifact Artifact, language string) (string, error) {
	switch artifact.Strategy {
	case StrategyCompression:
		payload, err := inflate(artifact.Data)
		if err != nil {
			return "", fmt.Errorf("codec: inflate compression artifact: %w", err)
		}
		if !artifact.HasMetadata {
			return string(payload), nil
		}
		_, text, err := splitFrame(payload)
		if err != nil {
			return "", err
		}
		return text, nil

	case StrategyTokenization:
		dict, ok := dictionaryFor(language)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNoDictionary, language)
		}
		payload, err := inflate(artifact.Data)
		if err != nil {
			return "", fmt.Errorf("codec: inflate tokenization artifact: %w", err)
		}
		return dict.expand(string(payload)), nil

	case StrategyAST:
		gen, ok := c.generators[strings.ToLower(language)]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNoGenerator, language)
		}
		payload, err := inflate(artifact.Data)
		if err != nil {
			return "", fmt.Errorf("codec: inflate ast artifact: %w", err)
		}
		text, err := gen.Generate(string(payload))
		if err != nil {
			return "", fmt.Errorf("codec: generate source from ast: %w", err)
		}
		return text, nil

	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownStrategy, int(artifact.Strategy))
	}
}

// DecodeMetadata extracts the embedded metadata record from a
// metadata-bearing compression artifact.
func (c *Codec) DecodeMetadata(artifact Artifact) (Metadata, error) {
	if artifact.Strategy != StrategyCompression || !artifact.HasMetadata {
		return Metadata{}, fmt.Errorf("codec: artifact carries no metadata")
	}
	payload, err := inflate(artifact.Data)
	if err != nil {
		return Metadata{}, fmt.Errorf("codec: inflate compression artifact: %w", err)
	}
	meta, _, err := splitFrame(payload)
	return meta, err
}

func (c *Codec) encodeCompression(text string, includeMetadata bool) Artifact {
	payload := []byte(text)
	if includeMetadata {
		meta := Metadata{
			LineCount: strings.Count(text, "\n") + 1,
			CharCount: len(text),
			EncodedAt: c.now().UTC(),
		}
		// Marshaling a struct of ints and a time cannot fail.
		metaJSON, _ := json.Marshal(meta)

		// The metadata record is framed with a length prefix ahead of the
		// raw text bytes. The text is never re-encoded, so input that is
		// not valid UTF-8 still round-trips exactly.
		framed := make([]byte, 0, 4+len(metaJSON)+len(text))
		framed = binary.BigEndian.AppendUint32(framed, uint32(len(metaJSON)))
		framed = append(framed, metaJSON...)
		framed = append(framed, text...)
		payload = framed
	}
	data := deflate(payload)
	return Artifact{
		Strategy:       StrategyCompression,
		Data:           data,
		OriginalSize:   len(text),
		CompressedSize: len(data),
		HasMetadata:    includeMetadata,
	}
}

func (c *Codec) encodeTokenization(text, language string) (Artifact, error) {
	dict, ok := dictionaryFor(language)
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %q", ErrNoDictionary, language)
	}
	data := deflate([]byte(dict.substitute(text)))
	return Artifact{
		Strategy:       StrategyTokenization,
		Data:           data,
		OriginalSize:   len(text),
		CompressedSize: len(data),
	}, nil
}

func (c *Codec) fallback(text string, includeMetadata bool, requested Strategy, cause error) Result {
	c.logger.Debug("codec falling back to compression",
		"requested", requested.String(), "cause", cause)
	return Result{
		Artifact:       c.encodeCompression(text, includeMetadata),
		FellBack:       true,
		FallbackReason: fmt.Sprintf("%s: %v", requested, cause),
	}
}

// splitFrame separates the length-prefixed metadata record from the raw text
// bytes of a metadata-bearing payload.
func splitFrame(payload []byte) (Metadata, string, error) {
	if len(payload) < 4 {
		return Metadata{}, "", errors.New("codec: metadata frame truncated")
	}
	metaLen := int(binary.BigEndian.Uint32(payload))
	if metaLen > len(payload)-4 {
		return Metadata{}, "", errors.New("codec: metadata frame truncated")
	}
	var meta Metadata
	if err := json.Unmarshal(payload[4:4+metaLen], &meta); err != nil {
		return Metadata{}, "", fmt.Errorf("codec: unwrap metadata record: %w", err)
	}
	return meta, string(payload[4+metaLen:]), nil
}

// deflate compresses data with DEFLATE at the default level. Writes to an
// in-memory buffer cannot fail, so the error paths are unreachable.
func deflate(data []byte) []byte {
	var buf bytes.Buffer
	w, _ := flate.NewWriter(&buf, flate.DefaultCompression)
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}
