package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGoSource = `package main

import "fmt"

func main() {
	fmt.Println("hello")
}
`

const sampleTypescript = `import { thing } from "./thing";

export function greet(name: string): string {
	return "hello " + name;
}
`

func TestCompression_RoundTrip(t *testing.T) {
	c := New()
	inputs := []string{
		"",
		"x",
		sampleGoSource,
		sampleTypescript,
		strings.Repeat("abcd", 5000),
		"non-latin: 日本語 \U0001f600",
		"\x00\x01\x02 binary-ish but valid string",
		"valid prefix \xff\xfe invalid bytes",
		"\x80\x81\x82",
	}
	for _, withMetadata := range []bool{false, true} {
		for _, input := range inputs {
			result := c.Encode(input, "typescript", StrategyCompression, withMetadata)
			assert.False(t, result.FellBack)
			assert.Equal(t, StrategyCompression, result.Artifact.Strategy)

			decoded, err := c.Decode(result.Artifact, "typescript")
			require.NoError(t, err)
			assert.Equal(t, input, decoded)
		}
	}
}

func TestCompression_InvalidUTF8SurvivesMetadataFrame(t *testing.T) {
	c := New()
	input := "valid prefix \xff\xfe invalid bytes"

	result := c.Encode(input, "", StrategyCompression, true)
	require.True(t, result.Artifact.HasMetadata)

	decoded, err := c.Decode(result.Artifact, "")
	require.NoError(t, err)
	assert.Equal(t, input, decoded)

	meta, err := c.DecodeMetadata(result.Artifact)
	require.NoError(t, err)
	assert.Equal(t, len(input), meta.CharCount)
}

func TestCompression_WithMetadata(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return fixed }))

	text := "line one\nline two\nline three"
	result := c.Encode(text, "", StrategyCompression, true)
	require.True(t, result.Artifact.HasMetadata)

	decoded, err := c.Decode(result.Artifact, "")
	require.NoError(t, err)
	assert.Equal(t, text, decoded)

	meta, err := c.DecodeMetadata(result.Artifact)
	require.NoError(t, err)
	assert.Equal(t, 3, meta.LineCount)
	assert.Equal(t, len(text), meta.CharCount)
	assert.Equal(t, fixed, meta.EncodedAt)
}

func TestCompression_TimestampDoesNotAffectDecode(t *testing.T) {
	early := New(WithClock(func() time.Time { return time.Unix(0, 0) }))
	late := New(WithClock(func() time.Time { return time.Unix(1e9, 0) }))

	text := "const x = 1;"
	a := early.Encode(text, "js", StrategyCompression, true)
	b := late.Encode(text, "js", StrategyCompression, true)

	decodedA, err := early.Decode(a.Artifact, "js")
	require.NoError(t, err)
	decodedB, err := late.Decode(b.Artifact, "js")
	require.NoError(t, err)
	assert.Equal(t, decodedA, decodedB)
}

func TestCompression_Deterministic(t *testing.T) {
	c := New()
	a := c.Encode(sampleTypescript, "typescript", StrategyCompression, false)
	b := c.Encode(sampleTypescript, "typescript", StrategyCompression, false)
	assert.Equal(t, a.Artifact.Data, b.Artifact.Data)
}

func TestDecodeMetadata_PlainArtifact(t *testing.T) {
	c := New()
	result := c.Encode("text", "", StrategyCompression, false)
	_, err := c.DecodeMetadata(result.Artifact)
	assert.Error(t, err)
}

func TestTokenization_RoundTrip(t *testing.T) {
	c := New()
	result := c.Encode(sampleTypescript, "typescript", StrategyTokenization, false)
	require.False(t, result.FellBack)
	assert.Equal(t, StrategyTokenization, result.Artifact.Strategy)

	decoded, err := c.Decode(result.Artifact, "typescript")
	require.NoError(t, err)
	assert.Equal(t, sampleTypescript, decoded)
}

func TestTokenization_DensityGain(t *testing.T) {
	c := New()
	source := strings.Repeat(sampleTypescript, 20)
	tokenized := c.Encode(source, "typescript", StrategyTokenization, false)
	plain := c.Encode(source, "typescript", StrategyCompression, false)
	assert.LessOrEqual(t, tokenized.Artifact.CompressedSize, plain.Artifact.CompressedSize+16)
}

// Known-fragile case: source text that already contains a private-use
// stand-in codepoint is corrupted by decode. This is inherent to the
// substitution scheme, so the test documents the corruption rather than
// asserting a round trip.
func TestTokenization_StandInCollisionCorruptsDecode(t *testing.T) {
	c := New()
	hostile := "let x = \"\";"

	result := c.Encode(hostile, "typescript", StrategyTokenization, false)
	require.False(t, result.FellBack)

	decoded, err := c.Decode(result.Artifact, "typescript")
	require.NoError(t, err)
	assert.NotEqual(t, hostile, decoded)
}

func TestTokenization_UnknownLanguageFallsBack(t *testing.T) {
	c := New()
	result := c.Encode("SELECT * FROM t;", "sql", StrategyTokenization, false)

	assert.True(t, result.FellBack)
	assert.Contains(t, result.FallbackReason, "tokenization")
	assert.Equal(t, StrategyCompression, result.Artifact.Strategy)

	decoded, err := c.Decode(result.Artifact, "sql")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t;", decoded)
}

func TestAST_EncodeGoDecodeFailsWithoutGenerator(t *testing.T) {
	c := New()
	result := c.Encode(sampleGoSource, "go", StrategyAST, false)
	require.False(t, result.FellBack)
	assert.Equal(t, StrategyAST, result.Artifact.Strategy)
	assert.Greater(t, result.Artifact.CompressedSize, 0)

	_, err := c.Decode(result.Artifact, "go")
	assert.ErrorIs(t, err, ErrNoGenerator)
}

type echoGenerator struct{ out string }

func (g echoGenerator) Generate(tree string) (string, error) { return g.out, nil }

func TestAST_DecodeUsesRegisteredGenerator(t *testing.T) {
	c := New(WithGenerator("go", echoGenerator{out: "regenerated"}))
	result := c.Encode(sampleGoSource, "go", StrategyAST, false)
	require.False(t, result.FellBack)

	decoded, err := c.Decode(result.Artifact, "go")
	require.NoError(t, err)
	assert.Equal(t, "regenerated", decoded)
}

func TestAST_NonGoLanguageFallsBack(t *testing.T) {
	c := New()
	result := c.Encode(sampleTypescript, "typescript", StrategyAST, false)

	assert.True(t, result.FellBack)
	assert.Equal(t, StrategyCompression, result.Artifact.Strategy)

	decoded, err := c.Decode(result.Artifact, "typescript")
	require.NoError(t, err)
	assert.Equal(t, sampleTypescript, decoded)
}

func TestAST_ParseErrorFallsBack(t *testing.T) {
	c := New()
	result := c.Encode("package {{{ not go", "go", StrategyAST, false)

	assert.True(t, result.FellBack)
	decoded, err := c.Decode(result.Artifact, "go")
	require.NoError(t, err)
	assert.Equal(t, "package {{{ not go", decoded)
}

func TestStrategy_StringParseRoundTrip(t *testing.T) {
	for _, s := range []Strategy{StrategyCompression, StrategyTokenization, StrategyAST} {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStrategy("zstd")
	assert.Error(t, err)
}

func TestDecode_UnknownStrategy(t *testing.T) {
	c := New()
	_, err := c.Decode(Artifact{Strategy: Strategy(42)}, "go")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
