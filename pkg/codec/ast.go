package codec

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strings"
)

// encodeAST parses source, prunes position and comment metadata, serializes
// the remaining tree and deflates it. Only Go has a parser here; any other
// language is an encode failure, which Encode absorbs by falling back to
// compression.
func (c *Codec) encodeAST(text, language string) (Artifact, error) {
	name := strings.ToLower(language)
	if alias, ok := languageAliases[name]; ok {
		name = alias
	}
	if name != "go" {
		return Artifact{}, fmt.Errorf("codec: no parser for language %q", name)
	}

	fset := token.NewFileSet()
	// Comments are dropped by not requesting parser.ParseComments.
	file, err := parser.ParseFile(fset, "src.go", text, parser.SkipObjectResolution)
	if err != nil {
		return Artifact{}, fmt.Errorf("codec: parse go source: %w", err)
	}

	var tree bytes.Buffer
	if err := ast.Fprint(&tree, fset, file, prunedFieldFilter); err != nil {
		return Artifact{}, fmt.Errorf("codec: serialize syntax tree: %w", err)
	}

	data := deflate(tree.Bytes())
	return Artifact{
		Strategy:       StrategyAST,
		Data:           data,
		OriginalSize:   len(text),
		CompressedSize: len(data),
	}, nil
}

// prunedFieldFilter drops nil fields and anything carrying source positions,
// so the serialized tree holds structure only.
func prunedFieldFilter(name string, value reflect.Value) bool {
	if value.IsValid() && value.Type() == reflect.TypeOf(token.Pos(0)) {
		return false
	}
	return ast.NotNilFilter(name, value)
}
