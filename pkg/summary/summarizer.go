// Package summary derives reduced structural views of source files.
//
// The summarizer is a line-based heuristic, not a parser: it keeps lines
// that look like imports, declarations and control headers and drops the
// rest. It is a fallback representation for when full content or a binary
// reference is too expensive, so it must never fail.
package summary

import (
	"strings"
	"unicode/utf8"
)

// MaxChars is the ceiling on summary length. Output beyond it is cut and
// marked so the caller can detect the loss.
const MaxChars = 1000

// TruncationMarker is appended when a summary is cut at MaxChars.
const TruncationMarker = "\n... [summary truncated]"

// Placeholder is returned for content that yields nothing to summarize.
const Placeholder = "(no structural summary available)"

// Summarizer extracts a structural outline from source text.
type Summarizer struct{}

func New() *Summarizer {
	return &Summarizer{}
}

// Summarize returns a short structural view of the text. Absent content or a
// filter that matches nothing yields the fixed placeholder.
func (s *Summarizer) Summarize(text, language string) string {
	if strings.TrimSpace(text) == "" {
		return Placeholder
	}

	prefixes, contains := filtersFor(language)

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if matchesFilter(line, prefixes, contains) {
			kept = append(kept, strings.TrimRight(line, " \t"))
		}
	}
	if len(kept) == 0 {
		return Placeholder
	}

	result := strings.Join(kept, "\n")
	if len(result) > MaxChars {
		// Back off to a rune boundary so the cut never emits invalid UTF-8.
		cut := MaxChars
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		result = result[:cut] + TruncationMarker
	}
	return result
}

func matchesFilter(line string, prefixes, contains []string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	for _, c := range contains {
		if strings.Contains(trimmed, c) {
			return true
		}
	}
	return false
}

// filtersFor returns prefix and substring filters for a language. Unrecognized
// languages get a broader generic filter covering declarations and control
// headers across common C-family and scripting syntaxes.
func filtersFor(language string) (prefixes, contains []string) {
	switch normalizeLanguage(language) {
	case "go":
		return []string{"package ", "import ", "func ", "type ", "const ", "var "}, nil
	case "typescript", "javascript":
		return []string{
			"import ", "export ", "function ", "class ", "interface ",
			"type ", "const ", "enum ", "async function ",
		}, []string{"=> {"}
	case "python":
		return []string{"import ", "from ", "def ", "class ", "async def ", "@"}, nil
	case "rust":
		return []string{"use ", "pub ", "fn ", "struct ", "enum ", "trait ", "impl ", "mod "}, nil
	default:
		return []string{
			"import ", "export ", "function ", "class ", "interface ",
			"type ", "def ", "fn ", "func ", "struct ", "enum ",
			"if ", "for ", "while ", "switch ", "match ",
			"public ", "private ", "protected ", "static ",
		}, nil
	}
}

func normalizeLanguage(language string) string {
	name := strings.ToLower(language)
	switch name {
	case "ts", "tsx":
		return "typescript"
	case "js", "jsx":
		return "javascript"
	case "py":
		return "python"
	case "rs":
		return "rust"
	case "golang":
		return "go"
	}
	return name
}
