package codec

import "strings"

// dictionary maps language keywords and punctuation clusters to single
// private-use-area codepoints (U+E000 and up) so the deflate stage sees a
// denser input. The mapping is ordered longest-entry-first so substitution
// is deterministic.
//
// Known fragility: a stand-in codepoint appearing verbatim in source text is
// expanded on decode as if it had been substituted, corrupting the round
// trip. Private-use codepoints make that unlikely but not impossible, which
// is why this strategy is opt-in and compression stays the default.
type dictionary struct {
	substituter *strings.Replacer
	expander    *strings.Replacer
}

func newDictionary(entries []string) *dictionary {
	subst := make([]string, 0, len(entries)*2)
	expand := make([]string, 0, len(entries)*2)
	for i, entry := range entries {
		standIn := string(rune(0xE000 + i))
		subst = append(subst, entry, standIn)
		expand = append(expand, standIn, entry)
	}
	return &dictionary{
		substituter: strings.NewReplacer(subst...),
		expander:    strings.NewReplacer(expand...),
	}
}

func (d *dictionary) substitute(text string) string {
	return d.substituter.Replace(text)
}

func (d *dictionary) expand(text string) string {
	return d.expander.Replace(text)
}

// Entries are ordered longest-first within each group so that e.g.
// "function " wins over "function".
var ecmaEntries = []string{
	"export default ",
	"export const ",
	"async function ",
	"function ",
	"interface ",
	"implements ",
	"constructor",
	"continue",
	"extends ",
	"import ",
	"export ",
	"return ",
	"const ",
	"class ",
	"await ",
	"async ",
	"from ",
	"type ",
	"let ",
	"new ",
	"this.",
	"=> {",
	"===",
	"!==",
	") {",
	"};",
	"&&",
	"||",
}

var goEntries = []string{
	"func (",
	"package ",
	"import (",
	"interface{",
	"continue",
	"return ",
	"struct{",
	"struct ",
	"func ",
	"type ",
	"chan ",
	"defer ",
	"range ",
	"go ",
	":= ",
	"err != nil",
	") {",
	"&&",
	"||",
}

var pythonEntries = []string{
	"async def ",
	"lambda ",
	"import ",
	"return ",
	"class ",
	"raise ",
	"yield ",
	"await ",
	"from ",
	"elif ",
	"else:",
	"self.",
	"with ",
	"def ",
	"not ",
	") -> ",
}

var dictionaries = map[string]*dictionary{
	"typescript": newDictionary(ecmaEntries),
	"javascript": newDictionary(ecmaEntries),
	"go":         newDictionary(goEntries),
	"python":     newDictionary(pythonEntries),
}

var languageAliases = map[string]string{
	"ts":     "typescript",
	"tsx":    "typescript",
	"js":     "javascript",
	"jsx":    "javascript",
	"py":     "python",
	"golang": "go",
}

func dictionaryFor(language string) (*dictionary, bool) {
	name := strings.ToLower(language)
	if canonical, ok := languageAliases[name]; ok {
		name = canonical
	}
	dict, ok := dictionaries[name]
	return dict, ok
}
