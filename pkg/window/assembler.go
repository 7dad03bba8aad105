package window

import (
	"fmt"
	"strings"
)

// SectionHeader prefixes every assembled payload.
const SectionHeader = "# Repository context"

// SideTable maps item path to its resolved representation so a downstream
// consumer (diffing a model-proposed edit against the original, for example)
// can resolve what the model actually saw without re-deriving it.
type SideTable map[string]Representation

// ReferenceLine renders the payload line standing in for a binary artifact.
// The allocator estimates reference-tier cost from this exact string.
func ReferenceLine(artifactID string) string {
	return "REF: " + artifactID
}

// Assembler renders allocation results into the final textual payload.
// Rendering is a pure function of its input: no I/O, cannot fail.
type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Render produces the payload and the side table. Retained items appear as
// delimited blocks in allocator order; dropped items appear only in the side
// table, reason included.
func (as *Assembler) Render(resolved []Resolved) (string, SideTable) {
	sideTable := make(SideTable, len(resolved))

	var b strings.Builder
	b.WriteString(SectionHeader)
	b.WriteString("\n")

	for _, r := range resolved {
		sideTable[r.Item.Path] = r.Rep
		if !r.Rep.Retained() {
			continue
		}

		b.WriteString("\nFILE: ")
		b.WriteString(r.Item.Path)
		b.WriteString("\n")

		switch r.Rep.Tier {
		case TierReference:
			b.WriteString(ReferenceLine(r.Rep.ArtifactID))
			b.WriteString("\n")
		default:
			fmt.Fprintf(&b, "```%s\n", r.Item.Language)
			b.WriteString(r.Rep.Text)
			if !strings.HasSuffix(r.Rep.Text, "\n") {
				b.WriteString("\n")
			}
			b.WriteString("```\n")
		}
	}

	return b.String(), sideTable
}
