package answer

import (
	"fmt"
	"strings"

	"policy-qa-be/internal/entity"
)

// Passage is a numbered context chunk as presented to the model.
type Passage struct {
	Ref          int
	Chunk        *entity.PassageChunk
	DocumentName string
}

// Header renders the metadata line for one numbered passage.
func (p Passage) Header() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[ref %d] %s, page %d", p.Ref, p.DocumentName, p.Chunk.PageNumber)
	if p.Chunk.PrintedPageNumber != nil {
		fmt.Fprintf(&b, " (printed page %d)", *p.Chunk.PrintedPageNumber)
	}
	if p.Chunk.SectionTitle != nil && *p.Chunk.SectionTitle != "" {
		fmt.Fprintf(&b, ", section %q", *p.Chunk.SectionTitle)
	}
	if p.Chunk.ClauseLabel != nil && *p.Chunk.ClauseLabel != "" {
		fmt.Fprintf(&b, ", %s", *p.Chunk.ClauseLabel)
	}
	return b.String()
}

func renderPassages(passages []Passage) string {
	if len(passages) == 0 {
		return "(no passages)"
	}
	var b strings.Builder
	for _, p := range passages {
		b.WriteString(p.Header())
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(p.Chunk.Content))
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
