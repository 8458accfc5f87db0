package answer

import (
	"fmt"
	"strings"

	"github.com/dgallion1/pdfqa/internal/document"
	"github.com/dgallion1/pdfqa/internal/questions"
)

const SystemPrompt = `You answer questions about a document using only the excerpts provided.

Rules:
- Answer from the excerpts only. Do not use outside knowledge.
- Be concise: a value, a name, a date, or one or two sentences.
- Quote figures, units and section references exactly as written.
- If the excerpts do not contain the answer, reply with exactly: NOT FOUND

Respond with ONLY the answer, no preamble.`

// BuildPrompt renders the user message for one question and a set of chunks
// in document order. Chunks that continue the previous one skip the repeated
// overlap.
func BuildPrompt(docTitle string, q questions.Question, chunks []document.Chunk) string {
	var sb strings.Builder
	if docTitle != "" {
		sb.WriteString(fmt.Sprintf("Document: %q\n", docTitle))
	}
	for i, c := range chunks {
		text := c.Text
		if i > 0 && chunks[i-1].Index == c.Index-1 {
			text = c.Text[c.Overlap:]
		} else {
			endLine(&sb)
			sb.WriteString("---\n")
			sb.WriteString(excerptLabel(c))
		}
		sb.WriteString(text)
	}
	endLine(&sb)
	sb.WriteString("---\n")
	if q.Section != "" {
		sb.WriteString(fmt.Sprintf("Topic: %s\n", q.Section))
	}
	sb.WriteString(fmt.Sprintf("Question: %s\n", q.Text))
	return sb.String()
}

func excerptLabel(c document.Chunk) string {
	switch {
	case c.PageStart == 0:
		return fmt.Sprintf("[Excerpt %d]\n", c.Index+1)
	case c.PageEnd > c.PageStart:
		return fmt.Sprintf("[Excerpt %d, pages %d-%d]\n", c.Index+1, c.PageStart, c.PageEnd)
	default:
		return fmt.Sprintf("[Excerpt %d, page %d]\n", c.Index+1, c.PageStart)
	}
}

func endLine(sb *strings.Builder) {
	if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}
}
