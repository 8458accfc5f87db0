package chunker

import (
	"strings"

	"github.com/dgallion1/pdfqa/internal/document"
)

// EstimateTokens gives a rough token count from the word count.
// Exact tokenization is not required for sizing prompt context.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	// Roughly 1.33 tokens per English word.
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// EstimateChunkTokens sums the token estimate of the new text in each chunk.
func EstimateChunkTokens(chunks []document.Chunk) int {
	total := 0
	for _, c := range chunks {
		total += EstimateTokens(c.Text[c.Overlap:])
	}
	return total
}
