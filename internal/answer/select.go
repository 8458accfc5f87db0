package answer

import (
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/dgallion1/pdfqa/internal/chunker"
	"github.com/dgallion1/pdfqa/internal/document"
)

// selectContexts returns the chunk groups to ask about. Each group becomes one
// request; only StrategySequential produces more than one.
func selectContexts(cfg Config, question string, chunks []document.Chunk) [][]document.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	switch cfg.Strategy {
	case StrategyWhole:
		return [][]document.Chunk{chunks}
	case StrategySequential:
		groups := make([][]document.Chunk, len(chunks))
		for i := range chunks {
			groups[i] = chunks[i : i+1]
		}
		return groups
	case StrategyRanked:
		return [][]document.Chunk{rankChunks(question, chunks, cfg.ContextTokens)}
	default:
		if chunker.EstimateChunkTokens(chunks) <= cfg.ContextTokens {
			return [][]document.Chunk{chunks}
		}
		return [][]document.Chunk{rankChunks(question, chunks, cfg.ContextTokens)}
	}
}

// rankChunks picks the chunks sharing the most terms with the question until
// the token budget is spent, and returns them in document order. At least one
// chunk is always returned.
func rankChunks(question string, chunks []document.Chunk, budget int) []document.Chunk {
	terms := queryTerms(question)

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(chunks))
	for i, c := range chunks {
		ranked[i] = scored{idx: i, score: scoreChunk(terms, strings.ToLower(c.Text))}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	var picked []document.Chunk
	used := 0
	for _, r := range ranked {
		cost := chunker.EstimateTokens(chunks[r.idx].Text)
		if len(picked) > 0 && used+cost > budget {
			continue
		}
		picked = append(picked, chunks[r.idx])
		used += cost
	}
	slices.SortFunc(picked, func(a, b document.Chunk) int { return a.Index - b.Index })
	return picked
}

// scoreChunk counts distinct question terms found in text, with a small bonus
// for repeated mentions.
func scoreChunk(terms []string, lowerText string) float64 {
	var score float64
	for _, t := range terms {
		n := strings.Count(lowerText, t)
		if n == 0 {
			continue
		}
		score += 1 + 0.1*float64(min(n, 10))
	}
	return score
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true, "what": true,
	"which": true, "who": true, "whom": true, "when": true, "where": true, "how": true,
	"does": true, "this": true, "that": true, "with": true, "from": true, "any": true,
	"there": true, "been": true, "have": true, "has": true, "must": true, "required": true,
	"specified": true, "into": true, "than": true, "then": true, "its": true, "their": true,
	"not": true, "all": true, "can": true, "may": true, "will": true, "shall": true,
	"example": true,
}

// queryTerms returns the distinct lowercase content words of a question.
func queryTerms(q string) []string {
	words := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if len([]rune(w)) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
