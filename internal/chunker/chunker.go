package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/pdfqa/internal/document"
)

const (
	defaultMaxSize = 6000
	defaultOverlap = 200
)

// Config controls chunking behavior.
type Config struct {
	MaxSize int // Maximum chunk size in runes.
	Overlap int // Runes repeated from the end of the previous chunk.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize: defaultMaxSize,
		Overlap: defaultOverlap,
	}
}

// normalize fills a zero config with defaults and keeps the overlap below half
// the chunk size so every chunk contributes new text.
func (c Config) normalize() Config {
	if c.MaxSize <= 0 {
		return DefaultConfig()
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if limit := (c.MaxSize - 1) / 2; c.Overlap > limit {
		c.Overlap = limit
	}
	return c
}

// ChunkDocument splits the document text and tags each chunk with its page span.
func ChunkDocument(doc *document.Document, cfg Config) []document.Chunk {
	chunks := Split(doc.Text, cfg)
	for i := range chunks {
		c := &chunks[i]
		c.PageStart = doc.PageAt(c.Start + c.Overlap)
		last := c.End - 1
		if last < c.Start {
			last = c.Start
		}
		c.PageEnd = doc.PageAt(last)
	}
	return chunks
}

// Split breaks text into chunks of at most cfg.MaxSize runes. Chunk ends prefer
// paragraph breaks, then sentence ends, then whitespace; a hard split is used
// only when the window has none of those. Split is deterministic and lossless:
// Join(Split(text, cfg)) == text.
func Split(text string, cfg Config) []document.Chunk {
	cfg = cfg.normalize()
	if text == "" {
		return nil
	}

	var chunks []document.Chunk
	start, fresh := 0, 0
	for {
		limit := advanceRunes(text, start, cfg.MaxSize)
		end := limit
		if limit < len(text) {
			end = boundary(text, fresh, limit)
		}

		chunks = append(chunks, document.Chunk{
			Index:   len(chunks),
			Start:   start,
			End:     end,
			Size:    utf8.RuneCountInString(text[start:end]),
			Overlap: fresh - start,
			Text:    text[start:end],
		})

		if end >= len(text) {
			return chunks
		}
		prevStart := start
		fresh = end
		start = backRunes(text, end, cfg.Overlap, prevStart)
	}
}

// Join reassembles the text covered by chunks, dropping overlapped prefixes.
func Join(chunks []document.Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text[c.Overlap:])
	}
	return sb.String()
}

// boundary picks the chunk end inside text[lo:hi]. The returned offset is
// always in (lo, hi].
func boundary(text string, lo, hi int) int {
	window := text[lo:hi]

	// Paragraph break: the blank line stays with the earlier chunk.
	if idx := strings.LastIndex(window, "\n\n"); idx >= 0 {
		return lo + idx + 2
	}

	// Sentence end followed by whitespace.
	for i := len(window) - 2; i >= 0; i-- {
		if isSentenceEnd(window[i]) && isSpace(window[i+1]) {
			return lo + i + 2
		}
	}

	// Any whitespace.
	for i := len(window) - 1; i >= 0; i-- {
		if isSpace(window[i]) {
			return lo + i + 1
		}
	}

	return hi
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// advanceRunes returns the byte offset n runes after from, capped at len(text).
func advanceRunes(text string, from, n int) int {
	i := from
	for count := 0; count < n && i < len(text); count++ {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return i
}

// backRunes returns the byte offset n runes before from, never below floor.
func backRunes(text string, from, n, floor int) int {
	i := from
	for count := 0; count < n && i > floor; count++ {
		_, size := utf8.DecodeLastRuneInString(text[floor:i])
		i -= size
	}
	return i
}
