package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dgallion1/pdfqa/internal/document"
)

func TestSplit_SmallTextFitsOneChunk(t *testing.T) {
	text := strings.Repeat("word ", 200)
	chunks := Split(text, Config{MaxSize: 2000, Overlap: 100})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
	if chunks[0].Text != text {
		t.Errorf("expected chunk to hold the whole text")
	}
	if chunks[0].Overlap != 0 {
		t.Errorf("expected first chunk overlap 0, got %d", chunks[0].Overlap)
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	inputs := map[string]string{
		"paragraphs": strings.Repeat("The quick brown fox jumps over the lazy dog. It ran away.\n\n", 80),
		"sentences":  strings.Repeat("Pipe liners shall be cured in place. Testing follows! Any questions? ", 120),
		"no breaks":  strings.Repeat("x", 5000),
		"words":      strings.Repeat("alpha beta\tgamma\ndelta ", 300),
		"unicode":    strings.Repeat("Größe über Maß — 管道修复。 ", 200),
		"blank runs": "a\n\n\n\nb\n\n\n" + strings.Repeat("c ", 400) + "\n\n\n\n",
	}
	configs := []Config{
		{MaxSize: 100, Overlap: 0},
		{MaxSize: 100, Overlap: 20},
		{MaxSize: 257, Overlap: 128},
		{MaxSize: 1000, Overlap: 50},
		{MaxSize: 3, Overlap: 1},
	}

	for name, text := range inputs {
		for _, cfg := range configs {
			chunks := Split(text, cfg)
			if got := Join(chunks); got != text {
				t.Errorf("%s %+v: join mismatch (len %d vs %d)", name, cfg, len(got), len(text))
			}
		}
	}
}

func TestSplit_NoChunkExceedsMaxSize(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 400) +
		strings.Repeat("ü", 3000)
	cfg := Config{MaxSize: 500, Overlap: 60}
	chunks := Split(text, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Size > cfg.MaxSize {
			t.Errorf("chunk %d: size %d exceeds max %d", i, c.Size, cfg.MaxSize)
		}
		if c.Size != utf8.RuneCountInString(c.Text) {
			t.Errorf("chunk %d: size %d does not match rune count", i, c.Size)
		}
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		if text[c.Start:c.End] != c.Text {
			t.Errorf("chunk %d: offsets do not match text", i)
		}
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d: split inside a rune", i)
		}
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("sentence one. ", 5) + "end."
	text := para + "\n\n" + para + "\n\n" + para
	chunks := Split(text, Config{MaxSize: len(para) + 10, Overlap: 0})

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i := 0; i < 2; i++ {
		if chunks[i].Text != para+"\n\n" {
			t.Errorf("chunk %d: expected a whole paragraph, got %q", i, chunks[i].Text)
		}
	}
	if chunks[2].Text != para {
		t.Errorf("expected last chunk to be the last paragraph, got %q", chunks[2].Text)
	}
}

func TestSplit_FallsBackToSentences(t *testing.T) {
	text := "First sentence here. Second sentence here. Third sentence here."
	chunks := Split(text, Config{MaxSize: 30, Overlap: 0})

	if chunks[0].Text != "First sentence here. " {
		t.Errorf("expected split after first sentence, got %q", chunks[0].Text)
	}
	if Join(chunks) != text {
		t.Error("join mismatch")
	}
}

func TestSplit_HardSplitLongRun(t *testing.T) {
	text := strings.Repeat("a", 250)
	chunks := Split(text, Config{MaxSize: 100, Overlap: 0})

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, want := range []int{100, 100, 50} {
		if chunks[i].Size != want {
			t.Errorf("chunk %d: expected size %d, got %d", i, want, chunks[i].Size)
		}
	}
}

func TestSplit_OverlapRepeatsPreviousTail(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30)
	chunks := Split(text, Config{MaxSize: 100, Overlap: 10})

	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if cur.Overlap != 10 {
			t.Errorf("chunk %d: expected overlap 10, got %d", i, cur.Overlap)
		}
		if !strings.HasSuffix(prev.Text, cur.Text[:cur.Overlap]) {
			t.Errorf("chunk %d: overlap is not the previous chunk's tail", i)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Clause 4.2 applies. See Appendix B.\n\n", 100)
	cfg := Config{MaxSize: 300, Overlap: 40}
	a := Split(text, cfg)
	b := Split(text, cfg)

	if len(a) != len(b) {
		t.Fatalf("expected equal chunk counts, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_EmptyText(t *testing.T) {
	if chunks := Split("", DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestSplit_DefaultConfigFallback(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	chunks := Split(text, Config{})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks with default size, got %d", len(chunks))
	}
	if chunks[0].Size > defaultMaxSize {
		t.Errorf("chunk exceeds default max size: %d", chunks[0].Size)
	}
}

func TestSplit_OverlapClamped(t *testing.T) {
	text := strings.Repeat("z", 100)
	chunks := Split(text, Config{MaxSize: 10, Overlap: 50})
	for i, c := range chunks {
		if c.Overlap > 4 {
			t.Errorf("chunk %d: overlap %d exceeds clamp", i, c.Overlap)
		}
	}
	if Join(chunks) != text {
		t.Error("join mismatch")
	}
}

func TestChunkDocument_PageSpans(t *testing.T) {
	pages := []string{
		strings.Repeat("page one text. ", 10),
		"",
		strings.Repeat("page three text. ", 10),
	}
	doc := document.New("doc", "doc.pdf", "test", pages)
	chunks := ChunkDocument(doc, Config{MaxSize: 200, Overlap: 0})

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if chunks[0].PageStart != 1 {
		t.Errorf("expected first chunk to start on page 1, got %d", chunks[0].PageStart)
	}
	last := chunks[len(chunks)-1]
	if last.PageEnd != 3 {
		t.Errorf("expected last chunk to end on page 3, got %d", last.PageEnd)
	}
	for i, c := range chunks {
		if c.PageStart > c.PageEnd {
			t.Errorf("chunk %d: page start %d after end %d", i, c.PageStart, c.PageEnd)
		}
		if c.PageStart == 2 || c.PageEnd == 2 {
			t.Errorf("chunk %d: empty page 2 should not be referenced", i)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("expected 0 tokens for empty text")
	}
	if got := EstimateTokens("x"); got != 1 {
		t.Errorf("expected at least 1 token, got %d", got)
	}
	if got := EstimateTokens(strings.Repeat("word ", 100)); got != 133 {
		t.Errorf("expected 133 tokens, got %d", got)
	}
}
