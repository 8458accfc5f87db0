package questions

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

//go:embed default_questions.md
var defaultBank []byte

// Question is one entry of the questionnaire.
type Question struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Section  string `json:"section,omitempty"`
	Position int    `json:"position"` // 0-based position in the bank
}

// Bank is a fixed, ordered list of questions.
type Bank struct {
	Title     string
	questions []Question
	byID      map[string]int
}

// explicitID matches "Q12: text", "A3) text" or "R7. text".
var explicitID = regexp.MustCompile(`^([A-Za-z]{1,4}\d+[a-z]?)\s*[:.)]\s+(.+)$`)

// NewBank builds a bank from question texts in order. A text may carry its own
// ID prefix ("Q1: Effective date?"); otherwise IDs are Q1, Q2, ...
func NewBank(texts []string) (*Bank, error) {
	entries := make([]entry, 0, len(texts))
	for _, t := range texts {
		entries = append(entries, entry{text: t})
	}
	return build("", entries)
}

// Default returns the embedded questionnaire.
func Default() *Bank {
	b, err := Parse(bytes.NewReader(defaultBank))
	if err != nil {
		panic(fmt.Sprintf("embedded question bank: %v", err))
	}
	return b
}

// Load reads a markdown questionnaire from path, or returns the default bank
// when path is empty.
func Load(path string) (*Bank, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()
	b, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("question bank %s: %w", path, err)
	}
	return b, nil
}

type entry struct {
	text    string
	section string
}

// Parse reads a markdown questionnaire. The first level-1 heading is the bank
// title, deeper headings name sections, and every list item is a question.
func Parse(r io.Reader) (*Bank, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var (
		title   string
		section string
		entries []entry
	)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			heading := inlineText(node, src)
			if node.Level == 1 && title == "" {
				title = heading
				continue
			}
			section = heading
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				entries = append(entries, entry{text: itemText(item, src), section: section})
			}
		}
	}
	return build(title, entries)
}

func build(title string, entries []entry) (*Bank, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}
	b := &Bank{
		Title:     title,
		questions: make([]Question, 0, len(entries)),
		byID:      make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		txt := strings.Join(strings.Fields(e.text), " ")
		if txt == "" {
			return nil, fmt.Errorf("question %d is empty", i+1)
		}
		id := fmt.Sprintf("Q%d", i+1)
		if m := explicitID.FindStringSubmatch(txt); m != nil {
			id, txt = m[1], m[2]
		}
		if _, dup := b.byID[id]; dup {
			return nil, fmt.Errorf("duplicate question id %q", id)
		}
		b.byID[id] = i
		b.questions = append(b.questions, Question{
			ID:       id,
			Text:     txt,
			Section:  e.section,
			Position: i,
		})
	}
	return b, nil
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Questions returns a copy of the questions in bank order.
func (b *Bank) Questions() []Question {
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// Get returns the question with the given ID.
func (b *Bank) Get(id string) (Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return Question{}, false
	}
	return b.questions[i], true
}

// itemText returns the text of a list item, ignoring nested lists.
func itemText(item ast.Node, src []byte) string {
	var parts []string
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, nested := c.(*ast.List); nested {
			continue
		}
		if t := inlineText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// inlineText collects the literal text under n with whitespace collapsed.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}
