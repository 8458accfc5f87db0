package pdftext

import (
	"strings"
	"testing"
)

func TestParseText_ParagraphsKept(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\n\n\nSecond paragraph."
	doc, err := ParseText(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}
	if doc.Method != "manual" {
		t.Errorf("expected method manual, got %q", doc.Method)
	}
	want := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph."
	if doc.Text != want {
		t.Errorf("expected %q, got %q", want, doc.Text)
	}
	if doc.PageCount() != 1 {
		t.Errorf("expected 1 page, got %d", doc.PageCount())
	}
}

func TestParseText_EmptyInput(t *testing.T) {
	_, err := ParseText(strings.NewReader("  \n\n\t\n"), "empty.txt")
	extErr, ok := AsExtractionError(err)
	if !ok {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extErr.Reason != ReasonNoText {
		t.Errorf("expected reason %q, got %q", ReasonNoText, extErr.Reason)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapse spaces", "a    b\t\tc", "a b c"},
		{"trim lines", "  a  \n  b  ", "a\nb"},
		{"squeeze blank lines", "a\n\n\n\nb", "a\n\nb"},
		{"whitespace-only lines are blank", "a\n   \n\t\nb", "a\n\nb"},
		{"leading and trailing blanks", "\n\n a \n\n", "a"},
		{"crlf", "a\r\nb\r\n\r\nc", "a\nb\n\nc"},
		{"nbsp", "a  b", "a b"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Errorf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
