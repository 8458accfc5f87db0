package pdftext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeMethod struct {
	name  string
	pages []string
	err   error
	calls int
}

func (m *fakeMethod) Name() string { return m.name }

func (m *fakeMethod) Pages(ctx context.Context, path, password string) ([]string, error) {
	m.calls++
	return m.pages, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contract.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 placeholder"), 0o600); err != nil {
		t.Fatalf("write temp pdf: %v", err)
	}
	return path
}

func longText(n int) string {
	return strings.Repeat("The effective date is January 1. ", n)
}

func TestExtractFile_FirstMethodWins(t *testing.T) {
	first := &fakeMethod{name: "first", pages: []string{longText(3), longText(2)}}
	second := &fakeMethod{name: "second", pages: []string{longText(5)}}
	e := newExtractor(Options{MinTextChars: 50}, discardLogger(), first, second)

	doc, err := e.ExtractFile(context.Background(), writeTempPDF(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Method != "first" {
		t.Errorf("expected method first, got %q", doc.Method)
	}
	if doc.Title != "contract" {
		t.Errorf("expected title contract, got %q", doc.Title)
	}
	if doc.PageCount() != 2 {
		t.Errorf("expected 2 pages, got %d", doc.PageCount())
	}
	if second.calls != 0 {
		t.Errorf("expected second method not to run, ran %d times", second.calls)
	}
}

func TestExtractFile_FallsBackOnError(t *testing.T) {
	broken := &fakeMethod{name: "broken", err: errors.New("malformed xref")}
	good := &fakeMethod{name: "good", pages: []string{longText(4)}}
	e := newExtractor(Options{MinTextChars: 50}, discardLogger(), broken, good)

	doc, err := e.ExtractFile(context.Background(), writeTempPDF(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Method != "good" {
		t.Errorf("expected method good, got %q", doc.Method)
	}
}

func TestExtractFile_FallsBackOnShortText(t *testing.T) {
	sparse := &fakeMethod{name: "sparse", pages: []string{"  x  "}}
	good := &fakeMethod{name: "good", pages: []string{longText(4)}}
	e := newExtractor(Options{MinTextChars: 50}, discardLogger(), sparse, good)

	doc, err := e.ExtractFile(context.Background(), writeTempPDF(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Method != "good" {
		t.Errorf("expected method good, got %q", doc.Method)
	}
}

func TestExtractFile_ErrorReasons(t *testing.T) {
	tests := []struct {
		name    string
		methods []method
		want    Reason
	}{
		{
			name:    "no text layer",
			methods: []method{&fakeMethod{name: "a", pages: []string{"", " "}}, &fakeMethod{name: "b", pages: []string{"tiny"}}},
			want:    ReasonNoText,
		},
		{
			name:    "encrypted",
			methods: []method{&fakeMethod{name: "a", err: fmt.Errorf("%w: bad password", errEncrypted)}, &fakeMethod{name: "b", err: errors.New("broken")}},
			want:    ReasonEncrypted,
		},
		{
			name:    "unreadable",
			methods: []method{&fakeMethod{name: "a", err: errors.New("not a pdf")}},
			want:    ReasonUnreadable,
		},
		{
			name: "no methods",
			want: ReasonUnreadable,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newExtractor(Options{MinTextChars: 50}, discardLogger(), tc.methods...)
			_, err := e.ExtractFile(context.Background(), writeTempPDF(t))
			extErr, ok := AsExtractionError(err)
			if !ok {
				t.Fatalf("expected ExtractionError, got %v", err)
			}
			if extErr.Reason != tc.want {
				t.Errorf("expected reason %q, got %q", tc.want, extErr.Reason)
			}
		})
	}
}

func TestExtractFile_MissingFile(t *testing.T) {
	e := newExtractor(Options{}, discardLogger(), &fakeMethod{name: "a", pages: []string{longText(3)}})
	_, err := e.ExtractFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	extErr, ok := AsExtractionError(err)
	if !ok {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extErr.Reason != ReasonUnreadable {
		t.Errorf("expected reason unreadable, got %q", extErr.Reason)
	}
}

func TestExtract_FromReaderUsesUploadName(t *testing.T) {
	e := newExtractor(Options{MinTextChars: 50}, discardLogger(), &fakeMethod{name: "a", err: errors.New("not a pdf")})
	_, err := e.Extract(context.Background(), strings.NewReader("garbage"), "upload.pdf")
	extErr, ok := AsExtractionError(err)
	if !ok {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extErr.Path != "upload.pdf" {
		t.Errorf("expected path upload.pdf, got %q", extErr.Path)
	}
}

func TestExtract_GarbageBytesWithRealReader(t *testing.T) {
	e := newExtractor(Options{MinTextChars: 50}, discardLogger(), readerMethod{})
	_, err := e.Extract(context.Background(), strings.NewReader("this is not a pdf"), "junk.pdf")
	extErr, ok := AsExtractionError(err)
	if !ok {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extErr.Reason != ReasonUnreadable {
		t.Errorf("expected reason unreadable, got %q", extErr.Reason)
	}
}

func TestExtractFile_ContextCanceled(t *testing.T) {
	e := newExtractor(Options{}, discardLogger(), &fakeMethod{name: "a", pages: []string{longText(3)}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ExtractFile(ctx, writeTempPDF(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMethods_Names(t *testing.T) {
	e := newExtractor(Options{}, discardLogger(), &fakeMethod{name: "a"}, &fakeMethod{name: "b"})
	got := strings.Join(e.Methods(), ",")
	if got != "a,b" {
		t.Errorf("expected a,b, got %q", got)
	}
}
