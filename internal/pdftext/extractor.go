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
	"unicode/utf8"

	"github.com/dgallion1/pdfqa/internal/document"
)

// Options controls which extraction methods run and what counts as success.
type Options struct {
	Password     string // User password for encrypted files.
	MinTextChars int    // Cleaned text shorter than this is treated as no text.
	Repair       bool   // Retry through a pdfcpu repair pass.
	Pdftotext    bool   // Fall back to the pdftotext binary when installed.
	Tables       bool   // Append column-aligned rows as pipe-separated tables.
}

// DefaultOptions mirrors the service defaults.
func DefaultOptions() Options {
	return Options{
		MinTextChars: 50,
		Repair:       true,
		Pdftotext:    true,
		Tables:       true,
	}
}

// Extractor turns PDF files into documents by trying each method in order
// until one yields enough text.
type Extractor struct {
	opts    Options
	methods []method
	log     *slog.Logger
}

func NewExtractor(opts Options, log *slog.Logger) *Extractor {
	reader := readerMethod{tables: opts.Tables}
	methods := []method{reader}
	if opts.Repair {
		methods = append(methods, repairMethod{reader: reader})
	}
	if opts.Pdftotext {
		if p := (pdftotextMethod{}); p.Available() {
			methods = append(methods, p)
		}
	}
	return newExtractor(opts, log, methods...)
}

func newExtractor(opts Options, log *slog.Logger, methods ...method) *Extractor {
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = 1
	}
	return &Extractor{opts: opts, methods: methods, log: log}
}

// Methods lists the names of the configured methods in the order they run.
func (e *Extractor) Methods() []string {
	names := make([]string, 0, len(e.methods))
	for _, m := range e.methods {
		names = append(names, m.Name())
	}
	return names
}

// Extract reads a PDF from r. The reader libraries need random access, so the
// bytes are spooled to a temp file first.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, filename string) (*document.Document, error) {
	tmp, err := os.CreateTemp("", "pdfqa-upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := e.extract(ctx, tmpPath, filename)
	if extErr, ok := AsExtractionError(err); ok {
		extErr.Path = filename
	}
	return doc, err
}

// ExtractFile reads the PDF at path.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*document.Document, error) {
	return e.extract(ctx, path, filepath.Base(path))
}

func (e *Extractor) extract(ctx context.Context, path, filename string) (*document.Document, error) {
	log := e.log.With("file", filename)

	if _, err := os.Stat(path); err != nil {
		return nil, &ExtractionError{Reason: ReasonUnreadable, Path: filename, Err: err}
	}

	var (
		lastErr   error
		encrypted bool
		tooShort  bool
	)
	for _, m := range e.methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pages, err := m.Pages(ctx, path, e.opts.Password)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if errors.Is(err, errEncrypted) {
				encrypted = true
			}
			log.Warn("extraction method failed", "method", m.Name(), "error", err)
			lastErr = err
			continue
		}

		for i := range pages {
			pages[i] = CleanText(pages[i])
		}
		doc := document.New(titleFromFilename(filename), filename, m.Name(), pages)

		chars := utf8.RuneCountInString(doc.Text)
		if chars < e.opts.MinTextChars {
			log.Warn("extraction method produced too little text", "method", m.Name(), "chars", chars, "min", e.opts.MinTextChars)
			lastErr = fmt.Errorf("%s extracted %d characters, need %d", m.Name(), chars, e.opts.MinTextChars)
			tooShort = true
			continue
		}

		log.Info("extracted text", "method", m.Name(), "pages", doc.PageCount(), "chars", chars)
		return doc, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no extraction methods configured")
	}
	reason := ReasonUnreadable
	switch {
	case encrypted:
		reason = ReasonEncrypted
	case tooShort:
		reason = ReasonNoText
	}
	return nil, &ExtractionError{Reason: reason, Path: filename, Err: lastErr}
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
