package pdftext

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/dgallion1/pdfqa/internal/document"
)

var errEmptyText = errors.New("text is empty")

// ParseText builds a single-page document from plain text. It is the manual
// entry path for PDFs without a text layer.
func ParseText(r io.Reader, filename string) (*document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sb strings.Builder
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, &ExtractionError{Reason: ReasonUnreadable, Path: filename, Err: err}
	}

	text := CleanText(sb.String())
	if text == "" {
		return nil, &ExtractionError{Reason: ReasonNoText, Path: filename, Err: errEmptyText}
	}
	return document.New(titleFromFilename(filename), filename, "manual", []string{text}), nil
}
