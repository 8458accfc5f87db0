// Package export writes run answers as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/pdfqa/internal/answer"
)

// Header is the CSV column layout.
var Header = []string{"question_id", "question_text", "answer_text"}

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx"; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Write writes answers in format f.
func Write(w io.Writer, f Format, answers []answer.Answer) error {
	if f == FormatXLSX {
		return WriteXLSX(w, answers)
	}
	return WriteCSV(w, answers)
}

// WriteCSV writes the header and one row per answer.
func WriteCSV(w io.Writer, answers []answer.Answer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, a := range answers {
		if err := cw.Write([]string{a.QuestionID, a.QuestionText, a.CellText()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
