package export

import (
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/pdfqa/internal/answer"
)

const (
	AnswersSheet = "Answers"
	DetailsSheet = "Details"
)

var detailsHeader = []string{"question_id", "status", "pages", "source_chunks", "attempts", "cached", "error", "answered_at"}

// WriteXLSX writes a workbook with the CSV columns on the Answers sheet and
// per-question status on the Details sheet.
func WriteXLSX(w io.Writer, answers []answer.Answer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AnswersSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(DetailsSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}

	if err := writeRow(f, AnswersSheet, 1, toAny(Header)); err != nil {
		return err
	}
	if err := writeRow(f, DetailsSheet, 1, toAny(detailsHeader)); err != nil {
		return err
	}
	for i, a := range answers {
		row := i + 2
		if err := writeRow(f, AnswersSheet, row, []any{a.QuestionID, a.QuestionText, a.CellText()}); err != nil {
			return err
		}
		answeredAt := ""
		if !a.AnsweredAt.IsZero() {
			answeredAt = a.AnsweredAt.Format("2006-01-02 15:04:05")
		}
		details := []any{a.QuestionID, string(a.Status), a.Pages(), joinInts(a.SourceChunks), a.Attempts, a.Cached, a.Error, answeredAt}
		if err := writeRow(f, DetailsSheet, row, details); err != nil {
			return err
		}
	}

	for _, sheet := range []string{AnswersSheet, DetailsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(AnswersSheet, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(AnswersSheet, "B", "C", 60); err != nil {
		return err
	}
	if len(answers) > 0 {
		last, err := excelize.CoordinatesToCellName(3, len(answers)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(AnswersSheet, "B2", last, wrap); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(DetailsSheet, "G", "G", 50); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func joinInts(v []int) string {
	s := ""
	for i, n := range v {
		if i > 0 {
			s += ","
		}
		s += strconv.Itoa(n)
	}
	return s
}
