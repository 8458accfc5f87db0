package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/pdfqa/internal/answer"
)

func sampleAnswers() []answer.Answer {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return []answer.Answer{
		{QuestionID: "Q1", QuestionText: "Effective date?", Text: "2024-01-01", Status: answer.StatusAnswered, PageStart: 2, PageEnd: 2, SourceChunks: []int{0}, Attempts: 1, AnsweredAt: at},
		{QuestionID: "Q2", QuestionText: "Governing law?", Status: answer.StatusFailed, Attempts: 4, Error: "gave up after 4 attempts"},
		{QuestionID: "Q3", QuestionText: `Say "hi", please`, Status: answer.StatusNoAnswer, Attempts: 1},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleAnswers()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"question_id", "question_text", "answer_text"},
		{"Q1", "Effective date?", "2024-01-01"},
		{"Q2", "Governing law?", "failed"},
		{"Q3", `Say "hi", please`, "no answer found"},
	}, rows)
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	require.Equal(t, "question_id,question_text,answer_text\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleAnswers()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{AnswersSheet, DetailsSheet}, f.GetSheetList())

	rows, err := f.GetRows(AnswersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, Header, rows[0])
	require.Equal(t, []string{"Q1", "Effective date?", "2024-01-01"}, rows[1])
	require.Equal(t, []string{"Q2", "Governing law?", "failed"}, rows[2])

	details, err := f.GetRows(DetailsSheet)
	require.NoError(t, err)
	require.Len(t, details, 4)
	require.Equal(t, "answered", details[1][1])
	require.Equal(t, "2", details[1][2])
	require.Equal(t, "2024-03-01 09:30:00", details[1][7])
	require.Equal(t, "failed", details[2][1])
	require.Equal(t, "4", details[2][4])
	require.Equal(t, "gave up after 4 attempts", details[2][6])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, f)

	f, err = ParseFormat("XLSX")
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, f)
	require.Contains(t, f.ContentType(), "spreadsheetml")

	_, err = ParseFormat("pdf")
	require.Error(t, err)
}
