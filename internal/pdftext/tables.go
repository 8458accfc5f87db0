package pdftext

import (
	"fmt"
	"strings"
	"unicode/utf8"

	pdflib "github.com/ledongthuc/pdf"
)

// The reader reports no glyph widths, so the end of a text run is estimated
// from its rune count. A run that starts more than cellGap points past the
// previous run's estimated end begins a new cell.
const (
	glyphWidth = 5.0
	cellGap    = 12.0
)

// findTables returns every run of two or more consecutive rows that split
// into at least two cells.
func findTables(rows pdflib.Rows) [][][]string {
	var tables [][][]string
	var current [][]string
	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
	}
	for _, row := range rows {
		if row == nil {
			continue
		}
		cells := rowCells(row.Content)
		if len(cells) < 2 {
			flush()
			continue
		}
		current = append(current, cells)
	}
	flush()
	return tables
}

// rowCells joins the text runs of one row into cells. Runs sharing an X
// position are pieces of one positioned string and are concatenated as is.
func rowCells(items pdflib.TextHorizontal) []string {
	var cells []string
	var cell strings.Builder
	flush := func() {
		if s := strings.Join(strings.Fields(cell.String()), " "); s != "" {
			cells = append(cells, s)
		}
		cell.Reset()
	}

	started := false
	var x, end float64
	for _, t := range items {
		if t.S == "" {
			continue
		}
		switch {
		case !started:
			started = true
		case t.X == x:
		case t.X-end > cellGap:
			flush()
		case t.X-end > glyphWidth/2:
			cell.WriteByte(' ')
		}
		if t.X != x || cell.Len() == 0 {
			x, end = t.X, t.X
		}
		cell.WriteString(t.S)
		end += float64(utf8.RuneCountInString(t.S)) * glyphWidth
	}
	flush()
	return cells
}

// renderTables formats the tables found on a page as pipe-separated rows
// under a header naming the page.
func renderTables(page int, tables [][][]string) string {
	if len(tables) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n--- TABLES ON PAGE %d ---\n", page)
	for i, table := range tables {
		fmt.Fprintf(&b, "\nTable %d:\n", i+1)
		for _, row := range table {
			b.WriteString(strings.Join(row, " | "))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
