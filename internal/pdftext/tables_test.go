package pdftext

import (
	"reflect"
	"testing"

	pdflib "github.com/ledongthuc/pdf"
)

func row(y int64, items ...pdflib.Text) *pdflib.Row {
	return &pdflib.Row{Position: y, Content: pdflib.TextHorizontal(items)}
}

func at(x float64, s string) pdflib.Text {
	return pdflib.Text{X: x, S: s}
}

func TestRowCells(t *testing.T) {
	tests := []struct {
		name  string
		items []pdflib.Text
		want  []string
	}{
		{"columns", []pdflib.Text{at(72, "Item"), at(250, "Qty"), at(400, "Price")}, []string{"Item", "Qty", "Price"}},
		{"pieces at one position", []pdflib.Text{at(72, "Pipe "), at(72, "liner"), at(250, "12")}, []string{"Pipe liner", "12"}},
		{"words close together", []pdflib.Text{at(72, "Hello"), at(101, "world")}, []string{"Hello world"}},
		{"glyphs placed one by one", []pdflib.Text{at(72, "A"), at(77, "B"), at(82, "C")}, []string{"ABC"}},
		{"empty runs ignored", []pdflib.Text{at(72, ""), at(72, "Total"), at(300, " "), at(400, "$9")}, []string{"Total", "$9"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := rowCells(tc.items); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("rowCells = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFindTables(t *testing.T) {
	rows := pdflib.Rows{
		row(750, at(72, "Bid schedule")),
		row(720, at(72, "Item"), at(250, "Qty"), at(400, "Price")),
		row(705, at(72, "Pipe liner"), at(250, "12"), at(400, "$4,500")),
		row(680, at(72, "Prices include all taxes and fees.")),
		row(650, at(72, "Lone"), at(250, "row")),
		row(630, at(72, "Signed by the contractor.")),
		nil,
	}

	tables := findTables(rows)
	want := [][][]string{{
		{"Item", "Qty", "Price"},
		{"Pipe liner", "12", "$4,500"},
	}}
	if !reflect.DeepEqual(tables, want) {
		t.Fatalf("findTables = %q, want %q", tables, want)
	}

	got := renderTables(2, tables)
	wantText := "\n--- TABLES ON PAGE 2 ---\n\nTable 1:\nItem | Qty | Price\nPipe liner | 12 | $4,500\n"
	if got != wantText {
		t.Errorf("renderTables = %q, want %q", got, wantText)
	}
}

func TestRenderTables_NoneFound(t *testing.T) {
	if got := renderTables(1, findTables(pdflib.Rows{row(700, at(72, "Just prose."))})); got != "" {
		t.Errorf("expected no table text, got %q", got)
	}
}
