package chart

import (
	"cteview/internal/probe"
	"cteview/internal/table"
)

// Column describes one column of a rendered table.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	// Type is "number" or "text".
	Type  string `json:"type"`
	Align string `json:"align"`
}

// TableData is a table ready for display. Cells keep their JSON types:
// numbers stay numbers and missing cells are null.
type TableData struct {
	Title   string   `json:"title"`
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Table renders t under title. Numeric columns are right-aligned.
func Table(title string, t *table.Table) TableData {
	cols := t.Columns()
	out := TableData{
		Title:   title,
		Columns: make([]Column, len(cols)),
		Rows:    make([][]any, 0, t.Len()),
	}
	for i, c := range cols {
		col := Column{Key: c, Label: c, Type: "text", Align: "left"}
		if probe.InferColumn(t, i).Type.Numeric() {
			col.Type, col.Align = "number", "right"
		}
		out.Columns[i] = col
	}
	for i := 0; i < t.Len(); i++ {
		out.Rows = append(out.Rows, t.Row(i))
	}
	return out
}
