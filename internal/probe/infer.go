// Package probe infers coarse column types from loaded tables.
//
// Inference is best-effort and never fails: a column that cannot be typed is
// "text". Missing cells are ignored; a column with no present cells is "empty".
package probe

import (
	"math"

	"cteview/internal/table"
)

// ColumnType is a coarse inferred type label.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeText    ColumnType = "text"
	TypeEmpty   ColumnType = "empty"
)

// Numeric reports whether values of this type can sit on a quantitative axis.
func (c ColumnType) Numeric() bool {
	return c == TypeInteger || c == TypeFloat
}

// Column is the inference result for one column.
type Column struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Present int        `json:"present"`
	Missing int        `json:"missing"`
}

// InferColumn infers the type of the cells at column index ci.
//
// Prefer more specific types: a column whose present cells are all whole
// numbers is "integer"; all numeric is "float"; anything else is "text".
func InferColumn(t *table.Table, ci int) Column {
	cols := t.Columns()
	out := Column{Name: cols[ci], Type: TypeEmpty}

	allInt := true
	allNum := true
	for i := 0; i < t.Len(); i++ {
		v := t.Value(i, ci)
		if v == nil {
			out.Missing++
			continue
		}
		out.Present++

		f, ok := table.Number(v)
		if !ok {
			allNum = false
			allInt = false
			continue
		}
		if allInt && (f != math.Trunc(f) || math.IsInf(f, 0)) {
			allInt = false
		}
	}

	switch {
	case out.Present == 0:
		out.Type = TypeEmpty
	case allInt:
		out.Type = TypeInteger
	case allNum:
		out.Type = TypeFloat
	default:
		out.Type = TypeText
	}
	return out
}

// Infer runs InferColumn over every column in table order.
func Infer(t *table.Table) []Column {
	n := len(t.Columns())
	out := make([]Column, n)
	for i := 0; i < n; i++ {
		out[i] = InferColumn(t, i)
	}
	return out
}
