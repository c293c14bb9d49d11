// Package table defines the in-memory Record Table shared by every pipeline
// stage.
//
// A Table is an ordered list of uniformly shaped rows. Each cell is one of:
//   - nil      (missing value)
//   - float64  (numeric value)
//   - string   (categorical value)
//
// Ownership contract:
//   - Tables are immutable after construction. Stages that narrow or rename a
//     table return a new *Table; the new table may share cell slices with its
//     parent, which is safe because nobody writes to them.
//   - Row returns a copy so callers cannot mutate shared storage by accident.
package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is a read-only Record Table.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New builds a Table from column names and positional rows.
//
// Errors:
//   - duplicate or empty column names
//   - a row whose length differs from len(columns)
func New(columns []string, rows [][]any) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("table: column %d has an empty name", i)
		}
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", c)
		}
		idx[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("table: row %d has %d cells, want %d", i, len(r), len(columns))
		}
	}

	cols := append([]string(nil), columns...)
	return &Table{columns: cols, index: idx, rows: rows}, nil
}

// MustNew is New for fixtures and literals known to be valid.
func MustNew(columns []string, rows [][]any) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column names in table order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Value returns the cell at (row, col). Out of range columns yield nil.
func (t *Table) Value(row, col int) any {
	if col < 0 || col >= len(t.columns) {
		return nil
	}
	return t.rows[row][col]
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

// Column returns a copy of every cell of the named column, or false if the
// column does not exist.
func (t *Table) Column(name string) ([]any, bool) {
	ci, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[ci]
	}
	return out, true
}

// Select returns a new table holding the rows at the given indices, in the
// given order. Cell storage is shared with t.
func (t *Table) Select(indices []int) *Table {
	rows := make([][]any, 0, len(indices))
	for _, i := range indices {
		rows = append(rows, t.rows[i])
	}
	return &Table{columns: t.columns, index: t.index, rows: rows}
}

// WithColumns returns a table with the same rows and new column names.
// len(columns) must equal len(t.Columns()).
func (t *Table) WithColumns(columns []string) (*Table, error) {
	if len(columns) != len(t.columns) {
		return nil, fmt.Errorf("table: got %d column names, want %d", len(columns), len(t.columns))
	}
	nt, err := New(columns, nil)
	if err != nil {
		return nil, err
	}
	nt.rows = t.rows
	return nt, nil
}

// Records returns the rows as column→value maps, for JSON encoding.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, 0, len(t.rows))
	for _, r := range t.rows {
		m := make(map[string]any, len(t.columns))
		for i, c := range t.columns {
			m[c] = r[i]
		}
		out = append(out, m)
	}
	return out
}

// Number converts a cell to float64. Missing and categorical cells report false.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// Format renders a cell as the string used for grouping and exact matching.
// Whole numbers print without a fractional part ("2021", not "2021.000000").
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// missingTokens are spellings that exports use for "no value".
var missingTokens = map[string]struct{}{
	"NA": {}, "N/A": {}, "n/a": {}, "#N/A": {}, "NaN": {}, "nan": {},
	"-NaN": {}, "null": {}, "NULL": {}, "None": {}, "<NA>": {},
}

// ParseCell converts raw text into a cell: "" and the usual NA spellings are
// missing, numeric text becomes float64, anything else stays a string.
// Thousands separators are accepted ("1,234"), since spreadsheet exports
// commonly carry them. Text that parses to NaN or an infinity ("inf", "NAN",
// "1e999") is missing too, so numeric cells are always finite.
func ParseCell(s string) any {
	if s == "" {
		return nil
	}
	if _, ok := missingTokens[s]; ok {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && strings.Contains(s, ",") && looksGrouped(s) {
		f, err = strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	}
	switch {
	case err == nil && finite(f):
		return f
	case err == nil, errors.Is(err, strconv.ErrRange) && math.IsInf(f, 0):
		return nil
	}
	return s
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// looksGrouped accepts "1,234" and "12,345.5" but not "1,2" or "a,b".
func looksGrouped(s string) bool {
	intPart := strings.TrimPrefix(s, "-")
	if i := strings.IndexByte(intPart, '.'); i >= 0 {
		intPart = intPart[:i]
	}
	groups := strings.Split(intPart, ",")
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
