package storage

import (
	"fmt"
	"strings"
)

// Dialect holds the pieces of SQL text that differ between backends. The
// statement builders on it are shared.
type Dialect struct {
	// Quote quotes one identifier.
	Quote func(name string) string
	// Table quotes a possibly schema-qualified table name. Nil means Quote.
	Table func(name string) string
	// Placeholder renders the n-th bind parameter, counting from 1.
	Placeholder func(n int) string
	// ColumnType translates a dialect-neutral type. Nil keeps it as written.
	ColumnType func(typ string) string
}

// TableIdent quotes a table name.
func (d Dialect) TableIdent(name string) string {
	if d.Table != nil {
		return d.Table(name)
	}
	return d.Quote(name)
}

// IdentList quotes names, each prefixed with prefix, and joins them with ", ".
func (d Dialect) IdentList(prefix string, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = prefix + d.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// Definitions renders the column definitions of t followed by its UNIQUE
// constraints, ready to be joined into a CREATE TABLE body.
func (d Dialect) Definitions(t TableSpec) ([]string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("table name is empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("table %s: no columns", t.Name)
	}

	defs := make([]string, 0, len(t.Columns)+len(t.Constraints))
	for i, c := range t.Columns {
		name, typ := strings.TrimSpace(c.Name), strings.TrimSpace(c.Type)
		if name == "" || typ == "" {
			return nil, fmt.Errorf("table %s: column %d: name and type must be set", t.Name, i)
		}
		if d.ColumnType != nil {
			typ = d.ColumnType(typ)
		}
		def := d.Quote(name) + " " + typ
		if !c.IsNullable() {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	for _, con := range t.Constraints {
		if !strings.EqualFold(strings.TrimSpace(con.Kind), "unique") {
			return nil, fmt.Errorf("table %s: unsupported constraint kind %q", t.Name, con.Kind)
		}
		if len(con.Columns) == 0 {
			return nil, fmt.Errorf("table %s: unique constraint has no columns", t.Name)
		}
		defs = append(defs, "UNIQUE ("+d.IdentList("", con.Columns)+")")
	}
	return defs, nil
}

// WriteValues appends "(p1, p2), (p3, p4)" for rows to b and returns the
// bind arguments in the same order. Each row contributes its first width
// cells.
func (d Dialect) WriteValues(b *strings.Builder, width int, rows [][]any) []any {
	args := make([]any, 0, len(rows)*width)
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range width {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(len(args) + 1))
			args = append(args, row[j])
		}
		b.WriteByte(')')
	}
	return args
}

// ChunkRows splits rows so no statement binds more than maxParams
// parameters for width columns. Every chunk holds at least one row.
func ChunkRows(rows [][]any, width, maxParams int) [][][]any {
	per := max(1, maxParams/max(1, width))
	out := make([][][]any, 0, (len(rows)+per-1)/per)
	for start := 0; start < len(rows); start += per {
		out = append(out, rows[start:min(start+per, len(rows))])
	}
	return out
}
