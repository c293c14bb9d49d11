package storage

// Dialect-neutral column types. Backends translate them where their SQL
// differs.
const (
	TypeDouble = "double precision"
	TypeText   = "text"
	TypeHash   = "varchar(64)"
	TypeBigInt = "bigint"
)

type TableSpec struct {
	Name            string           `json:"name"`
	AutoCreateTable bool             `json:"auto_create_table"`
	Columns         []ColumnSpec     `json:"columns"`
	Constraints     []ConstraintSpec `json:"constraints,omitempty"`
	Load            LoadSpec         `json:"load"`
}

type ColumnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable *bool  `json:"nullable,omitempty"`
}

type ConstraintSpec struct {
	Kind    string   `json:"kind"` // "unique"
	Columns []string `json:"columns"`
}

type LoadSpec struct {
	// DedupeColumns makes inserts skip rows that collide on these columns.
	// A matching UNIQUE constraint must exist.
	DedupeColumns []string `json:"dedupe_columns,omitempty"`
}

// ColumnNames returns the table's column names in order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// IsNullable reports the column's nullability; unset means nullable.
func (c ColumnSpec) IsNullable() bool {
	return c.Nullable == nil || *c.Nullable
}

// Bool returns a pointer to b, for ColumnSpec.Nullable literals.
func Bool(b bool) *bool { return &b }
