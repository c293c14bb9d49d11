package schema

import (
	"fmt"
	"strings"

	"cteview/internal/probe"
	"cteview/internal/table"
)

// FieldType is the type a contract expects of a column.
type FieldType string

const (
	TypeNumeric FieldType = "numeric"
	TypeText    FieldType = "text"
	TypeAny     FieldType = "any"
)

// FieldSpec describes one expected column.
type FieldSpec struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Contract is the expected shape of one dataset after renaming.
type Contract struct {
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
}

// Report is the typed result of a single validation pass.
type Report struct {
	Contract string `json:"contract"`
	// Missing lists required fields absent from the table.
	Missing []string `json:"missing,omitempty"`
	// Absent lists optional fields absent from the table.
	Absent []string `json:"absent,omitempty"`
	// Mistyped lists present fields whose cells do not match the expected type.
	Mistyped []string `json:"mistyped,omitempty"`
}

// OK reports whether every required field is present and every present field
// has the expected type.
func (r Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Mistyped) == 0
}

func (r Report) String() string {
	if r.OK() && len(r.Absent) == 0 {
		return r.Contract + ": ok"
	}
	var parts []string
	if len(r.Missing) > 0 {
		parts = append(parts, "missing="+strings.Join(r.Missing, ","))
	}
	if len(r.Absent) > 0 {
		parts = append(parts, "absent="+strings.Join(r.Absent, ","))
	}
	if len(r.Mistyped) > 0 {
		parts = append(parts, "mistyped="+strings.Join(r.Mistyped, ","))
	}
	return fmt.Sprintf("%s: %s", r.Contract, strings.Join(parts, " "))
}

// Has reports whether field was found present (not missing, not absent).
func (r Report) Has(field string) bool {
	for _, m := range r.Missing {
		if m == field {
			return false
		}
	}
	for _, a := range r.Absent {
		if a == field {
			return false
		}
	}
	return true
}

// Validate checks t against c once. Type checks ignore missing cells; an
// all-missing column satisfies any type.
func (c Contract) Validate(t *table.Table) Report {
	rep := Report{Contract: c.Name}
	for _, f := range c.Fields {
		ci := t.Index(f.Name)
		if ci < 0 {
			if f.Required {
				rep.Missing = append(rep.Missing, f.Name)
			} else {
				rep.Absent = append(rep.Absent, f.Name)
			}
			continue
		}

		col := probe.InferColumn(t, ci)
		switch f.Type {
		case TypeNumeric:
			if col.Type == probe.TypeText {
				rep.Mistyped = append(rep.Mistyped, f.Name)
			}
		case TypeText, TypeAny:
			// Numeric-looking categories (e.g. district codes) are acceptable text.
		}
	}
	return rep
}
