// Package schema maps raw dataset column identifiers to display names and
// checks loaded tables against a per-dataset contract.
package schema

import (
	"fmt"
	"sort"

	"cteview/internal/table"
)

// Mapping is an immutable raw→display column name dictionary.
type Mapping struct {
	toDisplay map[string]string
	toRaw     map[string]string
}

// NewMapping copies m into a Mapping.
//
// Errors:
//   - two raw names mapping to the same display name (renaming would
//     produce duplicate columns)
//   - empty raw or display names
func NewMapping(m map[string]string) (Mapping, error) {
	out := Mapping{
		toDisplay: make(map[string]string, len(m)),
		toRaw:     make(map[string]string, len(m)),
	}

	raws := make([]string, 0, len(m))
	for raw := range m {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	for _, raw := range raws {
		disp := m[raw]
		if raw == "" || disp == "" {
			return Mapping{}, fmt.Errorf("schema: empty name in mapping %q→%q", raw, disp)
		}
		if prev, dup := out.toRaw[disp]; dup {
			return Mapping{}, fmt.Errorf("schema: %q and %q both map to %q", prev, raw, disp)
		}
		out.toDisplay[raw] = disp
		out.toRaw[disp] = raw
	}
	return out, nil
}

// MustMapping is NewMapping for fixed dictionaries.
func MustMapping(m map[string]string) Mapping {
	mp, err := NewMapping(m)
	if err != nil {
		panic(err)
	}
	return mp
}

// Display returns the display name for raw, or raw itself when unmapped.
func (m Mapping) Display(raw string) string {
	if d, ok := m.toDisplay[raw]; ok {
		return d
	}
	return raw
}

// Aliases returns every name a field may carry: its raw identifier and, if
// mapped, its display name. name may be given in either form.
func (m Mapping) Aliases(name string) []string {
	if d, ok := m.toDisplay[name]; ok {
		return []string{name, d}
	}
	if r, ok := m.toRaw[name]; ok {
		return []string{r, name}
	}
	return []string{name}
}

// Len returns the number of mapped columns.
func (m Mapping) Len() int { return len(m.toDisplay) }

// Rename returns a table whose mapped columns carry their display names.
// Unmapped columns pass through unchanged; mapping entries for columns the
// table does not have are ignored. Row count and order are preserved.
//
// Precondition: the mapping does not rename a column onto the name of another
// column already in t. If it does, the collision is reported as an error
// rather than producing duplicate columns.
func Rename(t *table.Table, m Mapping) (*table.Table, error) {
	cols := t.Columns()
	changed := false
	for i, c := range cols {
		if d := m.Display(c); d != c {
			cols[i] = d
			changed = true
		}
	}
	if !changed {
		return t, nil
	}
	nt, err := t.WithColumns(cols)
	if err != nil {
		return nil, fmt.Errorf("schema: rename: %w", err)
	}
	return nt, nil
}
