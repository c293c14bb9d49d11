// Package projection narrows the employment projections table to one
// industry and to rows with complete year values, and shapes the result for a
// grouped year-comparison chart.
package projection

import (
	"errors"
	"fmt"

	"cteview/internal/aggregate"
	"cteview/internal/table"
)

// ErrNoData marks a filter that matched no complete rows. It is a rendering
// state, not a failure.
var ErrNoData = errors.New("no data found")

// Point is one (category, year, value) cell of the long-form expansion.
type Point struct {
	Category string  `json:"category"`
	Year     string  `json:"year"`
	Value    float64 `json:"value"`
}

// View is a Filtered Projection View.
type View struct {
	Field    string       `json:"field"`
	Category string       `json:"category"`
	Years    []string     `json:"years"`
	Rows     *table.Table `json:"-"`
	Long     []Point      `json:"long"`
}

// Empty reports whether no rows survived filtering.
func (v View) Empty() bool { return v.Rows.Len() == 0 }

// Filter describes the filter for user messages, e.g.
// "Industry Title = Construction".
func (v View) Filter() string {
	return fmt.Sprintf("%s = %s", v.Field, v.Category)
}

// FilterByCategory returns the rows whose field equals value exactly.
// Zero matches yield an empty table, not an error.
//
// Errors:
//   - *aggregate.MissingColumnError if field is absent.
func FilterByCategory(t *table.Table, field, value string) (*table.Table, error) {
	ci := t.Index(field)
	if ci < 0 {
		return nil, &aggregate.MissingColumnError{Column: field}
	}

	keep := make([]int, 0)
	for i := 0; i < t.Len(); i++ {
		v := t.Value(i, ci)
		if v == nil {
			continue
		}
		if table.Format(v) == value {
			keep = append(keep, i)
		}
	}
	return t.Select(keep), nil
}

// DropIncomplete keeps a row iff every required field has a value. A row
// missing any required field is dropped whole.
//
// Errors:
//   - *aggregate.MissingColumnError if a required field is not a column.
func DropIncomplete(t *table.Table, required ...string) (*table.Table, error) {
	idx := make([]int, 0, len(required))
	for _, f := range required {
		ci := t.Index(f)
		if ci < 0 {
			return nil, &aggregate.MissingColumnError{Column: f}
		}
		idx = append(idx, ci)
	}

	keep := make([]int, 0, t.Len())
rows:
	for i := 0; i < t.Len(); i++ {
		for _, ci := range idx {
			if t.Value(i, ci) == nil {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	return t.Select(keep), nil
}

// Categories returns the distinct values of field in first-seen order. Missing
// cells are skipped. An absent field yields nil.
func Categories(t *table.Table, field string) []string {
	ci := t.Index(field)
	if ci < 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < t.Len(); i++ {
		v := t.Value(i, ci)
		if v == nil {
			continue
		}
		s := table.Format(v)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Build filters t to field == value, drops rows missing any of years, and
// expands the survivors into long form (one point per row and year, rows
// first, years in the given order).
//
// When no rows survive, Build returns the empty View together with an error
// wrapping ErrNoData so callers can show a "no data" state.
func Build(t *table.Table, field, value string, years ...string) (View, error) {
	v := View{Field: field, Category: value, Years: append([]string(nil), years...)}

	sub, err := FilterByCategory(t, field, value)
	if err != nil {
		return v, err
	}
	sub, err = DropIncomplete(sub, years...)
	if err != nil {
		return v, err
	}
	v.Rows = sub

	if sub.Len() == 0 {
		v.Long = []Point{}
		return v, fmt.Errorf("%w for %s", ErrNoData, v.Filter())
	}

	ci := sub.Index(field)
	v.Long = make([]Point, 0, sub.Len()*len(years))
	for i := 0; i < sub.Len(); i++ {
		cat := table.Format(sub.Value(i, ci))
		for _, y := range years {
			f, ok := table.Number(sub.Value(i, sub.Index(y)))
			if !ok {
				// Present but non-numeric; keep the row, skip the bar.
				continue
			}
			v.Long = append(v.Long, Point{Category: cat, Year: y, Value: f})
		}
	}
	return v, nil
}
