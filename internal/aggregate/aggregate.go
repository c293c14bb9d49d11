// Package aggregate groups a table by a categorical key, sums a measure per
// group and ranks the groups.
package aggregate

import (
	"fmt"
	"slices"
	"sort"

	"cteview/internal/table"
)

// DefaultBottomN is the size of the bottom sub-ranking shown next to the full
// county ranking.
const DefaultBottomN = 10

// MissingColumnError reports a field the pipeline needs but the table lacks.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s not found in the dataset", e.Column)
}

// Entry is one ranked group.
type Entry struct {
	Group string  `json:"group"`
	Value float64 `json:"value"`
}

// Ranking is a list of groups ordered by Value, descending.
type Ranking []Entry

// Total returns the sum of every entry's value.
func (r Ranking) Total() float64 {
	var s float64
	for _, e := range r {
		s += e.Value
	}
	return s
}

// Groups returns the group labels in ranking order.
func (r Ranking) Groups() []string {
	out := make([]string, len(r))
	for i, e := range r {
		out[i] = e.Group
	}
	return out
}


// RankBySum groups rows by groupField, sums measureField per group and ranks
// the groups by sum, descending.
//
// The ranking is a stable ascending sort read backwards, so the tail used by
// Bottom lists tied groups in first-seen order from the smallest value up,
// while the head lists them in reverse first-seen order.
//
// Rows are never dropped. A missing group key forms the "" group; missing or
// non-numeric measure cells contribute 0. Hence Ranking.Total equals the sum of
// the numeric measure cells of t.
//
// Errors:
//   - *MissingColumnError if either field is absent (group field checked first).
func RankBySum(t *table.Table, groupField, measureField string) (Ranking, error) {
	gi := t.Index(groupField)
	if gi < 0 {
		return nil, &MissingColumnError{Column: groupField}
	}
	mi := t.Index(measureField)
	if mi < 0 {
		return nil, &MissingColumnError{Column: measureField}
	}

	pos := make(map[string]int)
	out := make(Ranking, 0)
	for i := 0; i < t.Len(); i++ {
		key := table.Format(t.Value(i, gi))
		p, seen := pos[key]
		if !seen {
			p = len(out)
			pos[key] = p
			out = append(out, Entry{Group: key})
		}
		if v, ok := table.Number(t.Value(i, mi)); ok {
			out[p].Value += v
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Value < out[b].Value
	})
	slices.Reverse(out)
	return out, nil
}

// Bottom returns the last n entries of r, in r's order: the n groups with the
// smallest values, ending with the smallest. If r has fewer than n entries the
// whole ranking is returned; n <= 0 yields an empty ranking.
//
// The result is a copy; r is not modified.
func Bottom(r Ranking, n int) Ranking {
	if n <= 0 {
		return Ranking{}
	}
	if n > len(r) {
		n = len(r)
	}
	return append(Ranking(nil), r[len(r)-n:]...)
}
