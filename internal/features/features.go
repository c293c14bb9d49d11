// Package features derives the user-selectable numeric fields of a table.
package features

import (
	"cteview/internal/probe"
	"cteview/internal/table"
)

// NumericFeatures returns, in table order, the columns whose present cells
// are all numeric, excluding any column named in exclude (exact match).
// Columns with no present cells are not selectable.
//
// An empty result is not an error; callers disable or stub dependent UI.
func NumericFeatures(t *table.Table, exclude ...string) []string {
	deny := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		deny[e] = struct{}{}
	}

	var out []string
	for i, c := range t.Columns() {
		if _, skip := deny[c]; skip {
			continue
		}
		if probe.InferColumn(t, i).Type.Numeric() {
			out = append(out, c)
		}
	}
	return out
}

// Pick returns want if it is one of features, otherwise the first feature.
// It returns "" when features is empty.
func Pick(features []string, want string) string {
	for _, f := range features {
		if f == want {
			return f
		}
	}
	if len(features) == 0 {
		return ""
	}
	return features[0]
}
