package json

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cteview/internal/config"
)

func read(t *testing.T, in string, opt config.Options) ([]string, [][]any) {
	t.Helper()
	tbl, err := ReadTable(context.Background(), strings.NewReader(in), opt)
	require.NoError(t, err)
	var rows [][]any
	for i := 0; i < tbl.Len(); i++ {
		rows = append(rows, tbl.Row(i))
	}
	return tbl.Columns(), rows
}

func TestReadTableRootArray(t *testing.T) {
	cols, rows := read(t, `[
		{"county":" Wake ","year":2022,"clusters":12},
		null,
		{"year":2023,"county":"Durham","clusters":"NA","note":"late"}
	]`, nil)

	assert.Equal(t, []string{"county", "year", "clusters", "note"}, cols)
	assert.Equal(t, [][]any{
		{"Wake", 2022.0, 12.0, nil},
		{"Durham", 2023.0, nil, "late"},
	}, rows)
}

func TestReadTableEnvelopeSkipsOtherFields(t *testing.T) {
	cols, rows := read(t, `{"meta":{"n":2},"data":[{"a":1},{"a":2}],"links":{"next":null}}`, nil)

	assert.Equal(t, []string{"a"}, cols)
	assert.Equal(t, [][]any{{1.0}, {2.0}}, rows)
}

func TestReadTableNonFiniteValuesAreMissing(t *testing.T) {
	_, rows := read(t, `[{"a":1e999,"b":"inf","c":"-Infinity","d":-2.5}]`, nil)

	assert.Equal(t, [][]any{{nil, nil, nil, -2.5}}, rows)
}

func TestReadTableSingleObjectAndTrailingLines(t *testing.T) {
	cols, rows := read(t, "{\"a\":1,\"b\":true}\n{\"a\":2,\"c\":{\"x\":1}}\n", nil)

	assert.Equal(t, []string{"a", "b", "c"}, cols)
	assert.Equal(t, [][]any{
		{1.0, "true", nil},
		{2.0, nil, `{"x":1}`},
	}, rows)
}

func TestReadTableArraysAndHeaderMap(t *testing.T) {
	opt := config.Options{
		"array_join_separator": "|",
		"header_map":           map[string]any{"ind": "Industry Title"},
	}
	cols, rows := read(t, `[{"ind":"Construction","tags":["a","b"],"nums":[1,2]}]`, opt)

	assert.Equal(t, []string{"Industry Title", "tags", "nums"}, cols)
	assert.Equal(t, [][]any{{"Construction", "a|b", "[1,2]"}}, rows)
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "scalar root", in: `42`, want: "unsupported root token"},
		{name: "non-object element", in: `[{"a":1}, 2]`, want: "element 1 is not an object"},
		{name: "truncated", in: `[{"a":1}`, want: "json:"},
		{name: "trailing scalar", in: `{"a":1} 7`, want: "trailing value is not an object"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadTable(context.Background(), strings.NewReader(tc.in), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestReadTableEmpty(t *testing.T) {
	for _, in := range []string{"", "[]"} {
		_, err := ReadTable(context.Background(), strings.NewReader(in), nil)
		assert.ErrorIs(t, err, ErrNoRecords, "input %q", in)
	}
}

func TestReadTableCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadTable(ctx, strings.NewReader(`[{"a":1}]`), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
