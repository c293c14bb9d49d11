package csv

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cteview/internal/config"
)

func src(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

func TestReadTableParsesCells(t *testing.T) {
	in := "\uFEFFyear, county ,unique_clusters,note\n" +
		"2022,Wake,12,\n" +
		"2022, Durham ,NA,ok\n" +
		"2023,Orange,\"1,234\",x\n"

	tbl, err := ReadTable(context.Background(), src(in), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"year", "county", "unique_clusters", "note"}, tbl.Columns())
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, []any{2022.0, "Wake", 12.0, nil}, tbl.Row(0))
	assert.Equal(t, []any{2022.0, "Durham", nil, "ok"}, tbl.Row(1))
	assert.Equal(t, 1234.0, tbl.Value(2, 2))
}

func TestReadTableHeaderMapAndDuplicates(t *testing.T) {
	opt := config.Options{"header_map": map[string]any{"cnty": "county"}}
	tbl, err := ReadTable(context.Background(), src("cnty,a,a,\n1,2,3,4\n"), opt, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"county", "a", "a.1", "Unnamed: 3"}, tbl.Columns())
}

func TestReadTableShortRowsPadAndLongRowsTruncate(t *testing.T) {
	tbl, err := ReadTable(context.Background(), src("a,b,c\n1\n1,2,3,4\n"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, nil, nil}, tbl.Row(0))
	assert.Equal(t, []any{1.0, 2.0, 3.0}, tbl.Row(1))
}

func TestReadTableSemicolonAndNoTrim(t *testing.T) {
	opt := config.Options{"comma": ";", "trim_space": false}
	tbl, err := ReadTable(context.Background(), src("a;b\n x ;2\n"), opt, nil)
	require.NoError(t, err)
	assert.Equal(t, " x ", tbl.Value(0, 0))
}

func TestReadTableReportsBadRecordsAndContinues(t *testing.T) {
	var lines []int
	tbl, err := ReadTable(context.Background(), src("a,b\nx\"y,1\n3,4\n"), nil, func(line int, err error) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, lines)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, []any{3.0, 4.0}, tbl.Row(0))
}

func TestReadTableEmptyInput(t *testing.T) {
	_, err := ReadTable(context.Background(), src(""), nil, nil)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestStreamRowsHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := StreamRows(ctx, src("a\n1\n2\n"), nil, func([]string, []any) error { return nil }, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
