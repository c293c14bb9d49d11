package xlsx

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cteview/internal/config"
)

// workbook builds an in-memory workbook whose first sheet holds cells.
func workbook(t *testing.T, sheet string, cells [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for r, row := range cells {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadTableProjectionsSheet(t *testing.T) {
	buf := workbook(t, "Projections", [][]any{
		{"Industry Title", 2021, 2030},
		{"Construction", 100, 120},
		{"Retail", 50},
		{},
		{"Utilities", nil, 7.5},
	})

	tbl, err := ReadTable(context.Background(), buf, "", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Industry Title", "2021", "2030"}, tbl.Columns())
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, []any{"Construction", 100.0, 120.0}, tbl.Row(0))
	assert.Equal(t, []any{"Retail", 50.0, nil}, tbl.Row(1))
	assert.Equal(t, []any{"Utilities", nil, 7.5}, tbl.Row(2))
}

func TestReadTableHeaderRowOption(t *testing.T) {
	buf := workbook(t, "Sheet1", [][]any{
		{"Employment Projections"},
		{"Industry Title", "2021"},
		{"Mining", 3},
	})

	tbl, err := ReadTable(context.Background(), buf, "Sheet1", config.Options{"header_row": 2.0})
	require.NoError(t, err)
	assert.Equal(t, []string{"Industry Title", "2021"}, tbl.Columns())
	assert.Equal(t, 1, tbl.Len())
}

func TestReadTableUnknownSheet(t *testing.T) {
	buf := workbook(t, "Sheet1", [][]any{{"a"}})
	_, err := ReadTable(context.Background(), buf, "Nope", nil)
	assert.Error(t, err)
}

func TestReadTableNotAWorkbook(t *testing.T) {
	_, err := ReadTable(context.Background(), bytes.NewBufferString("a,b\n1,2\n"), "", nil)
	assert.Error(t, err)
}
