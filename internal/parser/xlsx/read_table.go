// Package xlsx reads one worksheet of an Excel workbook into a Record Table.
package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"cteview/internal/config"
	"cteview/internal/parser"
	"cteview/internal/table"
)

// ReadTable reads sheet (first sheet when empty) from the workbook in src.
//
// Options:
//   - header_row (int, default 1): 1-based row holding the column names;
//     rows above it are skipped
//   - trim_space (bool, default true)
//   - header_map (object): rename header names before use
//
// Cells are read as raw values so numbers are not subject to the sheet's
// display format. Fully empty rows are skipped.
func ReadTable(ctx context.Context, src io.Reader, sheet string, opt config.Options) (*table.Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	headerRow := opt.Int("header_row", 1)
	if headerRow < 1 {
		headerRow = 1
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("sheet %q: no header row %d", sheet, headerRow)
	}

	columns := parser.Headers(rows[headerRow-1], opt.StringMap("header_map"))
	trim := opt.Bool("trim_space", true)

	out := make([][]any, 0, len(rows)-headerRow)
	for _, rec := range rows[headerRow:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blank(rec) {
			continue
		}
		out = append(out, parser.Row(rec, len(columns), trim))
	}
	return table.New(columns, out)
}

func blank(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}
