// Package csv reads delimited text into a Record Table.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"cteview/internal/config"
	"cteview/internal/parser"
	"cteview/internal/table"
)

// ErrNoHeader is returned for an input without a header row.
var ErrNoHeader = errors.New("csv: missing header row")

// StreamRows reads src and calls emit once per data row, in file order.
//
// Options:
//   - comma (string, default ","): field delimiter
//   - trim_space (bool, default true): trim edge whitespace in cells
//   - lazy_quotes (bool, default false): tolerate bare quotes
//   - header_map (object): rename header names before use
//
// Malformed records are reported to onErr (when set) and skipped; the scan
// continues. The header is always required. src is closed on return.
func StreamRows(
	ctx context.Context,
	src io.ReadCloser,
	opt config.Options,
	emit func(columns []string, row []any) error,
	onErr func(line int, err error),
) ([]string, error) {
	defer src.Close()

	trim := opt.Bool("trim_space", true)

	cr := csv.NewReader(src)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1

	line := 1
	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		if onErr != nil {
			onErr(line, fmt.Errorf("read header: %w", err))
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := parser.Headers(hdr, opt.StringMap("header_map"))

	for {
		select {
		case <-ctx.Done():
			return columns, ctx.Err()
		default:
		}

		line++
		rec, err := cr.Read()
		if err == io.EOF {
			return columns, nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}
		if err := emit(columns, parser.Row(rec, len(columns), trim)); err != nil {
			return columns, err
		}
	}
}

// ReadTable reads the whole of src into a Table.
func ReadTable(ctx context.Context, src io.ReadCloser, opt config.Options, onErr func(line int, err error)) (*table.Table, error) {
	var rows [][]any
	columns, err := StreamRows(ctx, src, opt, func(_ []string, row []any) error {
		rows = append(rows, row)
		return nil
	}, onErr)
	if err != nil {
		return nil, err
	}
	return table.New(columns, rows)
}
