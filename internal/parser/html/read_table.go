// Package html reads an HTML <table> into a Record Table. Published
// projection pages carry the same rows as the workbook export.
package html

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cteview/internal/config"
	"cteview/internal/parser"
	"cteview/internal/table"
)

// ReadTable parses src and reads the first element matching selector
// (default "table").
//
// The header is the first row made of <th> cells, or the first row when the
// table has no <th>. Each following <tr> is a data row; a cell with colspan
// fills that many columns (at most 1000) with its text.
//
// Options: trim_space (default true), header_map.
func ReadTable(ctx context.Context, src io.Reader, selector string, opt config.Options) (*table.Table, error) {
	doc, err := goquery.NewDocumentFromReader(src)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if selector == "" {
		selector = "table"
	}

	tbl := doc.Find(selector).First()
	if tbl.Length() == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}

	var raw [][]string
	headerAt := -1
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if goquery.NodeName(tbl) == "table" && tr.Closest("table").Get(0) != tbl.Get(0) {
			return // nested table
		}
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}
		if headerAt < 0 && tr.ChildrenFiltered("th").Length() > 0 {
			headerAt = len(raw)
		}
		raw = append(raw, rowText(cells))
	})
	if len(raw) == 0 {
		return nil, fmt.Errorf("table %q has no rows", selector)
	}
	if headerAt < 0 {
		headerAt = 0
	}

	columns := parser.Headers(raw[headerAt], opt.StringMap("header_map"))
	trim := opt.Bool("trim_space", true)

	rows := make([][]any, 0, len(raw)-headerAt-1)
	for _, rec := range raw[headerAt+1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows = append(rows, parser.Row(rec, len(columns), trim))
	}
	return table.New(columns, rows)
}

// maxColspan is the largest colspan browsers honour.
const maxColspan = 1000

func rowText(cells *goquery.Selection) []string {
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		text := strings.Join(strings.Fields(c.Text()), " ")
		span := 1
		if v, ok := c.Attr("colspan"); ok {
			if _, err := fmt.Sscanf(v, "%d", &span); err != nil || span < 1 {
				span = 1
			}
			span = min(span, maxColspan)
		}
		for range span {
			out = append(out, text)
		}
	})
	return out
}

// DebugPrintSelector prints either the outer HTML or the text of every match
// for selector, each followed by a blank line.
func DebugPrintSelector(w io.Writer, src io.Reader, selector string, textOnly bool) error {
	doc, err := goquery.NewDocumentFromReader(src)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if textOnly {
			fmt.Fprintln(w, strings.TrimSpace(s.Text()))
			fmt.Fprintln(w)
			return
		}
		out, err := goquery.OuterHtml(s)
		if err != nil {
			out, _ = s.Html()
		}
		fmt.Fprintln(w, out)
		fmt.Fprintln(w)
	})
	return nil
}
