// Package parser holds the header and cell rules shared by the csv, xlsx and
// html readers, so every source kind produces the same Record Table shape.
package parser

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"cteview/internal/table"
)

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace. It
// lets hot loops skip strings.TrimSpace for the common clean value.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// Headers cleans a raw header row into unique column names.
//
// Rules, in order:
//   - a leading UTF-8 BOM on the first name is dropped
//   - names are NFC-normalised and trimmed
//   - headerMap renames exact matches
//   - an empty name becomes "Unnamed: <i>"
//   - a repeated name gets ".1", ".2", ... appended
func Headers(raw []string, headerMap map[string]string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		h = norm.NFC.String(h)
		if HasEdgeSpace(h) {
			h = strings.TrimSpace(h)
		}
		if mapped, ok := headerMap[h]; ok {
			h = mapped
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// Cell converts one raw field into a table cell. Text is NFC-normalised and,
// when trim is set, stripped of edge whitespace before table.ParseCell.
func Cell(s string, trim bool) any {
	if !norm.NFC.IsNormalString(s) {
		s = norm.NFC.String(s)
	}
	if trim && HasEdgeSpace(s) {
		s = strings.TrimSpace(s)
	}
	return table.ParseCell(s)
}

// Row converts a raw record to width cells. Short records are padded with
// missing cells; extra fields are dropped.
func Row(rec []string, width int, trim bool) []any {
	row := make([]any, width)
	for i := 0; i < width && i < len(rec); i++ {
		row[i] = Cell(rec[i], trim)
	}
	return row
}
