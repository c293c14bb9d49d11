// Package transformer derives stable row hashes used as dedupe keys when
// datasets are exported.
package transformer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cteview/internal/table"
)

// DefaultSeparator is the ASCII unit separator.
const DefaultSeparator = "\x1f"

// Hasher computes a SHA-256 over a row's canonical form.
//
// Canonicalization:
//   - components are joined by Separator in column order
//   - with IncludeFieldNames each component is "name=value"
//   - nil is a single NUL byte, so missing differs from ""
//   - floats use the shortest round-trip form; times are RFC3339Nano UTC
//
// The result is 64 lowercase hex characters.
type Hasher struct {
	Separator         string
	IncludeFieldNames bool
	TrimSpace         bool
}

// RowHash hashes row with the default Hasher (names included, no trimming).
func RowHash(columns []string, row []any) string {
	return Hasher{IncludeFieldNames: true}.Sum(columns, row)
}

// Sum hashes the values of row under columns. Missing trailing values hash
// as nil.
func (h Hasher) Sum(columns []string, row []any) string {
	sep := h.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	var b strings.Builder
	b.Grow(len(columns) * 20)
	for i, c := range columns {
		if i > 0 {
			b.WriteString(sep)
		}
		if h.IncludeFieldNames {
			b.WriteString(c)
			b.WriteByte('=')
		}
		var v any
		if i < len(row) {
			v = row[i]
		}
		appendCanonicalValue(&b, v, h.TrimSpace)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// WithHash returns t's rows with a trailing target column holding each
// row's hash. Rows with identical values get identical hashes.
func (h Hasher) WithHash(t *table.Table, target string) ([]string, [][]any) {
	src := t.Columns()
	columns := append(append(make([]string, 0, len(src)+1), src...), target)

	rows := make([][]any, 0, t.Len())
	for i := range t.Len() {
		r := t.Row(i)
		out := append(make([]any, 0, len(r)+1), r...)
		rows = append(rows, append(out, h.Sum(src, r)))
	}
	return columns, rows
}

func appendCanonicalValue(b *strings.Builder, v any, trimSpace bool) {
	switch t := v.(type) {
	case nil:
		b.WriteByte('\x00')

	case string:
		if trimSpace {
			t = strings.TrimSpace(t)
		}
		b.WriteString(t)

	case bool:
		b.WriteString(strconv.FormatBool(t))

	case int:
		b.WriteString(strconv.Itoa(t))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))

	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))

	case time.Time:
		tt := t
		if !tt.IsZero() {
			tt = tt.UTC()
		}
		b.WriteString(tt.Format(time.RFC3339Nano))

	default:
		b.WriteString(fmt.Sprint(t))
	}
}
