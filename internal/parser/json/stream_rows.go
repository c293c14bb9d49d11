// Package json reads JSON records into a Record Table.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cteview/internal/config"
	"cteview/internal/parser"
	"cteview/internal/table"
)

// ErrNoRecords is returned when the input holds no object at all.
var ErrNoRecords = errors.New("json: no records")

// object is one decoded record with its keys in document order.
type object struct {
	keys []string
	vals map[string]any
}

// StreamObjects decodes r and calls emit once per record object.
//
// Accepted shapes:
//   - a root array of objects, streamed element by element
//   - a root object whose first array-valued field holds the records
//     (envelope); the other fields are skipped
//   - a single root object, emitted as one record
//
// Objects following the root value (JSON Lines) are emitted too.
func StreamObjects(ctx context.Context, r io.Reader, emit func(o object) error) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("json: read first token: %w", err)
	}

	d, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("json: unsupported root token %T (want object or array)", tok)
	}
	switch d {
	case '[':
		if err := streamArray(ctx, dec, emit); err != nil {
			return err
		}
		if err := expectDelim(dec, ']'); err != nil {
			return err
		}
	case '{':
		single, streamed, err := streamEnvelopeOrSingle(ctx, dec, emit)
		if err != nil {
			return err
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
		if !streamed {
			if err := emit(single); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("json: unsupported root delimiter %q", d)
	}
	return streamTrailing(ctx, dec, emit)
}

func streamTrailing(ctx context.Context, dec *json.Decoder, emit func(object) error) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("json: decode trailing object: %w", err)
		}
		if tok != json.Delim('{') {
			return fmt.Errorf("json: trailing value is not an object (got %v)", tok)
		}
		o, err := readObject(dec)
		if err != nil {
			return err
		}
		if err := emit(o); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// streamArray emits the elements of an array whose '[' was consumed. null
// elements are skipped; any other non-object element is an error.
func streamArray(ctx context.Context, dec *json.Decoder, emit func(object) error) error {
	for i := 0; dec.More(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: decode element %d: %w", i, err)
		}
		if tok == nil {
			continue
		}
		if tok != json.Delim('{') {
			return fmt.Errorf("json: element %d is not an object (got %v)", i, tok)
		}
		o, err := readObject(dec)
		if err != nil {
			return err
		}
		if err := emit(o); err != nil {
			return err
		}
	}
	return nil
}

// streamEnvelopeOrSingle walks a root object whose '{' was consumed.
func streamEnvelopeOrSingle(ctx context.Context, dec *json.Decoder, emit func(object) error) (object, bool, error) {
	single := object{vals: map[string]any{}}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return object{}, false, err
		}
		tok, err := dec.Token()
		if err != nil {
			return object{}, false, fmt.Errorf("json: read value of %q: %w", key, err)
		}

		if tok == json.Delim('[') {
			if err := streamArray(ctx, dec, emit); err != nil {
				return object{}, false, err
			}
			if err := expectDelim(dec, ']'); err != nil {
				return object{}, false, err
			}
			for dec.More() {
				if _, err := readKey(dec); err != nil {
					return object{}, true, err
				}
				var skip json.RawMessage
				if err := dec.Decode(&skip); err != nil {
					return object{}, true, fmt.Errorf("json: skip envelope field: %w", err)
				}
			}
			return object{}, true, nil
		}

		v, err := materialize(dec, tok)
		if err != nil {
			return object{}, false, err
		}
		single.keys = append(single.keys, key)
		single.vals[key] = v
	}
	return single, false, nil
}

// readObject reads the members of an object whose '{' was consumed, up to
// and including the closing '}'.
func readObject(dec *json.Decoder) (object, error) {
	o := object{vals: map[string]any{}}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return object{}, err
		}
		tok, err := dec.Token()
		if err != nil {
			return object{}, fmt.Errorf("json: read value of %q: %w", key, err)
		}
		v, err := materialize(dec, tok)
		if err != nil {
			return object{}, err
		}
		if _, dup := o.vals[key]; !dup {
			o.keys = append(o.keys, key)
		}
		o.vals[key] = v
	}
	return o, expectDelim(dec, '}')
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("json: read object key: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("json: object key not a string (got %T)", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: read %q: %w", want, err)
	}
	if tok != want {
		return fmt.Errorf("json: expected %q, got %v", want, tok)
	}
	return nil
}

// materialize builds the Go value starting at tok. Nested objects become
// map[string]any and arrays []any.
func materialize(dec *json.Decoder, tok json.Token) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		o, err := readObject(dec)
		if err != nil {
			return nil, err
		}
		return o.vals, nil
	case '[':
		var arr []any
		for dec.More() {
			t, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("json: read array value: %w", err)
			}
			v, err := materialize(dec, t)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, expectDelim(dec, ']')
	default:
		return nil, fmt.Errorf("json: unexpected delimiter %q", d)
	}
}

// ReadTable reads every record of r into a Table. Columns are the record
// keys in first-seen order; a key absent from a record is a missing cell.
//
// Options:
//   - trim_space (bool, default true): trim edge whitespace in string cells
//   - header_map (object): rename keys before use
//   - array_join_separator (string, default ","): joins arrays of strings
func ReadTable(ctx context.Context, r io.Reader, opt config.Options) (*table.Table, error) {
	trim := opt.Bool("trim_space", true)
	sep := opt.String("array_join_separator", ",")
	if sep == "" {
		sep = ","
	}

	var (
		keys    []string
		index   = map[string]int{}
		records []object
	)
	err := StreamObjects(ctx, r, func(o object) error {
		for _, k := range o.keys {
			if _, ok := index[k]; !ok {
				index[k] = len(keys)
				keys = append(keys, k)
			}
		}
		records = append(records, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	columns := parser.Headers(keys, opt.StringMap("header_map"))
	rows := make([][]any, len(records))
	for i, o := range records {
		row := make([]any, len(keys))
		for k, v := range o.vals {
			row[index[k]] = cell(v, trim, sep)
		}
		rows[i] = row
	}
	return table.New(columns, rows)
}

// cell converts a decoded JSON value to a table cell. Arrays of strings are
// joined with sep; other composite values keep their JSON text.
func cell(v any, trim bool, sep string) any {
	switch t := v.(type) {
	case nil:
		return nil
	case json.Number:
		return table.ParseCell(t.String())
	case string:
		return parser.Cell(t, trim)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		ss := make([]string, 0, len(t))
		for _, it := range t {
			if it == nil {
				continue
			}
			s, ok := it.(string)
			if !ok {
				return compact(t)
			}
			ss = append(ss, s)
		}
		if len(ss) == 0 {
			return nil
		}
		return strings.Join(ss, sep)
	default:
		return compact(t)
	}
}

func compact(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
