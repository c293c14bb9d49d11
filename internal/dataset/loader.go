// Package dataset turns a configured Source into a Record Table.
//
// FileLoader dispatches on the source kind to the csv, xlsx, html or json reader.
// Cache memoises successful loads for the lifetime of one session.
package dataset

import (
	"context"
	"fmt"
	"os"
	"time"

	"cteview/internal/config"
	"cteview/internal/logging"
	"cteview/internal/metrics"
	csvparser "cteview/internal/parser/csv"
	htmlparser "cteview/internal/parser/html"
	jsonparser "cteview/internal/parser/json"
	xlsxparser "cteview/internal/parser/xlsx"
	"cteview/internal/table"
)

// Loader loads one dataset.
type Loader interface {
	Load(ctx context.Context, src config.Source) (*table.Table, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, src config.Source) (*table.Table, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, src config.Source) (*table.Table, error) {
	return f(ctx, src)
}

// DataLoadError reports that a source could not be read or parsed. Its
// message is the underlying cause.
type DataLoadError struct {
	Source config.Source
	Err    error
}

func (e *DataLoadError) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// FileLoader reads sources from the local filesystem.
type FileLoader struct {
	Log logging.Logger
}

// NewFileLoader returns a FileLoader logging through log (nop when nil).
func NewFileLoader(log logging.Logger) *FileLoader {
	if log == nil {
		log = logging.NewNop()
	}
	return &FileLoader{Log: log.Named("dataset")}
}

// Load implements Loader. Every failure is a *DataLoadError.
func (l *FileLoader) Load(ctx context.Context, src config.Source) (*table.Table, error) {
	start := time.Now()
	kind := src.ResolvedKind()

	t, err := l.load(ctx, src, kind)
	if err != nil {
		metrics.RecordStep("load_"+kind, "error", start)
		l.Log.Warn("dataset load failed",
			logging.String("path", src.Path),
			logging.String("kind", kind),
			logging.Err(err),
		)
		return nil, &DataLoadError{Source: src, Err: err}
	}

	metrics.RecordStep("load_"+kind, "ok", start)
	metrics.RecordRows(kind, t.Len())
	l.Log.Debug("dataset loaded",
		logging.String("path", src.Path),
		logging.String("kind", kind),
		logging.Int("rows", t.Len()),
		logging.Int("columns", len(t.Columns())),
		logging.Duration("took", time.Since(start)),
	)
	return t, nil
}

func (l *FileLoader) load(ctx context.Context, src config.Source, kind string) (*table.Table, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "csv":
		return csvparser.ReadTable(ctx, f, src.Options, func(line int, err error) {
			l.Log.Warn("skipping malformed line",
				logging.String("path", src.Path),
				logging.Int("line", line),
				logging.Err(err),
			)
		})
	case "xlsx":
		defer f.Close()
		return xlsxparser.ReadTable(ctx, f, src.Sheet, src.Options)
	case "html":
		defer f.Close()
		return htmlparser.ReadTable(ctx, f, src.Selector, src.Options)
	case "json":
		defer f.Close()
		return jsonparser.ReadTable(ctx, f, src.Options)
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported source kind %q", kind)
	}
}

var _ Loader = (*FileLoader)(nil)
