package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"cteview/internal/storage"
)

// maxParams stays under SQL Server's 2100 parameters per request.
const maxParams = 2000

// Repo implements storage.Repository for Microsoft SQL Server.
type Repo struct {
	db dbConn
}

func init() {
	storage.Register("mssql", New)
}

// New opens cfg.DSN with the "sqlserver" driver and pings it.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	raw.SetMaxOpenConns(16)
	raw.SetMaxIdleConns(16)

	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Repo{db: raw}, nil
}

// Close releases database resources held by this repository.
func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// EnsureTables creates missing tables behind an OBJECT_ID guard.
func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		if !t.AutoCreateTable {
			continue
		}
		q, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("mssql: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// InsertRows inserts chunked multi-row statements. With dedupe columns each
// chunk is first deduplicated in memory (first occurrence wins) and then
// inserted with INSERT ... SELECT ... WHERE NOT EXISTS.
func (r *Repo) InsertRows(ctx context.Context, spec storage.TableSpec, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("mssql: insert %s: no columns", spec.Name)
	}

	dedupe := spec.Load.DedupeColumns
	if len(dedupe) > 0 {
		var err error
		if rows, err = dedupeRowsByColumns(rows, columns, dedupe); err != nil {
			return 0, err
		}
	}

	var total int64
	for _, part := range storage.ChunkRows(rows, len(columns), maxParams) {
		q, args := buildInsertSQL(spec.Name, columns, part, dedupe)
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("mssql: insert %s: %w", spec.Name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// dedupeRowsByColumns keeps the first row for each dedupe key, preserving
// order. SQL Server does not collapse duplicates inside a VALUES source.
func dedupeRowsByColumns(rows [][]any, columns []string, dedupeColumns []string) ([][]any, error) {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	idx := make([]int, len(dedupeColumns))
	for i, dc := range dedupeColumns {
		p, ok := pos[dc]
		if !ok {
			return nil, fmt.Errorf("mssql: dedupe column %q not present in columns", dc)
		}
		idx[i] = p
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([][]any, 0, len(rows))
	var key strings.Builder
	for _, row := range rows {
		key.Reset()
		for _, i := range idx {
			fmt.Fprintf(&key, "%T:%v\x00", row[i], row[i])
		}
		k := key.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out, nil
}

var dialect = storage.Dialect{
	Quote:       mssqlIdent,
	Table:       mssqlTableIdent,
	Placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
	ColumnType:  columnType,
}

// columnType maps the dialect-neutral text type; SQL Server's TEXT is
// deprecated. Other names are valid T-SQL as written.
func columnType(typ string) string {
	if strings.EqualFold(typ, storage.TypeText) {
		return "NVARCHAR(MAX)"
	}
	return typ
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent brackets each part: "dbo.imports" -> [dbo].[imports].
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

// buildCreateSQL guards CREATE TABLE with OBJECT_ID, as T-SQL has no
// CREATE TABLE IF NOT EXISTS.
func buildCreateSQL(t storage.TableSpec) (string, error) {
	defs, err := dialect.Definitions(t)
	if err != nil {
		return "", fmt.Errorf("mssql: %w", err)
	}
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		strings.ReplaceAll(t.Name, "'", "''"),
		dialect.TableIdent(t.Name),
		strings.Join(defs, ", "),
	), nil
}

// buildInsertSQL renders a plain multi-row INSERT, or with dedupe columns an
// INSERT ... SELECT over a VALUES source that skips keys already stored.
func buildInsertSQL(table string, columns []string, rows [][]any, dedupeColumns []string) (string, []any) {
	var b strings.Builder
	target, cols := dialect.TableIdent(table), dialect.IdentList("", columns)

	if len(dedupeColumns) == 0 {
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", target, cols)
		args := dialect.WriteValues(&b, len(columns), rows)
		b.WriteByte(';')
		return b.String(), args
	}

	fmt.Fprintf(&b, "INSERT INTO %s (%s) SELECT %s FROM (VALUES ", target, cols, dialect.IdentList("v.", columns))
	args := dialect.WriteValues(&b, len(columns), rows)
	match := make([]string, len(dedupeColumns))
	for i, dc := range dedupeColumns {
		match[i] = "t." + mssqlIdent(dc) + " = v." + mssqlIdent(dc)
	}
	fmt.Fprintf(&b, ") AS v(%s) WHERE NOT EXISTS (SELECT 1 FROM %s t WHERE %s);", cols, target, strings.Join(match, " AND "))
	return b.String(), args
}

// dbConn is the slice of *sql.DB this package uses.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Close() error
}

var _ dbConn = (*sql.DB)(nil)
