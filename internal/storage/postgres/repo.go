package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cteview/internal/storage"
)

// maxParams is the wire protocol's bind-parameter limit.
const maxParams = 65535

// Repo implements storage.Repository for Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New creates a pooled Repo and checks connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// EnsureTables creates the schema of qualified names and then the table.
func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		if !t.AutoCreateTable {
			continue
		}
		schemaSQL, baseSQL, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		if schemaSQL != "" {
			if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema for %s: %w", t.Name, err)
			}
		}
		if _, err := r.pool.Exec(ctx, baseSQL); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// InsertRows bulk inserts in one transaction. Dedupe columns turn into
// ON CONFLICT (...) DO NOTHING.
func (r *Repo) InsertRows(ctx context.Context, spec storage.TableSpec, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("insert %s: no columns", spec.Name)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var total int64
	for _, part := range storage.ChunkRows(rows, len(columns), maxParams) {
		q, args := buildInsertSQL(spec.Name, columns, part, spec.Load.DedupeColumns)
		tag, err := tx.Exec(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", spec.Name, err)
		}
		total += tag.RowsAffected()
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return total, nil
}

var dialect = storage.Dialect{
	Quote:       pgIdent,
	Table:       pgTableIdent,
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

func pgIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// pgTableIdent quotes each part of a possibly schema-qualified name.
func pgTableIdent(name string) string {
	schema, table := splitQualifiedName(name)
	if schema == "" {
		return pgIdent(table)
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

// splitQualifiedName splits "schema.table". Anything other than exactly one
// dot is treated as unqualified.
func splitQualifiedName(name string) (schema, table string) {
	name = strings.TrimSpace(name)
	s, t, ok := strings.Cut(name, ".")
	if !ok || strings.Contains(t, ".") {
		return "", name
	}
	return strings.TrimSpace(s), strings.TrimSpace(t)
}

// buildInsertSQL renders one multi-row INSERT. Dedupe columns turn into an
// ON CONFLICT target.
func buildInsertSQL(table string, columns []string, rows [][]any, dedupeColumns []string) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", dialect.TableIdent(table), dialect.IdentList("", columns))
	args := dialect.WriteValues(&b, len(columns), rows)
	if len(dedupeColumns) > 0 {
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", dialect.IdentList("", dedupeColumns))
	}
	b.WriteByte(';')
	return b.String(), args
}

// buildCreateSQL returns the CREATE SCHEMA statement a qualified name needs
// (empty otherwise) and the CREATE TABLE statement.
func buildCreateSQL(t storage.TableSpec) (schemaSQL, baseSQL string, err error) {
	defs, err := dialect.Definitions(t)
	if err != nil {
		return "", "", err
	}
	if schema, _ := splitQualifiedName(t.Name); schema != "" {
		schemaSQL = "CREATE SCHEMA IF NOT EXISTS " + pgIdent(schema) + ";"
	}
	baseSQL = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", dialect.TableIdent(t.Name), strings.Join(defs, ", "))
	return schemaSQL, baseSQL, nil
}
