package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cteview/internal/storage"
)

func totalsSpec() storage.TableSpec {
	return storage.TableSpec{
		Name:            "cte_county_cluster_totals",
		AutoCreateTable: true,
		Columns: []storage.ColumnSpec{
			{Name: "rank", Type: storage.TypeBigInt, Nullable: storage.Bool(false)},
			{Name: "county", Type: storage.TypeText},
			{Name: "total", Type: storage.TypeDouble},
			{Name: "row_hash", Type: storage.TypeHash, Nullable: storage.Bool(false)},
		},
		Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: []string{"row_hash"}}},
		Load:        storage.LoadSpec{DedupeColumns: []string{"row_hash"}},
	}
}

func openMemory(t *testing.T) *Repo {
	t.Helper()
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo.(*Repo)
}

func TestEnsureTablesAndIdempotentInsert(t *testing.T) {
	ctx := context.Background()
	repo := openMemory(t)
	spec := totalsSpec()

	require.NoError(t, repo.EnsureTables(ctx, []storage.TableSpec{spec}))
	// Second call is a no-op.
	require.NoError(t, repo.EnsureTables(ctx, []storage.TableSpec{spec}))

	rows := [][]any{
		{int64(1), "B", 5.0, "h1"},
		{int64(2), "A", 5.0, "h2"},
		{int64(3), nil, 1.0, "h3"},
	}
	n, err := repo.InsertRows(ctx, spec, spec.ColumnNames(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.InsertRows(ctx, spec, spec.ColumnNames(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	var count int
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "cte_county_cluster_totals"`).Scan(&count))
	assert.Equal(t, 3, count)

	var county string
	var total float64
	require.NoError(t, repo.db.QueryRowContext(ctx,
		`SELECT county, total FROM "cte_county_cluster_totals" WHERE rank = 1`).Scan(&county, &total))
	assert.Equal(t, "B", county)
	assert.Equal(t, 5.0, total)
}

func TestInsertRowsChunksLargeBatches(t *testing.T) {
	ctx := context.Background()
	repo := openMemory(t)
	spec := totalsSpec()
	require.NoError(t, repo.EnsureTables(ctx, []storage.TableSpec{spec}))

	rows := make([][]any, 0, 600)
	for i := range 600 {
		rows = append(rows, []any{int64(i + 1), "C", float64(i), fmt.Sprintf("h%d", i)})
	}
	n, err := repo.InsertRows(ctx, spec, spec.ColumnNames(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(600), n)
}

func TestInsertWithoutTableFails(t *testing.T) {
	repo := openMemory(t)
	spec := totalsSpec()

	_, err := repo.InsertRows(context.Background(), spec, spec.ColumnNames(), [][]any{{int64(1), "A", 1.0, "h"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert cte_county_cluster_totals")
}

func TestBuildCreateTableSQL(t *testing.T) {
	q, err := buildCreateTableSQL(totalsSpec())
	require.NoError(t, err)
	assert.Contains(t, q, `CREATE TABLE IF NOT EXISTS "cte_county_cluster_totals"`)
	assert.Contains(t, q, `"rank" bigint NOT NULL`)
	assert.Contains(t, q, `"county" text,`)
	assert.Contains(t, q, `UNIQUE ("row_hash")`)

	bad := totalsSpec()
	bad.Constraints = []storage.ConstraintSpec{{Kind: "check", Columns: []string{"rank"}}}
	_, err = buildCreateTableSQL(bad)
	assert.EqualError(t, err, `table cte_county_cluster_totals: unsupported constraint kind "check"`)

	_, err = buildCreateTableSQL(storage.TableSpec{Name: "x"})
	assert.EqualError(t, err, "table x: no columns")
}

func TestBuildInsertSQL(t *testing.T) {
	q, args := buildInsertSQL("t", []string{"a", "b"}, [][]any{{1, "x"}, {2, nil}}, true)
	assert.Equal(t, `INSERT OR IGNORE INTO "t" ("a", "b") VALUES (?, ?), (?, ?)`, q)
	assert.Equal(t, []any{1, "x", 2, nil}, args)

	q, _ = buildInsertSQL(`we"ird`, []string{"a"}, [][]any{{1}}, false)
	assert.Equal(t, `INSERT INTO "we""ird" ("a") VALUES (?)`, q)
}
