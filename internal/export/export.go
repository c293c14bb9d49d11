// Package export writes the derived CTE datasets to a storage.Repository.
//
// Three tables are written: the renamed records, the county cluster ranking
// and the complete employment projection rows. Every table carries a
// row_hash column with a UNIQUE constraint, so exporting the same data
// twice inserts nothing the second time.
package export

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cteview/internal/aggregate"
	"cteview/internal/logging"
	"cteview/internal/metrics"
	"cteview/internal/probe"
	"cteview/internal/projection"
	"cteview/internal/schema"
	"cteview/internal/storage"
	"cteview/internal/table"
	"cteview/internal/transformer"
)

// Table names before the configured prefix.
const (
	RecordsTable     = "cte_records"
	CountyTotalTable = "cte_county_cluster_totals"
	ProjectionsTable = "cte_employment_projections"

	HashColumn = "row_hash"
)

// Snapshot is the derived data one export run writes.
type Snapshot struct {
	Records     *table.Table
	Ranking     aggregate.Ranking
	Projections *table.Table
}

// BuildSnapshot renames the raw records, ranks counties by the unique
// cluster count and keeps only projection rows with a category and every
// projection year.
func BuildSnapshot(records, projections *table.Table) (Snapshot, error) {
	renamed, err := schema.Rename(records, schema.CTEMapping())
	if err != nil {
		return Snapshot{}, err
	}
	r, err := aggregate.RankBySum(renamed, schema.County, schema.UniqueClusters)
	if err != nil {
		return Snapshot{}, err
	}

	required := append([]string{schema.ProjectionCategory}, schema.ProjectionYears...)
	complete, err := projection.DropIncomplete(projections, required...)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Records: renamed, Ranking: r, Projections: complete}, nil
}

// RankingTable lays out r as (rank, county, total), rank starting at 1.
func RankingTable(r aggregate.Ranking) *table.Table {
	rows := make([][]any, len(r))
	for i, e := range r {
		rows[i] = []any{float64(i + 1), e.Group, e.Value}
	}
	return table.MustNew([]string{"rank", schema.RawCounty, "total"}, rows)
}

// SpecFor derives an auto-created TableSpec for t from its inferred column
// types, plus the row_hash dedupe column.
func SpecFor(name string, t *table.Table, types []probe.Column) storage.TableSpec {
	spec := storage.TableSpec{
		Name:            name,
		AutoCreateTable: true,
		Constraints:     []storage.ConstraintSpec{{Kind: "unique", Columns: []string{HashColumn}}},
		Load:            storage.LoadSpec{DedupeColumns: []string{HashColumn}},
	}
	for i, c := range t.Columns() {
		typ := storage.TypeText
		if i < len(types) && types[i].Type.Numeric() {
			typ = storage.TypeDouble
		}
		spec.Columns = append(spec.Columns, storage.ColumnSpec{Name: c, Type: typ})
	}
	spec.Columns = append(spec.Columns, storage.ColumnSpec{
		Name:     HashColumn,
		Type:     storage.TypeHash,
		Nullable: storage.Bool(false),
	})
	return spec
}

// Options tunes Run.
type Options struct {
	// Prefix is prepended to every table name ("cte." targets a schema).
	Prefix string
	// Batch is the number of rows per InsertRows call; <= 0 means 500.
	Batch int
	// Workers is the number of concurrent loaders per table; <= 0 means 1.
	Workers int
	Log     logging.Logger
}

// Result summarises one exported table.
type Result struct {
	Table    string `json:"table"`
	Rows     int    `json:"rows"`
	Inserted int64  `json:"inserted"`
}

// Run creates the three tables if needed and loads them. The first error
// stops the run; results for tables already written are still returned.
func Run(ctx context.Context, repo storage.Repository, snap Snapshot, opts Options) ([]Result, error) {
	if opts.Log == nil {
		opts.Log = logging.NewNop()
	}
	log := opts.Log.Named("export")

	sources := []struct {
		name string
		t    *table.Table
	}{
		{RecordsTable, snap.Records},
		{CountyTotalTable, RankingTable(snap.Ranking)},
		{ProjectionsTable, snap.Projections},
	}

	specs := make([]storage.TableSpec, 0, len(sources))
	for _, s := range sources {
		if s.t == nil {
			return nil, fmt.Errorf("export %s: no table", s.name)
		}
		specs = append(specs, SpecFor(opts.Prefix+s.name, s.t, probe.Infer(s.t)))
	}
	if err := repo.EnsureTables(ctx, specs); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(sources))
	for i, s := range sources {
		start := time.Now()
		res, err := load(ctx, repo, specs[i], s.t, opts)
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RecordStep("export_"+s.name, status, start)
		if err != nil {
			log.Error("export failed", logging.String("table", specs[i].Name), logging.Err(err))
			return results, fmt.Errorf("export %s: %w", specs[i].Name, err)
		}
		metrics.RecordRows("exported", int(res.Inserted))
		log.Info("exported",
			logging.String("table", res.Table),
			logging.Int("rows", res.Rows),
			logging.Int("inserted", int(res.Inserted)),
			logging.Duration("duration", time.Since(start)),
		)
		results = append(results, res)
	}
	return results, nil
}

// load hashes t's rows and inserts them in batches on a small worker pool.
// Any worker error cancels the rest; the first error wins.
func load(ctx context.Context, repo storage.Repository, spec storage.TableSpec, t *table.Table, opts Options) (Result, error) {
	batchSize := opts.Batch
	if batchSize <= 0 {
		batchSize = 500
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	columns, rows := transformer.Hasher{IncludeFieldNames: true}.WithHash(t, HashColumn)
	coerce(spec, rows)
	res := Result{Table: spec.Name, Rows: len(rows)}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	setErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel(err)
		}
	}

	batches := make(chan [][]any, workers*2)
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for batch := range batches {
				if ctx.Err() != nil {
					continue
				}
				n, err := repo.InsertRows(ctx, spec, columns, batch)
				if err != nil {
					setErr(err)
					continue
				}
				mu.Lock()
				res.Inserted += n
				mu.Unlock()
			}
		}()
	}

produce:
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		select {
		case batches <- rows[start:end]:
		case <-ctx.Done():
			break produce
		}
	}
	close(batches)
	wg.Wait()

	if firstErr != nil {
		return res, firstErr
	}
	return res, ctx.Err()
}

// coerce formats values of text columns as strings so drivers with strict
// parameter encoding accept mixed columns.
func coerce(spec storage.TableSpec, rows [][]any) {
	for ci, c := range spec.Columns {
		if c.Type != storage.TypeText {
			continue
		}
		for _, r := range rows {
			if ci < len(r) && r[ci] != nil {
				if _, ok := r[ci].(string); !ok {
					r[ci] = table.Format(r[ci])
				}
			}
		}
	}
}
