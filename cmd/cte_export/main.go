// Command cte_export loads the configured CTE records and employment
// projections, derives the county cluster ranking and the complete
// projection rows, and writes all three to a database.
//
// Usage:
//
//	cte_export [-config path] [-kind sqlite|postgres|mssql] [-dsn DSN] [-prefix p] [-batch n] [-workers n]
//
// Re-running an export with unchanged data inserts nothing: every row is
// keyed by its content hash. A JSON summary is printed to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cteview/internal/cli"
	"cteview/internal/config"
	"cteview/internal/dataset"
	"cteview/internal/export"
	"cteview/internal/logging"
	"cteview/internal/storage"

	// register all backends with the storage factory.
	_ "cteview/internal/storage/all"
)

type appDeps struct {
	loadConfig  func(path string, w io.Writer) (config.Config, error)
	newLogger   func(cfg config.LogConfig, name string) (logging.Logger, error)
	initMetrics func(ctx context.Context, cfg config.MetricsConfig) (func(), error)
	newLoader   func(log logging.Logger) dataset.Loader
	openRepo    func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
	getenv      func(string) string
	expandEnv   func(string) string
}

func defaultDeps() appDeps {
	return appDeps{
		loadConfig:  cli.LoadConfig,
		newLogger:   cli.NewLogger,
		initMetrics: cli.InitMetrics,
		newLoader:   func(log logging.Logger) dataset.Loader { return dataset.NewFileLoader(log) },
		openRepo:    storage.New,
		getenv:      os.Getenv,
		expandEnv:   os.ExpandEnv,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

type summary struct {
	Kind   string          `json:"kind"`
	Tables []export.Result `json:"tables"`
	// Counties and ClusterTotal describe the exported county ranking.
	Counties     int     `json:"counties"`
	ClusterTotal float64 `json:"cluster_total"`
	Duration     string  `json:"duration"`
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("cte_export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "config JSON path (defaults apply when empty)")
	kind := fs.String("kind", "", "storage backend: sqlite|postgres|mssql; overrides export.kind")
	dsn := fs.String("dsn", "", "storage DSN (highest priority)")
	prefix := fs.String("prefix", "", "table name prefix; overrides export.prefix")
	batch := fs.Int("batch", 0, "rows per insert; overrides export.batch")
	workers := fs.Int("workers", 0, "concurrent loaders per table; overrides export.workers")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "usage: cte_export [-config path] [-kind k] [-dsn dsn] [-prefix p] [-batch n] [-workers n]")
		return 2
	}

	cfg, err := deps.loadConfig(*cfgPath, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *kind != "" {
		cfg.Export.Kind = *kind
	}
	if *prefix != "" {
		cfg.Export.Prefix = *prefix
	}
	if *batch > 0 {
		cfg.Export.Batch = *batch
	}
	if *workers > 0 {
		cfg.Export.Workers = *workers
	}

	resolved, err := resolveDSN(cfg.Export.Kind, *dsn, cfg.Export.DSN, deps.getenv, deps.expandEnv)
	if err != nil {
		fmt.Fprintf(stderr, "dsn: %v\n", err)
		return 1
	}

	log, err := deps.newLogger(cfg.Log, "cte_export")
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	cleanup, err := deps.initMetrics(ctx, cfg.Metrics)
	if err != nil {
		log.Warn("metrics disabled", logging.Err(err))
	}
	defer cleanup()

	start := time.Now()
	loader := deps.newLoader(log)
	records, err := loader.Load(ctx, cfg.Records)
	if err != nil {
		fmt.Fprintf(stderr, "load records: %v\n", err)
		return 1
	}
	projections, err := loader.Load(ctx, cfg.Projections)
	if err != nil {
		fmt.Fprintf(stderr, "load projections: %v\n", err)
		return 1
	}
	snap, err := export.BuildSnapshot(records, projections)
	if err != nil {
		fmt.Fprintf(stderr, "derive: %v\n", err)
		return 1
	}

	repo, err := deps.openRepo(ctx, storage.Config{Kind: cfg.Export.Kind, DSN: resolved})
	if err != nil {
		fmt.Fprintf(stderr, "open %s: %v\n", cfg.Export.Kind, err)
		return 1
	}
	defer repo.Close()

	results, err := export.Run(ctx, repo, snap, export.Options{
		Prefix:  cfg.Export.Prefix,
		Batch:   cfg.Export.Batch,
		Workers: cfg.Export.Workers,
		Log:     log,
	})
	if err != nil {
		fmt.Fprintf(stderr, "export: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary{
		Kind:         cfg.Export.Kind,
		Tables:       results,
		Counties:     len(snap.Ranking),
		ClusterTotal: snap.Ranking.Total(),
		Duration:     time.Since(start).Truncate(time.Millisecond).String(),
	}); err != nil {
		fmt.Fprintf(stderr, "encode summary: %v\n", err)
		return 1
	}
	return 0
}
