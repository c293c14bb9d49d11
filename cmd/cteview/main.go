// Command cteview serves the CTE exploration sessions over HTTP.
//
// Usage:
//
//	cteview -config configs/cteview.json [-addr :8080] [-validate]
//
// Configuration comes from the JSON file over the built-in defaults, then
// the environment (CTE_*, METRICS_*). With -validate the command prints the
// validation issues and exits.
package main

import (
	"context"
	"errors"
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
	"cteview/internal/logging"
	"cteview/internal/server"
	"cteview/internal/session"
	"cteview/internal/view"
)

const shutdownTimeout = 10 * time.Second

type appDeps struct {
	loadConfig  func(path string, w io.Writer) (config.Config, error)
	newLogger   func(cfg config.LogConfig, name string) (logging.Logger, error)
	initMetrics func(ctx context.Context, cfg config.MetricsConfig) (func(), error)
	serve       func(ctx context.Context, s *server.Server, addr string) error
}

func defaultDeps() appDeps {
	return appDeps{
		loadConfig:  cli.LoadConfig,
		newLogger:   cli.NewLogger,
		initMetrics: cli.InitMetrics,
		serve:       serve,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

// runMain returns the process exit code: 0 ok, 1 runtime failure, 2 usage.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("cteview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "config JSON path (defaults apply when empty)")
	addr := fs.String("addr", "", "listen address; overrides config addr")
	validate := fs.Bool("validate", false, "validate the configuration and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "usage: cteview [-config path] [-addr host:port] [-validate]\n")
		return 2
	}

	cfg, err := deps.loadConfig(*cfgPath, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *validate {
		fmt.Fprintln(stdout, "configuration is valid")
		return 0
	}

	log, err := deps.newLogger(cfg.Log, "cteview")
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

	router := view.NewRouter(view.Home())
	router.Register(session.ViewAnalysis, view.NewAnalysis(cfg, log))

	srv := server.New(server.Options{
		SessionTTL: cfg.TTL(),
		Loader:     dataset.NewFileLoader(log),
		Router:     router,
		Log:        log,
	})

	log.Info("starting",
		logging.String("addr", cfg.Addr),
		logging.String("records", cfg.Records.Path),
		logging.String("projections", cfg.Projections.Path),
	)
	if err := deps.serve(ctx, srv, cfg.Addr); err != nil {
		log.Error("server stopped", logging.Err(err))
		return 1
	}
	log.Info("stopped")
	return 0
}

// serve runs s until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, s *server.Server, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(addr) }()

	select {
	case err := <-errCh:
		s.Sessions.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
