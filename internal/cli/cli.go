// Package cli holds the startup plumbing shared by the commands: config
// loading and validation, logger construction and metrics backend wiring.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"cteview/internal/config"
	"cteview/internal/logging"
	"cteview/internal/metrics"
	"cteview/internal/metrics/datadog"
)

// ErrInvalidConfig is returned by LoadConfig when validation reports errors.
var ErrInvalidConfig = errors.New("configuration is invalid")

// LoadConfig loads path over the defaults and the environment, validates
// the result and prints every issue to w as "severity: path: message".
func LoadConfig(path string, w io.Writer) (config.Config, error) {
	cfg, err := config.Load(strings.TrimSpace(path))
	if err != nil {
		return cfg, err
	}
	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return cfg, ErrInvalidConfig
	}
	return cfg, nil
}

// NewLogger builds the process logger named after the command.
func NewLogger(cfg config.LogConfig, name string) (logging.Logger, error) {
	l, err := logging.New(logging.Config{Level: cfg.Level, Format: cfg.Format})
	if err != nil {
		return nil, err
	}
	return l.Named(name), nil
}

type metricsBackend interface {
	Close() error
}

// Test seams.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		b, err := datadog.NewBackend(ctx, opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	setMetricsBackend = func(b any) {
		if mb, ok := b.(metrics.Backend); ok {
			metrics.SetBackend(mb)
		}
	}
	logPrintf = log.Printf
)

// InitMetrics wires the configured backend into the metrics package. The
// returned cleanup is never nil and flushes the backend; call it once.
func InitMetrics(ctx context.Context, cfg config.MetricsConfig) (func(), error) {
	nop := func() {}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none", "noop":
		return nop, nil

	case "datadog", "dd":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    cfg.Job,
			Tags:       datadog.ParseTagsCSV(cfg.Tags),
			FlushEvery: cfg.FlushInterval(),
		})
		if err != nil {
			return nop, fmt.Errorf("metrics: init datadog: %w", err)
		}
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logPrintf("metrics: datadog close error: %v", err)
			}
		}, nil

	default:
		return nop, fmt.Errorf("unknown metrics backend %q (want none|datadog)", cfg.Backend)
	}
}
