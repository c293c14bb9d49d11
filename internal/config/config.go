// Package config loads the cteview configuration.
//
// Precedence, lowest to highest:
//  1. built-in defaults (Default)
//  2. the JSON config file (-config)
//  3. environment variables (see the env tags below)
//  4. command-line flags, applied by each binary
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Source locates one dataset.
type Source struct {
	// Kind is "csv", "xlsx", "html" or "json". Empty means "infer from Path".
	Kind string `json:"kind,omitempty"`
	Path string `json:"path"`
	// Sheet selects a workbook sheet (xlsx). Empty means the first sheet.
	Sheet string `json:"sheet,omitempty"`
	// Selector picks the HTML table (html). Empty means the first <table>.
	Selector string `json:"selector,omitempty"`
	// Options are parser options (comma, trim_space, lazy_quotes, header_map).
	Options Options `json:"options,omitempty"`
}

// ResolvedKind returns Kind, or the kind implied by the file extension.
func (s Source) ResolvedKind() string {
	if k := strings.ToLower(strings.TrimSpace(s.Kind)); k != "" {
		return k
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".html", ".htm":
		return "html"
	case ".json", ".jsonl", ".ndjson":
		return "json"
	default:
		return "csv"
	}
}

// Key identifies a source for caching. Sources that differ only in their
// parser options get different keys.
func (s Source) Key() string {
	key := s.ResolvedKind() + "|" + s.Path + "|" + s.Sheet + "|" + s.Selector
	if len(s.Options) == 0 {
		return key
	}
	// encoding/json writes map keys sorted, so equal options encode equally.
	opts, err := json.Marshal(s.Options)
	if err != nil {
		return key + "|" + fmt.Sprintf("%#v", s.Options)
	}
	return key + "|" + string(opts)
}

// LogConfig selects logger level and encoding.
type LogConfig struct {
	Level  string `json:"level" env:"CTE_LOG_LEVEL"`
	Format string `json:"format" env:"CTE_LOG_FORMAT"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend is "datadog" or "none".
	Backend    string `json:"backend" env:"METRICS_BACKEND"`
	Job        string `json:"job" env:"METRICS_JOB"`
	Tags       string `json:"tags" env:"METRICS_TAGS"`
	FlushEvery string `json:"flush_every" env:"METRICS_FLUSH_EVERY"`
}

// ExportConfig configures cmd/cte_export.
type ExportConfig struct {
	// Kind is "sqlite", "postgres" or "mssql".
	Kind   string `json:"kind" env:"CTE_EXPORT_KIND"`
	DSN    string `json:"dsn" env:"CTE_EXPORT_DSN"`
	Prefix string `json:"prefix" env:"CTE_EXPORT_PREFIX"`
	Batch  int    `json:"batch" env:"CTE_EXPORT_BATCH"`

	// Workers is the number of concurrent loaders per table.
	Workers int `json:"workers" env:"CTE_EXPORT_WORKERS"`
}

// Config is the full application configuration.
type Config struct {
	Addr        string        `json:"addr" env:"CTE_ADDR"`
	Records     Source        `json:"records"`
	Projections Source        `json:"projections"`
	BottomN     int           `json:"bottom_n" env:"CTE_BOTTOM_N"`
	SessionTTL  string        `json:"session_ttl" env:"CTE_SESSION_TTL"`
	Log         LogConfig     `json:"log"`
	Metrics     MetricsConfig `json:"metrics"`
	Export      ExportConfig  `json:"export"`

	// Path overrides are kept flat so they can come from the environment.
	RecordsPath     string `json:"-" env:"CTE_RECORDS_PATH"`
	ProjectionsPath string `json:"-" env:"CTE_PROJECTIONS_PATH"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:        ":8080",
		Records:     Source{Path: "data/ACTUAL_FINAL.csv"},
		Projections: Source{Path: "data/Employment Projections - 2-digit (Super-industry).xlsx"},
		BottomN:     10,
		SessionTTL:  "30m",
		Log:         LogConfig{Level: "info", Format: "json"},
		Metrics:     MetricsConfig{Backend: "none", Job: "cteview", FlushEvery: "60s"},
		Export:      ExportConfig{Kind: "sqlite", DSN: "file:cteview.db", Batch: 500, Workers: 1},
	}
}

// Load reads path (if non-empty) over Default, then applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. Unset variables leave
// fields untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if cfg.RecordsPath != "" {
		cfg.Records.Path = cfg.RecordsPath
	}
	if cfg.ProjectionsPath != "" {
		cfg.Projections.Path = cfg.ProjectionsPath
	}
	return nil
}

// TTL returns the parsed session TTL, or 30 minutes if unparsable.
func (c Config) TTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// FlushInterval returns the parsed metrics flush interval, or 60s.
func (m MetricsConfig) FlushInterval() time.Duration {
	d, err := time.ParseDuration(m.FlushEvery)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}
