package config

import (
	"fmt"
	"strings"
	"time"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks cfg and returns every issue found. It never stops at the
// first problem.
func Validate(cfg Config) []Issue {
	var out []Issue
	add := func(sev Severity, path, format string, a ...any) {
		out = append(out, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(cfg.Addr) == "" {
		add(SeverityError, "addr", "must not be empty")
	}

	for _, s := range []struct {
		path string
		src  Source
	}{
		{"records", cfg.Records},
		{"projections", cfg.Projections},
	} {
		if strings.TrimSpace(s.src.Path) == "" {
			add(SeverityError, s.path+".path", "must not be empty")
		}
		switch s.src.ResolvedKind() {
		case "csv", "xlsx", "html", "json":
		default:
			add(SeverityError, s.path+".kind", "unsupported kind %q (want csv, xlsx, html or json)", s.src.Kind)
		}
	}

	if cfg.BottomN <= 0 {
		add(SeverityError, "bottom_n", "must be positive, got %d", cfg.BottomN)
	}

	if d, err := time.ParseDuration(cfg.SessionTTL); err != nil || d <= 0 {
		add(SeverityWarning, "session_ttl", "invalid duration %q; using 30m", cfg.SessionTTL)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		add(SeverityWarning, "log.level", "unknown level %q; using info", cfg.Log.Level)
	}

	switch cfg.Metrics.Backend {
	case "", "none", "datadog":
	default:
		add(SeverityWarning, "metrics.backend", "unknown backend %q; metrics disabled", cfg.Metrics.Backend)
	}

	switch cfg.Export.Kind {
	case "", "sqlite", "postgres", "mssql":
	default:
		add(SeverityError, "export.kind", "unsupported kind %q", cfg.Export.Kind)
	}

	return out
}
