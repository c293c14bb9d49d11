// Package storage writes derived datasets to a relational database.
//
// Backends register a factory under a kind ("sqlite", "postgres", "mssql")
// from an init function; import internal/storage/all to link all of them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and connects a backend.
type Config struct {
	Kind string
	DSN  string
}

// Repository is the backend-agnostic export surface.
//
// Each backend makes InsertRows idempotent in its own dialect when the table
// names dedupe columns (SQLite OR IGNORE, Postgres ON CONFLICT, SQL Server
// WHERE NOT EXISTS).
type Repository interface {
	// EnsureTables creates missing tables. Tables without AutoCreateTable are
	// left alone.
	EnsureTables(ctx context.Context, tables []TableSpec) error

	// InsertRows writes rows aligned with columns and returns the number of
	// rows actually inserted.
	InsertRows(ctx context.Context, spec TableSpec, columns []string, rows [][]any) (int64, error)

	// Close releases connections. Call once.
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available to New. It panics on an empty kind, a
// nil factory or a duplicate registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New opens a repository with the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds lists the registered backends.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
