// Package storage persists the registry catalog. Backends live in
// subpackages and register themselves by kind; internal/storage/all imports
// every one of them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"registry/internal/catalog"
)

// Config is the minimal configuration needed to open a catalog store.
//
// Kind must match a registered backend ("sqlite", "postgres", "mssql"). DSN is
// passed through to the backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Store persists the registry catalog.
//
// Each backend implements these semantics in its own idiomatic way (SQLite
// LastInsertId, Postgres RETURNING and COPY, SQL Server OUTPUT INSERTED).
type Store interface {
	// Close releases backend resources. Call once.
	Close()

	// EnsureSchema creates the catalog tables if they do not exist.
	EnsureSchema(ctx context.Context) error

	// Reset drops every catalog table and recreates the schema, so a run
	// starts from an empty catalog.
	Reset(ctx context.Context) error

	// SaveFile inserts one file record with its fields, enum entries and raw
	// samples in a single transaction and returns the new file id. On error
	// nothing of the file is kept.
	SaveFile(ctx context.Context, fp *catalog.FileProfile) (int64, error)

	// ReplaceFieldAliases clears the alias table and inserts aliases.
	ReplaceFieldAliases(ctx context.Context, aliases []catalog.FieldAlias) error

	// CreateIndexes creates the lookup indexes. Safe to call more than once.
	CreateIndexes(ctx context.Context) error
}

// Factory opens a Store for cfg.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a backend under kind. Call it from the backend
// package's init.
//
// Panics if kind is empty, f is nil, or kind is already registered.
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

// New opens a Store using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, sorted.
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
