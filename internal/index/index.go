// Package index exports the resolved catalog as a lookup table so other
// tools can map enum identifiers back to item ids and names.
package index

import (
	"context"
	"fmt"

	"catalogenum/internal/index/core"
	"catalogenum/internal/infra/persistence/memory"
	"catalogenum/internal/infra/persistence/postgres"
	"catalogenum/internal/infra/persistence/sqlite"
)

type (
	// Driver identifies an index backend.
	Driver = core.Driver
	// Snapshot is a complete resolved catalog.
	Snapshot = core.Snapshot
	// Store persists snapshots.
	Store = core.Store
)

const (
	// DriverSQLite is the SQLite backend.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the Postgres backend.
	DriverPostgres = core.DriverPostgres
	// DriverMemory is the in-memory test backend.
	DriverMemory = core.DriverMemory
)

// NewSnapshot resolves a loaded generator into a Snapshot.
var NewSnapshot = core.NewSnapshot

// Config selects an index backend. An empty Driver disables the index.
//
//	CATALOGENUM_INDEX_DRIVER: sqlite|postgres|memory (default: disabled)
//	CATALOGENUM_INDEX_DSN: database file for sqlite, connection string for postgres
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Enabled reports whether an index backend is configured.
func (c Config) Enabled() bool { return c.Driver != "" }

// Open returns the configured Store, or nil when the index is disabled.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(cfg.Driver) {
	case "":
		return nil, nil
	case DriverSQLite:
		return sqlite.NewStore(ctx, cfg.DSN)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.DSN)
	case DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown index driver %s", cfg.Driver)
	}
}
