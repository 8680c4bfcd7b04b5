// Package core defines the lookup index snapshot and the store contract
// implemented by the persistence backends.
package core

import (
	"context"
	"strconv"

	"catalogenum/internal/catalog"
)

// Driver identifies a concrete index backend.
type Driver string

const (
	// DriverSQLite stores the index in a SQLite database file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores the index in Postgres.
	DriverPostgres Driver = "postgres"
	// DriverMemory keeps the index in process memory (tests).
	DriverMemory Driver = "memory"
)

// Meta keys written alongside the items table.
const (
	MetaSource    = "source"
	MetaVersion   = "version"
	MetaItemCount = "item_count"
	MetaEmitted   = "emitted"
)

// Snapshot is the complete index for one catalog: every record with its
// resolved identifier, emitted or not.
type Snapshot struct {
	Source  string
	Version int
	Count   int
	Entries []catalog.Entry
}

// NewSnapshot resolves the catalog loaded into g.
func NewSnapshot(g *catalog.Generator) (Snapshot, error) {
	entries, err := g.Resolve()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Source: g.Source(), Version: g.Version(), Count: g.Count(), Entries: entries}, nil
}

// Emitted returns the number of entries that produce an enum member.
func (s Snapshot) Emitted() int {
	n := 0
	for _, e := range s.Entries {
		if e.Emitted {
			n++
		}
	}
	return n
}

// MetaPair is one row of the meta table.
type MetaPair struct {
	Key   string
	Value string
}

// Meta returns the meta rows in a stable order.
func (s Snapshot) Meta() []MetaPair {
	return []MetaPair{
		{Key: MetaSource, Value: s.Source},
		{Key: MetaVersion, Value: strconv.Itoa(s.Version)},
		{Key: MetaItemCount, Value: strconv.Itoa(s.Count)},
		{Key: MetaEmitted, Value: strconv.Itoa(s.Emitted())},
	}
}

// Store persists the lookup index. Replace swaps the whole index atomically;
// no previous snapshot is retained.
type Store interface {
	Replace(ctx context.Context, snap Snapshot) error
	Close() error
	Driver() Driver
}
