// Package postgres persists the lookup index to Postgres through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"catalogenum/internal/index/core"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/catalogenum?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_items (
		position INTEGER PRIMARY KEY,
		identifier TEXT NOT NULL,
		item_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		emitted BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS catalog_items_identifier ON catalog_items (identifier)`,
	`CREATE TABLE IF NOT EXISTS catalog_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Store writes snapshots to Postgres.
type Store struct {
	db *sql.DB
}

// NewStore connects using dsn (falls back to defaultDSN) and ensures the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Driver returns the index driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverPostgres }

// Replace truncates the index tables and writes snap in one transaction.
func (s *Store) Replace(ctx context.Context, snap core.Snapshot) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE catalog_items, catalog_meta`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	for _, e := range snap.Entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_items (position, identifier, item_id, name, emitted) VALUES ($1, $2, $3, $4, $5)`,
			e.Position, e.Identifier, e.ID, e.Name, e.Emitted,
		); err != nil {
			return fmt.Errorf("insert item %d: %w", e.Position, err)
		}
	}
	for _, m := range snap.Meta() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_meta (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			m.Key, m.Value,
		); err != nil {
			return fmt.Errorf("upsert meta %s: %w", m.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
