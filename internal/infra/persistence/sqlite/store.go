// Package sqlite persists the lookup index to a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"catalogenum/internal/index/core"
)

const defaultPath = "catalogenum.db"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_items (
		position INTEGER PRIMARY KEY,
		identifier TEXT NOT NULL,
		item_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		emitted INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS catalog_items_identifier ON catalog_items(identifier)`,
	`CREATE TABLE IF NOT EXISTS catalog_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Store writes snapshots to the catalog_items and catalog_meta tables.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path and ensures the schema.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Driver returns the index driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverSQLite }

// Replace clears the index and writes snap in one transaction.
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_items`); err != nil {
		return fmt.Errorf("clear catalog_items: %w", err)
	}
	for _, e := range snap.Entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_items(position, identifier, item_id, name, emitted) VALUES(?,?,?,?,?)`,
			e.Position, e.Identifier, e.ID, e.Name, e.Emitted,
		); err != nil {
			return fmt.Errorf("insert item %d: %w", e.Position, err)
		}
	}
	for _, m := range snap.Meta() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_meta(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
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

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
