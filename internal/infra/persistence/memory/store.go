// Package memory keeps the lookup index in process memory. Used by tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"catalogenum/internal/index/core"
)

// Store holds the last replaced snapshot.
type Store struct {
	mu       sync.RWMutex
	snap     core.Snapshot
	has      bool
	replaced int
}

// NewStore returns an empty in-memory index.
func NewStore() *Store { return &Store{} }

// Driver returns the index driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Replace swaps the stored snapshot.
func (s *Store) Replace(ctx context.Context, snap core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap.Entries = slices.Clone(snap.Entries)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.has = true
	s.replaced++
	return nil
}

// Snapshot returns a copy of the stored snapshot and whether one exists.
func (s *Store) Snapshot() (core.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Entries = slices.Clone(out.Entries)
	return out, s.has
}

// Replaced returns how many times Replace succeeded.
func (s *Store) Replaced() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replaced
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
