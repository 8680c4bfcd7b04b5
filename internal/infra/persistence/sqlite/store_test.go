package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"catalogenum/internal/catalog"
	"catalogenum/internal/index/core"
)

func TestReplacePersistsSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "index.db")
	store, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	snap := core.Snapshot{
		Source:  "items.json",
		Version: 2,
		Count:   5,
		Entries: []catalog.Entry{
			{Position: 0, ID: 6, Name: "0", Identifier: "0"},
			{Position: 1, ID: 5, Name: "Iron Sword", Identifier: "IRON_SWORD", Emitted: true},
			{Position: 2, ID: -7, Name: "Cursed Ring", Identifier: "CURSED_RING", Emitted: true},
		},
	}
	if err := store.Replace(ctx, snap); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	var id int64
	if err := store.DB().QueryRowContext(ctx, `SELECT item_id FROM catalog_items WHERE identifier = ?`, "CURSED_RING").Scan(&id); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if id != -7 {
		t.Fatalf("item_id = %d, want -7", id)
	}

	var emitted int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_items WHERE emitted = 1`).Scan(&emitted); err != nil {
		t.Fatalf("count: %v", err)
	}
	if emitted != 2 {
		t.Fatalf("emitted = %d, want 2", emitted)
	}

	var version string
	if err := store.DB().QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = ?`, core.MetaVersion).Scan(&version); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if version != "2" {
		t.Fatalf("version = %s, want 2", version)
	}
}

func TestReplaceIsWholesaleAndSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	store, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	first := core.Snapshot{Source: "a.json", Version: 1, Count: 2, Entries: []catalog.Entry{
		{Position: 0, ID: 1, Name: "Axe", Identifier: "AXE", Emitted: true},
		{Position: 1, ID: 2, Name: "Bow", Identifier: "BOW", Emitted: true},
	}}
	second := core.Snapshot{Source: "b.json", Version: -1, Count: -1, Entries: []catalog.Entry{
		{Position: 0, ID: 3, Name: "Club", Identifier: "CLUB", Emitted: true},
	}}
	if err := store.Replace(ctx, first); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := store.Replace(ctx, second); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if reopened.Path() != path || reopened.Driver() != core.DriverSQLite {
		t.Fatalf("unexpected store identity")
	}

	var n int
	if err := reopened.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_items`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 item after wholesale replace, got %d", n)
	}
	var source string
	if err := reopened.DB().QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = ?`, core.MetaSource).Scan(&source); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if source != "b.json" {
		t.Fatalf("source = %s, want b.json", source)
	}
}

func TestReplaceHonoursCancelledContext(t *testing.T) {
	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Replace(ctx, core.Snapshot{}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
