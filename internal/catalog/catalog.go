// Package catalog loads an item catalog (items.json) and renders its records
// as an enumeration declaration keyed by sanitized item names.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"
)

// Extension is the only accepted catalog file suffix.
const Extension = ".json"

// File is a parsed catalog. Nil metadata pointers mean the field was absent.
type File struct {
	Version   *int
	ItemCount *int
	Items     []Item
}

// Item is a single catalog record. ID is emitted verbatim; duplicates and
// negative values are allowed.
type Item struct {
	ID   int64
	Name string
}

type fileDoc struct {
	Version   *int       `json:"version"`
	ItemCount *int       `json:"item_count"`
	Items     *[]itemDoc `json:"items"`
}

type itemDoc struct {
	ID   *int64  `json:"item_id"`
	Name *string `json:"name"`
}

// Generator owns one loaded catalog at a time. It is not safe for concurrent
// use: Load must not run while another goroutine builds from the same value.
type Generator struct {
	file   *File
	source string
}

// New returns a Generator with nothing loaded.
func New() *Generator { return &Generator{} }

// Load reads and parses the catalog at path, replacing the current catalog
// only when every step succeeds.
func (g *Generator) Load(path string) error {
	if !strings.HasSuffix(path, Extension) {
		return fmt.Errorf("%w: expected a %s file: %s", ErrInvalidFileType, Extension, path)
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotAFile, path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	//nolint:gosec // generator intentionally reads caller-provided catalog path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrParse, path, err)
	}

	file, err := Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	g.file = &file
	g.source = path
	return nil
}

// Parse decodes catalog JSON. Only the presence of items, item_id and name is
// validated; unknown fields are ignored.
func Parse(raw []byte) (File, error) {
	if !utf8.Valid(raw) {
		return File{}, fmt.Errorf("%w: content is not valid UTF-8", ErrParse)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return File{}, fmt.Errorf("%w: empty document", ErrParse)
	}

	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return File{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if doc.Items == nil {
		return File{}, fmt.Errorf("%w: missing items array", ErrParse)
	}

	items := make([]Item, 0, len(*doc.Items))
	for i, it := range *doc.Items {
		if it.ID == nil {
			return File{}, fmt.Errorf("%w: item %d: missing item_id", ErrParse, i)
		}
		if it.Name == nil {
			return File{}, fmt.Errorf("%w: item %d: missing name", ErrParse, i)
		}
		items = append(items, Item{ID: *it.ID, Name: *it.Name})
	}

	return File{Version: doc.Version, ItemCount: doc.ItemCount, Items: items}, nil
}

// Loaded reports whether a catalog has been loaded successfully.
func (g *Generator) Loaded() bool { return g.file != nil }

// Source returns the path of the last successful load.
func (g *Generator) Source() string { return g.source }

// Version returns the declared catalog version, or -1 when nothing is loaded
// or the field is absent or zero.
func (g *Generator) Version() int {
	if g.file == nil {
		return -1
	}
	return orSentinel(g.file.Version)
}

// Count returns the declared item_count, or -1 under the same conditions as
// Version. It is not checked against the number of records.
func (g *Generator) Count() int {
	if g.file == nil {
		return -1
	}
	return orSentinel(g.file.ItemCount)
}

func orSentinel(v *int) int {
	if v == nil || *v == 0 {
		return -1
	}
	return *v
}
