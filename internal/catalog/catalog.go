// Package catalog is the minimal table registry the buffer manager's
// Table collaborator is implemented against: name -> backing file path.
// Schema, free space, and page-count bookkeeping belong to higher layers
// and are out of scope here.
package catalog

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// Table is a persistent table reference. It is comparable (both fields
// are plain strings) so it can be used directly as a map key, satisfying
// the buffer manager's requirement that a Table be equatable.
type Table struct {
	Name     string
	Location string
}

// StorageLocation returns the path of the backing file for this table.
func (t Table) StorageLocation() string {
	return t.Location
}

type tableMeta struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Catalog resolves table names to Table references, persisting the
// mapping as one JSON sidecar file per table so a later process can
// reopen the same tables.
type Catalog struct {
	fs      afero.Fs
	dataDir string

	mu     sync.Mutex
	tables map[string]Table
}

func New(fs afero.Fs, dataDir string) *Catalog {
	return &Catalog{
		fs:      fs,
		dataDir: dataDir,
		tables:  make(map[string]Table),
	}
}

func (c *Catalog) metaPath(name string) string {
	return filepath.Join(c.dataDir, "catalog", name+".json")
}

func (c *Catalog) dataPath(name string) string {
	return filepath.Join(c.dataDir, "tables", name+".tbl")
}

// CreateTable registers a new table and persists its metadata. Creating
// a table that already exists returns the existing Table unchanged.
func (c *Catalog) CreateTable(name string) (Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tables[name]; ok {
		return t, nil
	}

	t := Table{Name: name, Location: c.dataPath(name)}
	if err := c.writeMeta(t); err != nil {
		return Table{}, err
	}
	c.tables[name] = t
	return t, nil
}

// OpenTable returns a previously-created table, loading its metadata from
// disk if this Catalog instance has not seen it yet.
func (c *Catalog) OpenTable(name string) (Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tables[name]; ok {
		return t, nil
	}

	data, err := afero.ReadFile(c.fs, c.metaPath(name))
	if err != nil {
		return Table{}, fmt.Errorf("catalog: open table %q: %w", name, err)
	}
	var m tableMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return Table{}, fmt.Errorf("catalog: decode metadata for %q: %w", name, err)
	}

	t := Table{Name: m.Name, Location: m.Location}
	c.tables[name] = t
	return t, nil
}

func (c *Catalog) writeMeta(t Table) error {
	if err := c.fs.MkdirAll(filepath.Dir(c.metaPath(t.Name)), 0o755); err != nil {
		return fmt.Errorf("catalog: create catalog dir: %w", err)
	}
	data, err := json.MarshalIndent(tableMeta{Name: t.Name, Location: t.Location}, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: encode metadata for %q: %w", t.Name, err)
	}
	if err := afero.WriteFile(c.fs, c.metaPath(t.Name), data, 0o644); err != nil {
		return fmt.Errorf("catalog: write metadata for %q: %w", t.Name, err)
	}
	return nil
}
