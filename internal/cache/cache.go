// Package cache persists which packages the host installed through which
// backend. Backends never read or write it; the host updates it after a
// successful dispatch.
package cache

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/darling/pkg/backend"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidEntry = errors.New("cache: invalid entry")

type file struct {
	Backends map[string][]backend.InstallationEntry `toml:"backends"`
}

// Cache is the on-disk installed-package record. Safe for concurrent use.
type Cache struct {
	path string

	mu       sync.Mutex
	backends map[string][]backend.InstallationEntry
}

// Open loads the cache at path. A missing file is an empty cache.
func Open(path string) (*Cache, error) {
	c := &Cache{path: path, backends: make(map[string][]backend.InstallationEntry)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache load failed (%s): %w", path, err)
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cache parse failed (%s): %w", path, err)
	}
	for name, entries := range f.Backends {
		c.backends[name] = entries
	}
	return c, nil
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Record adds or replaces entry under backendName and saves.
func (c *Cache) Record(backendName string, entry backend.InstallationEntry) error {
	if err := checkEntry(backendName, entry); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.backends[backendName]
	replaced := false
	for i := range entries {
		if entries[i].Name == entry.Name {
			entries[i] = cloneEntry(entry)
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, cloneEntry(entry))
	}
	sortEntries(entries)
	c.backends[backendName] = entries
	return c.saveLocked()
}

// Forget drops pkg from backendName and saves. Unknown packages are a no-op.
func (c *Cache) Forget(backendName, pkg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.backends[backendName]
	out := entries[:0]
	for _, e := range entries {
		if e.Name != pkg {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		delete(c.backends, backendName)
	} else {
		c.backends[backendName] = out
	}
	return c.saveLocked()
}

// Replace swaps every entry of backendName for entries and saves.
func (c *Cache) Replace(backendName string, entries []backend.InstallationEntry) error {
	next := make([]backend.InstallationEntry, 0, len(entries))
	for _, e := range entries {
		if err := checkEntry(backendName, e); err != nil {
			return err
		}
		next = append(next, cloneEntry(e))
	}
	sortEntries(next)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(next) == 0 {
		delete(c.backends, backendName)
	} else {
		c.backends[backendName] = next
	}
	return c.saveLocked()
}

// Entries returns a copy of the entries recorded for backendName.
func (c *Cache) Entries(backendName string) []backend.InstallationEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]backend.InstallationEntry, 0, len(c.backends[backendName]))
	for _, e := range c.backends[backendName] {
		out = append(out, cloneEntry(e))
	}
	return out
}

// Backends returns the backends with at least one entry, sorted.
func (c *Cache) Backends() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.backends))
	for name := range c.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Cache) saveLocked() error {
	data, err := toml.Marshal(file{Backends: c.backends})
	if err != nil {
		return fmt.Errorf("cache encode failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".installed-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}

func checkEntry(backendName string, entry backend.InstallationEntry) error {
	if strings.TrimSpace(backendName) == "" {
		return fmt.Errorf("%w: missing backend", ErrInvalidEntry)
	}
	if strings.TrimSpace(entry.Name) == "" {
		return fmt.Errorf("%w: backend=%q missing package name", ErrInvalidEntry, backendName)
	}
	return nil
}

func cloneEntry(e backend.InstallationEntry) backend.InstallationEntry {
	out := backend.InstallationEntry{Name: e.Name}
	if len(e.Properties) > 0 {
		out.Properties = make(map[string]string, len(e.Properties))
		maps.Copy(out.Properties, e.Properties)
	}
	return out
}

func sortEntries(entries []backend.InstallationEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}
