// Package fakebackend provides an in-memory backend for host-side tests.
package fakebackend

import (
	"sort"
	"sync"

	"github.com/danmuck/darling/pkg/backend"
)

// Call records one invocation on a Backend.
type Call struct {
	Op    string
	Entry backend.InstallationEntry
}

// Backend is a concurrency-safe backend that tracks installs in memory.
type Backend struct {
	ID string

	// Fail, when set, is returned by every mutating operation.
	Fail error
	// Panic, when set, makes every operation panic with this value.
	Panic any

	mu          sync.Mutex
	installed   map[string]string
	calls       []Call
	postInstall int
}

// New returns a backend reporting id.
func New(id string) *Backend {
	return &Backend{ID: id, installed: make(map[string]string)}
}

// Slot exports b under the conventional package name for its identity.
func (b *Backend) Slot() backend.Slot {
	return backend.Export(backend.PackagePrefix+b.ID, b)
}

func (b *Backend) Name() string {
	return b.ID
}

func (b *Backend) Install(_ *backend.Context, entry backend.InstallationEntry) error {
	b.record("install", entry)
	if b.Fail != nil {
		return b.Fail
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	version := entry.Version()
	if version == "" {
		version = "latest"
	}
	b.installed[entry.Name] = version
	return nil
}

func (b *Backend) Uninstall(_ *backend.Context, entry backend.InstallationEntry) error {
	b.record("uninstall", entry)
	if b.Fail != nil {
		return b.Fail
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.installed, entry.Name)
	return nil
}

func (b *Backend) ListExplicit(_ *backend.Context) ([]backend.Package, error) {
	b.record("list-explicit", backend.InstallationEntry{})
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.Package, 0, len(b.installed))
	for name, version := range b.installed {
		out = append(out, backend.Package{Name: name, Version: version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *Backend) PostInstall(_ *backend.Context) error {
	b.record("post-install", backend.InstallationEntry{})
	b.mu.Lock()
	defer b.mu.Unlock()
	b.postInstall++
	return nil
}

// Seed marks name as already installed at version.
func (b *Backend) Seed(name, version string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.installed[name] = version
}

// Calls returns a copy of the recorded calls.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// PostInstalls returns how many times PostInstall ran.
func (b *Backend) PostInstalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.postInstall
}

func (b *Backend) record(op string, entry backend.InstallationEntry) {
	b.mu.Lock()
	b.calls = append(b.calls, Call{Op: op, Entry: entry})
	b.mu.Unlock()
	if b.Panic != nil {
		panic(b.Panic)
	}
}
