package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/darling/pkg/backend"
	"github.com/danmuck/darling/pkg/tools"
	"github.com/pelletier/go-toml/v2"
)

const (
	// ManifestFile lists the external backend modules inside the source tree.
	ManifestFile = "darling-modules.toml"
	// GeneratedFile is rewritten from the manifest before every rebuild.
	GeneratedFile = "cmd/darling/modules_gen.go"
)

var ErrInvalidModule = errors.New("module: invalid backend module")

type manifest struct {
	Modules []ModuleRef `toml:"modules"`
}

// ModuleRef is one external backend module linked into the source tree.
type ModuleRef struct {
	Path    string `toml:"path"`
	Version string `toml:"version,omitempty"`
}

// selfModule is the host's own backend. Its packages are backend modules:
// installing one adds it to the darling source tree, and the post-install
// step regenerates the slot table and rebuilds the binary once per batch.
type selfModule struct {
	mu sync.Mutex
}

func (*selfModule) Name() string {
	return backend.ReservedIdentity
}

func (s *selfModule) Install(ctx *backend.Context, entry backend.InstallationEntry) error {
	ref, err := moduleRef(entry)
	if err != nil {
		return err
	}
	src := ctx.Config.SourceLocation

	target := ref.Path
	if ref.Version != "" {
		target += "@" + ref.Version
	}
	if err := s.run(ctx, "go", "-C", src, "get", target); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := readManifest(src)
	if err != nil {
		return err
	}
	m.upsert(ref)
	return writeManifest(src, m)
}

func (s *selfModule) Uninstall(ctx *backend.Context, entry backend.InstallationEntry) error {
	ref, err := moduleRef(entry)
	if err != nil {
		return err
	}
	src := ctx.Config.SourceLocation

	s.mu.Lock()
	m, err := readManifest(src)
	if err == nil {
		m.remove(ref.Path)
		if err = writeManifest(src, m); err == nil {
			// the slot table must stop importing the module before it is dropped
			err = writeGenerated(src, m)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.run(ctx, "go", "-C", src, "mod", "edit", "-droprequire="+ref.Path)
}

// ListExplicit reports the external modules recorded in the source tree.
func (s *selfModule) ListExplicit(ctx *backend.Context) ([]backend.Package, error) {
	s.mu.Lock()
	m, err := readManifest(ctx.Config.SourceLocation)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	pkgs := make([]backend.Package, 0, len(m.Modules))
	for _, ref := range m.Modules {
		pkgs = append(pkgs, backend.Package{Name: ref.Path, Version: ref.Version})
	}
	return pkgs, nil
}

// PostInstall regenerates the linked slot table and rebuilds darling.
func (s *selfModule) PostInstall(ctx *backend.Context) error {
	src := ctx.Config.SourceLocation

	s.mu.Lock()
	m, err := readManifest(src)
	if err == nil {
		err = writeGenerated(src, m)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.run(ctx, "go", "-C", src, "mod", "tidy"); err != nil {
		return err
	}
	return s.run(ctx, "go", "-C", src, "build", "-o", filepath.Join(src, "bin", "darling"), "./cmd/darling")
}

func (s *selfModule) run(ctx *backend.Context, name string, args ...string) error {
	ctx.Logger.Info().Str("backend", backend.ReservedIdentity).Str("cmd", name).Strs("args", args).Msg("exec")
	_, err := tools.Exec(ctx.CommandRunner(), name, args...)
	return err
}

// moduleRef accepts a module path whose last element carries the backend
// prefix, e.g. github.com/acme/darling-pacman.
func moduleRef(entry backend.InstallationEntry) (ModuleRef, error) {
	path := strings.TrimSpace(entry.Name)
	if path == "" || strings.ContainsAny(path, " @\t") {
		return ModuleRef{}, fmt.Errorf("%w: %q", ErrInvalidModule, entry.Name)
	}
	if _, err := backend.IdentityFromPackage(path); err != nil {
		return ModuleRef{}, fmt.Errorf("%w: %w", ErrInvalidModule, err)
	}
	return ModuleRef{Path: path, Version: entry.Version()}, nil
}

func readManifest(src string) (manifest, error) {
	var m manifest
	data, err := os.ReadFile(filepath.Join(src, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, err
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("module manifest parse failed: %w", err)
	}
	return m, nil
}

func writeManifest(src string, m manifest) error {
	sort.Slice(m.Modules, func(i, j int) bool { return m.Modules[i].Path < m.Modules[j].Path })
	data, err := toml.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(src, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(src, ManifestFile), data, 0o644)
}

func writeGenerated(src string, m manifest) error {
	code, err := GenerateModules(m.Modules)
	if err != nil {
		return err
	}
	gen := filepath.Join(src, filepath.FromSlash(GeneratedFile))
	if err := os.MkdirAll(filepath.Dir(gen), 0o755); err != nil {
		return err
	}
	return os.WriteFile(gen, code, 0o644)
}

func (m *manifest) upsert(ref ModuleRef) {
	for i := range m.Modules {
		if m.Modules[i].Path == ref.Path {
			m.Modules[i] = ref
			return
		}
	}
	m.Modules = append(m.Modules, ref)
}

func (m *manifest) remove(path string) {
	out := m.Modules[:0]
	for _, ref := range m.Modules {
		if ref.Path != path {
			out = append(out, ref)
		}
	}
	m.Modules = out
}
