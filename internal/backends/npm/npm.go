// Package npm manages globally installed node packages.
package npm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/danmuck/darling/pkg/backend"
	"github.com/danmuck/darling/pkg/tools"
)

// Module is the npm backend's registration slot.
var Module = backend.Export("darling-npm", &Manager{})

var ErrNPMMissing = errors.New("npm: npm not installed")

// Manager drives the npm CLI. It holds no state.
type Manager struct{}

func (*Manager) Name() string {
	return "npm"
}

func (m *Manager) Install(ctx *backend.Context, entry backend.InstallationEntry) error {
	target := entry.Name
	if v := entry.Version(); v != "" {
		target += "@" + v
	}
	return m.run(ctx, "install", "--global", target)
}

func (m *Manager) Uninstall(ctx *backend.Context, entry backend.InstallationEntry) error {
	return m.run(ctx, "uninstall", "--global", entry.Name)
}

type lsOutput struct {
	Dependencies map[string]struct {
		Version string `json:"version"`
	} `json:"dependencies"`
}

// ListExplicit reports top-level global packages; their dependencies are
// never explicit.
func (m *Manager) ListExplicit(ctx *backend.Context) ([]backend.Package, error) {
	out, err := tools.Exec(ctx.CommandRunner(), "npm", "ls", "--global", "--depth=0", "--json")
	if err != nil {
		return nil, m.wrap(err)
	}
	return parseList(out)
}

func parseList(data []byte) ([]backend.Package, error) {
	var ls lsOutput
	if err := json.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("npm: parse ls output: %w", err)
	}
	pkgs := make([]backend.Package, 0, len(ls.Dependencies))
	for name, dep := range ls.Dependencies {
		pkgs = append(pkgs, backend.Package{Name: name, Version: dep.Version})
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

func (m *Manager) run(ctx *backend.Context, args ...string) error {
	ctx.Logger.Info().Str("backend", "npm").Strs("args", args).Msg("exec")
	_, err := tools.Exec(ctx.CommandRunner(), "npm", args...)
	return m.wrap(err)
}

func (*Manager) wrap(err error) error {
	var cmdErr *tools.CommandError
	if errors.As(err, &cmdErr) && cmdErr.NotFound() {
		return fmt.Errorf("%w: %w", ErrNPMMissing, err)
	}
	return err
}
