// Package brew manages Homebrew formulae.
package brew

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/darling/pkg/backend"
	"github.com/danmuck/darling/pkg/tools"
)

// Module is the brew backend's registration slot.
var Module = backend.Export("darling-brew", &Manager{})

// Installation properties understood by the brew backend.
const (
	PropertyTap       = "tap"
	PropertyBootstrap = "bootstrap"
)

var ErrBrewMissing = errors.New("brew: brew not installed")

var defaultBootstrapCommand = []string{
	"/bin/bash",
	"-c",
	`NONINTERACTIVE=1 /bin/bash -c "$(curl -fsSL https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh)"`,
}

// Manager drives the brew CLI. BootstrapCommand replaces the upstream
// installer script when brew has to be installed first.
type Manager struct {
	BootstrapCommand []string
}

func (*Manager) Name() string {
	return "brew"
}

// Install taps the formula's tap when given, then installs it. Homebrew has
// no version pinning beyond versioned formula names, so a version property
// selects name@version.
func (m *Manager) Install(ctx *backend.Context, entry backend.InstallationEntry) error {
	if err := m.ensureAvailable(ctx, entry); err != nil {
		return err
	}
	if tap, ok := entry.Property(PropertyTap); ok {
		if err := m.run(ctx, "brew", "tap", tap); err != nil {
			return err
		}
	}
	return m.run(ctx, "brew", "install", formula(entry))
}

func (m *Manager) Uninstall(ctx *backend.Context, entry backend.InstallationEntry) error {
	return m.run(ctx, "brew", "uninstall", formula(entry))
}

// ListExplicit reports formulae installed on request that no other formula
// depends on.
func (m *Manager) ListExplicit(ctx *backend.Context) ([]backend.Package, error) {
	runner := ctx.CommandRunner()
	leavesOut, err := tools.Exec(runner, "brew", "leaves", "--installed-on-request")
	if err != nil {
		return nil, wrap(err)
	}
	leaves := make(map[string]struct{})
	for _, line := range lines(leavesOut) {
		leaves[line] = struct{}{}
	}
	if len(leaves) == 0 {
		return []backend.Package{}, nil
	}

	versionsOut, err := tools.Exec(runner, "brew", "list", "--formula", "--versions")
	if err != nil {
		return nil, wrap(err)
	}
	pkgs := make([]backend.Package, 0, len(leaves))
	for _, line := range lines(versionsOut) {
		fields := strings.Fields(line)
		if _, ok := leaves[fields[0]]; !ok {
			continue
		}
		version := ""
		if len(fields) > 1 {
			version = fields[len(fields)-1]
		}
		pkgs = append(pkgs, backend.Package{Name: fields[0], Version: version})
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

// ensureAvailable checks brew --version and runs the bootstrap installer when the
// entry asks for it.
func (m *Manager) ensureAvailable(ctx *backend.Context, entry backend.InstallationEntry) error {
	checkErr := m.checkVersion(ctx)
	if checkErr == nil {
		return nil
	}
	if !errors.Is(checkErr, ErrBrewMissing) {
		return checkErr
	}

	if v, _ := entry.Property(PropertyBootstrap); v != "true" {
		return fmt.Errorf("%w: pass --%s=true or install brew first", ErrBrewMissing, PropertyBootstrap)
	}

	bootstrapCmd := m.BootstrapCommand
	if len(bootstrapCmd) == 0 {
		bootstrapCmd = defaultBootstrapCommand
	}
	if err := m.run(ctx, bootstrapCmd[0], bootstrapCmd[1:]...); err != nil {
		return err
	}
	if err := m.checkVersion(ctx); err != nil {
		return fmt.Errorf("%w: bootstrap completed but brew is still unavailable", ErrBrewMissing)
	}
	return nil
}

func (m *Manager) checkVersion(ctx *backend.Context) error {
	_, err := tools.Exec(ctx.CommandRunner(), "brew", "--version")
	return wrap(err)
}

func (m *Manager) run(ctx *backend.Context, name string, args ...string) error {
	ctx.Logger.Info().Str("backend", "brew").Str("cmd", name).Strs("args", args).Msg("exec")
	_, err := tools.Exec(ctx.CommandRunner(), name, args...)
	if name != "brew" {
		return err
	}
	return wrap(err)
}

// wrap maps a missing brew binary to ErrBrewMissing, keeping the command
// error reachable.
func wrap(err error) error {
	var cmdErr *tools.CommandError
	if errors.As(err, &cmdErr) && cmdErr.NotFound() {
		return fmt.Errorf("%w: %w", ErrBrewMissing, err)
	}
	return err
}

func formula(entry backend.InstallationEntry) string {
	if v := entry.Version(); v != "" {
		return entry.Name + "@" + v
	}
	return entry.Name
}

func lines(data []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}
