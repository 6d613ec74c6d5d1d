// Package vscode manages Visual Studio Code extensions.
package vscode

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/darling/pkg/backend"
	"github.com/danmuck/darling/pkg/tools"
)

// Module is the vscode backend's registration slot.
var Module = backend.Export("darling-vscode", &Manager{Binary: "code"})

var ErrInvalidExtension = errors.New("vscode: invalid extension id")

// Manager drives the editor CLI. Binary may point at a compatible build such
// as codium.
type Manager struct {
	Binary string
}

func (*Manager) Name() string {
	return "vscode"
}

func (m *Manager) Install(ctx *backend.Context, entry backend.InstallationEntry) error {
	if err := validateExtensionID(entry.Name); err != nil {
		return err
	}
	target := entry.Name
	if v := entry.Version(); v != "" {
		target += "@" + v
	}
	return m.run(ctx, "--install-extension", target, "--force")
}

func (m *Manager) Uninstall(ctx *backend.Context, entry backend.InstallationEntry) error {
	if err := validateExtensionID(entry.Name); err != nil {
		return err
	}
	return m.run(ctx, "--uninstall-extension", entry.Name)
}

// ListExplicit reports every installed extension. The editor records no
// dependency relation, so all of them count as explicit.
func (m *Manager) ListExplicit(ctx *backend.Context) ([]backend.Package, error) {
	out, err := tools.Exec(ctx.CommandRunner(), m.binary(), "--list-extensions", "--show-versions")
	if err != nil {
		return nil, err
	}
	return parseList(out), nil
}

func parseList(data []byte) []backend.Package {
	pkgs := make([]backend.Package, 0)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, version, _ := strings.Cut(line, "@")
		pkgs = append(pkgs, backend.Package{Name: name, Version: version})
	}
	return pkgs
}

func (m *Manager) run(ctx *backend.Context, args ...string) error {
	ctx.Logger.Info().Str("backend", "vscode").Strs("args", args).Msg("exec")
	_, err := tools.Exec(ctx.CommandRunner(), m.binary(), args...)
	return err
}

func (m *Manager) binary() string {
	if strings.TrimSpace(m.Binary) == "" {
		return "code"
	}
	return m.Binary
}

// validateExtensionID requires the publisher.extension form.
func validateExtensionID(id string) error {
	publisher, name, ok := strings.Cut(id, ".")
	if !ok || publisher == "" || name == "" || strings.ContainsAny(id, " @/") {
		return fmt.Errorf("%w: %q", ErrInvalidExtension, id)
	}
	return nil
}
