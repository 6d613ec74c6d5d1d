package backend

import (
	"strings"

	"github.com/danmuck/darling/pkg/tools"
	"github.com/rs/zerolog"
)

// PropertyVersion is the installation property carrying a requested version.
const PropertyVersion = "version"

// InstallationEntry names one package plus the free-form properties passed on
// the command line as --key=value pairs (for example --source=aur).
type InstallationEntry struct {
	Name       string            `toml:"name" json:"name"`
	Properties map[string]string `toml:"properties,omitempty" json:"properties,omitempty"`
}

// Property returns a trimmed property value.
func (e InstallationEntry) Property(key string) (string, bool) {
	v, ok := e.Properties[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Version returns the requested version, or "" for latest.
func (e InstallationEntry) Version() string {
	v, _ := e.Property(PropertyVersion)
	return v
}

// Package is one explicitly installed package reported by a backend.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Config is the global, immutable host configuration visible to backends.
type Config struct {
	SourceLocation string
}

// Context is handed to every backend call. Backends must treat it as read-only.
type Context struct {
	Config Config
	Runner tools.CommandRunner
	Logger zerolog.Logger
}

// CommandRunner returns the runner backends execute through, or a local
// one when the host supplied none.
func (c *Context) CommandRunner() tools.CommandRunner {
	if c != nil && c.Runner != nil {
		return c.Runner
	}
	return tools.ExecRunner{}
}

// Backend is the capability surface the host calls on every linked backend.
// Implementations are shared process-wide and must be safe for concurrent use.
type Backend interface {
	// Name returns the backend identity. It must return the same value on
	// every call and be safe to call before anything else.
	Name() string

	// Install installs entry on the system, latest version when none is
	// requested. The host owns the cache; Install must not touch it.
	Install(ctx *Context, entry InstallationEntry) error

	// Uninstall removes entry from the system.
	Uninstall(ctx *Context, entry InstallationEntry) error

	// ListExplicit reports packages installed explicitly, i.e. not as a
	// dependency of another package. It reads the system, never the cache.
	ListExplicit(ctx *Context) ([]Package, error)
}

// PostInstaller is implemented by backends that need a step after a single
// install or after a whole batch, such as a rebuild.
type PostInstaller interface {
	PostInstall(ctx *Context) error
}

// PostInstall runs b's post-install step when it has one.
func PostInstall(b Backend, ctx *Context) error {
	if p, ok := b.(PostInstaller); ok {
		return p.PostInstall(ctx)
	}
	return nil
}
