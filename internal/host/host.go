package host

import (
	"errors"
	"fmt"

	"github.com/danmuck/darling/internal/cache"
	"github.com/danmuck/darling/internal/config"
	"github.com/danmuck/darling/internal/dispatch"
	"github.com/danmuck/darling/internal/observability"
	"github.com/danmuck/darling/internal/registry"
	"github.com/danmuck/darling/pkg/backend"
	"github.com/danmuck/darling/pkg/tools"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Host owns the registry, the dispatcher and the installed-package cache.
type Host struct {
	cfg        config.Config
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	cache      *cache.Cache
	logger     zerolog.Logger
}

type options struct {
	linked []backend.Slot
	extra  []backend.Slot
	runner tools.CommandRunner
	logger *zerolog.Logger
}

type Option func(*options)

// WithModules appends slots to the linked table, typically the generated
// external modules.
func WithModules(slots ...backend.Slot) Option {
	return func(o *options) {
		o.extra = append(o.extra, slots...)
	}
}

// WithLinked replaces LinkedModules.
func WithLinked(slots ...backend.Slot) Option {
	return func(o *options) {
		o.linked = slots
	}
}

// WithRunner overrides the runner derived from the config.
func WithRunner(r tools.CommandRunner) Option {
	return func(o *options) {
		o.runner = r
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// New builds the registry from the linked slots plus the host's own module
// backend. Registry failures are fatal to the caller.
func New(cfg config.Config, opts ...Option) (*Host, error) {
	o := options{linked: LinkedModules}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		o.runner = cfg.CommandRunner()
	}
	logger := log.Logger
	if o.logger != nil {
		logger = *o.logger
	}

	slots := make([]backend.Slot, 0, len(o.linked)+len(o.extra))
	slots = append(slots, o.linked...)
	slots = append(slots, o.extra...)
	reg, err := registry.Build(slots, registry.WithHostModule(&selfModule{}))
	if err != nil {
		return nil, err
	}
	observability.SetRegisteredBackends(reg.Len())

	c, err := cache.Open(cfg.CachePath)
	if err != nil {
		return nil, err
	}

	ctx := &backend.Context{
		Config: backend.Config{SourceLocation: cfg.SourceLocation},
		Runner: o.runner,
		Logger: logger,
	}
	return &Host{
		cfg:        cfg,
		registry:   reg,
		dispatcher: dispatch.New(reg, ctx),
		cache:      c,
		logger:     logger,
	}, nil
}

func (h *Host) Registry() *registry.Registry {
	return h.registry
}

func (h *Host) Dispatcher() *dispatch.Dispatcher {
	return h.dispatcher
}

func (h *Host) Config() config.Config {
	return h.cfg
}

// Install installs one package, runs the backend's post-install step and
// records the entry once both succeed.
func (h *Host) Install(name string, entry backend.InstallationEntry) error {
	if err := h.dispatcher.InstallBatch(name, []backend.InstallationEntry{entry}); err != nil {
		return err
	}
	if err := h.cache.Record(name, entry); err != nil {
		return fmt.Errorf("installed %s/%s but cache update failed: %w", name, entry.Name, err)
	}
	h.logger.Info().Str("backend", name).Str("package", entry.Name).Msg("installed")
	return nil
}

// Uninstall removes one package and drops it from the cache.
func (h *Host) Uninstall(name string, entry backend.InstallationEntry) error {
	if err := h.dispatcher.Uninstall(name, entry); err != nil {
		return err
	}
	if err := h.cache.Forget(name, entry.Name); err != nil {
		return fmt.Errorf("uninstalled %s/%s but cache update failed: %w", name, entry.Name, err)
	}
	h.logger.Info().Str("backend", name).Str("package", entry.Name).Msg("uninstalled")
	return nil
}

// RequireAll rebuilds the cache from what every backend reports as
// explicitly installed. Backends that fail to answer keep their cached
// entries; their errors are joined into the result alongside the packages
// of every backend that did answer.
func (h *Host) RequireAll() (map[string][]backend.Package, error) {
	all, listErr := h.dispatcher.ListAll()
	errs := []error{listErr}
	for _, name := range h.registry.Names() {
		pkgs, ok := all[name]
		if !ok {
			h.logger.Warn().Str("backend", name).Msg("require-all skipped backend, cache kept")
			continue
		}
		entries := make([]backend.InstallationEntry, 0, len(pkgs))
		for _, p := range pkgs {
			entry := backend.InstallationEntry{Name: p.Name}
			if p.Version != "" {
				entry.Properties = map[string]string{backend.PropertyVersion: p.Version}
			}
			entries = append(entries, entry)
		}
		if err := h.cache.Replace(name, entries); err != nil {
			errs = append(errs, err)
			continue
		}
		h.logger.Info().Str("backend", name).Int("packages", len(entries)).Msg("required")
	}
	return all, errors.Join(errs...)
}

// LoadInstalled reinstalls every cached entry. Each backend is handled as
// one batch; a failing backend does not stop the others.
func (h *Host) LoadInstalled() error {
	var errs []error
	for _, name := range h.cache.Backends() {
		entries := h.cache.Entries(name)
		if len(entries) == 0 {
			continue
		}
		if err := h.dispatcher.InstallBatch(name, entries); err != nil {
			h.logger.Error().Err(err).Str("backend", name).Msg("load installed failed")
			errs = append(errs, err)
			continue
		}
		h.logger.Info().Str("backend", name).Int("packages", len(entries)).Msg("loaded")
	}
	return errors.Join(errs...)
}

// Installed returns the cached entries keyed by backend identity.
func (h *Host) Installed() map[string][]backend.InstallationEntry {
	out := make(map[string][]backend.InstallationEntry)
	for _, name := range h.cache.Backends() {
		out[name] = h.cache.Entries(name)
	}
	return out
}
