package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/danmuck/darling/pkg/backend"
	"github.com/rs/zerolog/log"
)

var (
	ErrMalformedSlot     = errors.New("registry: malformed backend slot")
	ErrDuplicateIdentity = errors.New("registry: duplicate backend identity")
	ErrUnstableIdentity  = errors.New("registry: unstable backend identity")
	ErrNamingConvention  = errors.New("registry: backend naming convention violated")
)

// HostPackage is the package name recorded for the host's own backend.
const HostPackage = "darling"

// DuplicateIdentityError names both packages claiming the same identity.
type DuplicateIdentityError struct {
	Identity string
	First    string
	Second   string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("%v: identity=%q claimed by package=%q and package=%q",
		ErrDuplicateIdentity, e.Identity, e.First, e.Second)
}

func (e *DuplicateIdentityError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}

// Entry is one registered backend.
type Entry struct {
	Identity string
	Package  string
	Module   backend.Backend
}

// Registry maps backend identity to its capability instance.
type Registry struct {
	items map[string]Entry
}

type buildOptions struct {
	hostModule backend.Backend
}

// Option adjusts registry construction.
type Option func(*buildOptions)

// WithHostModule binds the host's self-management backend under the
// reserved identity. It is the only way that identity enters a registry.
func WithHostModule(b backend.Backend) Option {
	return func(o *buildOptions) {
		o.hostModule = b
	}
}

// Build validates every slot and returns an immutable registry.
func Build(slots []backend.Slot, opts ...Option) (*Registry, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{items: make(map[string]Entry, len(slots)+1)}
	if o.hostModule != nil {
		if name := o.hostModule.Name(); name != backend.ReservedIdentity {
			return nil, fmt.Errorf("%w: host module reports identity %q, want %q",
				ErrMalformedSlot, name, backend.ReservedIdentity)
		}
		r.items[backend.ReservedIdentity] = Entry{
			Identity: backend.ReservedIdentity,
			Package:  HostPackage,
			Module:   o.hostModule,
		}
	}

	packages := make(map[string]struct{}, len(slots))
	for i, slot := range slots {
		entry, err := checkSlot(slot)
		if err != nil {
			return nil, fmt.Errorf("slot[%d]: %w", i, err)
		}
		if _, ok := packages[entry.Package]; ok {
			return nil, fmt.Errorf("slot[%d]: %w: package=%q exports more than one slot",
				i, ErrMalformedSlot, entry.Package)
		}
		packages[entry.Package] = struct{}{}

		if prev, ok := r.items[entry.Identity]; ok {
			return nil, &DuplicateIdentityError{
				Identity: entry.Identity,
				First:    prev.Package,
				Second:   entry.Package,
			}
		}
		r.items[entry.Identity] = entry
		log.Debug().Str("backend", entry.Identity).Str("package", entry.Package).Msg("backend registered")
	}
	return r, nil
}

func checkSlot(slot backend.Slot) (Entry, error) {
	if slot.Package == "" {
		return Entry{}, fmt.Errorf("%w: missing package name", ErrMalformedSlot)
	}
	if slot.Module == nil {
		return Entry{}, fmt.Errorf("%w: package=%q has no capability instance", ErrMalformedSlot, slot.Package)
	}

	name := slot.Module.Name()
	if again := slot.Module.Name(); again != name {
		return Entry{}, fmt.Errorf("%w: package=%q reported %q then %q", ErrUnstableIdentity, slot.Package, name, again)
	}
	if err := backend.ValidateIdentity(name); err != nil {
		return Entry{}, fmt.Errorf("package=%q: %w", slot.Package, err)
	}

	want, err := backend.IdentityFromPackage(slot.Package)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrNamingConvention, err)
	}
	if want != name {
		return Entry{}, fmt.Errorf("%w: package=%q must report identity %q, got %q",
			ErrNamingConvention, slot.Package, want, name)
	}

	return Entry{Identity: name, Package: slot.Package, Module: slot.Module}, nil
}

// Resolve returns the backend registered under name. Matching is exact and
// case-sensitive; a miss is a normal outcome for the caller to handle.
func (r *Registry) Resolve(name string) (backend.Backend, bool) {
	entry, ok := r.items[name]
	if !ok {
		return nil, false
	}
	return entry.Module, true
}

// Len returns the number of registered backends, host module included.
func (r *Registry) Len() int {
	return len(r.items)
}

// Names returns registered identities in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns deterministic entry ordering by identity.
func (r *Registry) Entries() []Entry {
	list := make([]Entry, 0, len(r.items))
	for _, entry := range r.items {
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Identity < list[j].Identity
	})
	return list
}
