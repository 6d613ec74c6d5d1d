package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/darling/internal/observability"
	"github.com/danmuck/darling/pkg/backend"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Operation names one capability on the backend interface.
type Operation string

const (
	OpInstall      Operation = "install"
	OpUninstall    Operation = "uninstall"
	OpPostInstall  Operation = "post-install"
	OpListExplicit Operation = "list-explicit"
)

// Operations lists every operation the dispatcher can route.
func Operations() []Operation {
	return []Operation{OpInstall, OpUninstall, OpPostInstall, OpListExplicit}
}

// Resolver looks up backends by identity. *registry.Registry satisfies it.
type Resolver interface {
	Resolve(name string) (backend.Backend, bool)
	Names() []string
}

// Request is one routed operation.
type Request struct {
	Backend   string
	Operation Operation
	Entry     backend.InstallationEntry
}

// Result is the normalized outcome of a successful request.
type Result struct {
	InvocationID string
	Backend      string
	Operation    Operation
	Packages     []backend.Package
}

// Dispatcher routes requests to backends. It keeps no mutable state and is
// safe for concurrent use; ordering between calls is whatever the backends
// themselves guarantee.
type Dispatcher struct {
	backends Resolver
	ctx      *backend.Context
}

// New returns a dispatcher over backends, passing ctx to every call.
func New(backends Resolver, ctx *backend.Context) *Dispatcher {
	if ctx == nil {
		ctx = &backend.Context{}
	}
	return &Dispatcher{backends: backends, ctx: ctx}
}

// Invoke resolves req.Backend and runs req.Operation on it.
func (d *Dispatcher) Invoke(req Request) (Result, error) {
	start := time.Now()
	res := Result{
		InvocationID: uuid.NewString(),
		Backend:      req.Backend,
		Operation:    req.Operation,
	}

	b, ok := d.backends.Resolve(req.Backend)
	if !ok {
		observability.RecordDispatch(req.Backend, string(req.Operation), observability.OutcomeUnknownBackend, time.Since(start))
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownBackend, req.Backend)
	}

	var err error
	switch req.Operation {
	case OpInstall:
		err = guard(func() error { return b.Install(d.ctx, req.Entry) })
	case OpUninstall:
		err = guard(func() error { return b.Uninstall(d.ctx, req.Entry) })
	case OpPostInstall:
		err = guard(func() error { return backend.PostInstall(b, d.ctx) })
	case OpListExplicit:
		err = guard(func() error {
			pkgs, listErr := b.ListExplicit(d.ctx)
			res.Packages = pkgs
			return listErr
		})
	default:
		observability.RecordDispatch(req.Backend, string(req.Operation), observability.OutcomeInvalid, time.Since(start))
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Operation)
	}

	elapsed := time.Since(start)
	if err != nil {
		observability.RecordDispatch(req.Backend, string(req.Operation), observability.OutcomeBackendError, elapsed)
		log.Error().
			Str("invocation", res.InvocationID).
			Str("backend", req.Backend).
			Str("operation", string(req.Operation)).
			Str("package", req.Entry.Name).
			Err(err).
			Msg("backend operation failed")
		return Result{}, &BackendError{Backend: req.Backend, Operation: req.Operation, Err: err}
	}

	observability.RecordDispatch(req.Backend, string(req.Operation), observability.OutcomeOK, elapsed)
	log.Debug().
		Str("invocation", res.InvocationID).
		Str("backend", req.Backend).
		Str("operation", string(req.Operation)).
		Str("package", req.Entry.Name).
		Dur("duration", elapsed).
		Msg("backend operation complete")
	return res, nil
}

func (d *Dispatcher) Install(name string, entry backend.InstallationEntry) error {
	_, err := d.Invoke(Request{Backend: name, Operation: OpInstall, Entry: entry})
	return err
}

func (d *Dispatcher) Uninstall(name string, entry backend.InstallationEntry) error {
	_, err := d.Invoke(Request{Backend: name, Operation: OpUninstall, Entry: entry})
	return err
}

func (d *Dispatcher) PostInstall(name string) error {
	_, err := d.Invoke(Request{Backend: name, Operation: OpPostInstall})
	return err
}

func (d *Dispatcher) ListExplicit(name string) ([]backend.Package, error) {
	res, err := d.Invoke(Request{Backend: name, Operation: OpListExplicit})
	if err != nil {
		return nil, err
	}
	return res.Packages, nil
}

// InstallBatch installs every entry on one backend and runs its post-install
// step once at the end. It stops at the first failing entry.
func (d *Dispatcher) InstallBatch(name string, entries []backend.InstallationEntry) error {
	for _, entry := range entries {
		if err := d.Install(name, entry); err != nil {
			return fmt.Errorf("package=%q: %w", entry.Name, err)
		}
	}
	return d.PostInstall(name)
}

// ListAll runs list-explicit on every registered backend concurrently. The
// result is keyed by backend identity with packages sorted by name and holds
// every backend that answered. Failures are joined in backend order; one
// failing backend never hides the others.
func (d *Dispatcher) ListAll() (map[string][]backend.Package, error) {
	var (
		mu    sync.Mutex
		out   = make(map[string][]backend.Package)
		fails = make(map[string]error)
		g     errgroup.Group
	)
	g.SetLimit(4)
	names := d.backends.Names()
	for _, name := range names {
		name := name
		g.Go(func() error {
			pkgs, err := d.ListExplicit(name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fails[name] = err
				return nil
			}
			sorted := make([]backend.Package, len(pkgs))
			copy(sorted, pkgs)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
			out[name] = sorted
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, name := range names {
		if err, ok := fails[name]; ok {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
