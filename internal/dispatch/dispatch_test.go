package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/danmuck/darling/internal/registry"
	"github.com/danmuck/darling/internal/testutil/fakebackend"
	"github.com/danmuck/darling/internal/testutil/testlog"
	"github.com/danmuck/darling/pkg/backend"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func newDispatcher(t *testing.T, backends ...*fakebackend.Backend) *Dispatcher {
	t.Helper()
	slots := make([]backend.Slot, 0, len(backends))
	for _, b := range backends {
		slots = append(slots, b.Slot())
	}
	reg, err := registry.Build(slots)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return New(reg, &backend.Context{Config: backend.Config{SourceLocation: t.TempDir()}})
}

func TestInvokeRoutesOnlyToNamedBackend(t *testing.T) {
	testlog.Start(t)
	npm := fakebackend.New("npm")
	vscode := fakebackend.New("vscode")
	d := newDispatcher(t, npm, vscode)

	pkg := backend.InstallationEntry{Name: "typescript", Properties: map[string]string{"version": "5.6.3"}}
	res, err := d.Invoke(Request{Backend: "npm", Operation: OpInstall, Entry: pkg})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if res.Backend != "npm" || res.Operation != OpInstall || res.InvocationID == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	want := []fakebackend.Call{{Op: "install", Entry: pkg}}
	if diff := cmp.Diff(want, npm.Calls()); diff != "" {
		t.Fatalf("npm calls mismatch (-want +got):\n%s", diff)
	}
	if len(vscode.Calls()) != 0 {
		t.Fatalf("vscode should not be called, got %+v", vscode.Calls())
	}
}

func TestInvokeUnknownBackend(t *testing.T) {
	testlog.Start(t)
	npm := fakebackend.New("npm")
	d := newDispatcher(t, npm, fakebackend.New("vscode"))

	_, err := d.Invoke(Request{Backend: "unknown", Operation: OpInstall, Entry: backend.InstallationEntry{Name: "x"}})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
	if errors.Is(err, ErrBackendFailure) {
		t.Fatalf("unknown backend must not look like a backend failure")
	}
	if len(npm.Calls()) != 0 {
		t.Fatalf("no backend should be called")
	}
}

func TestInvokeUnknownOperation(t *testing.T) {
	testlog.Start(t)
	npm := fakebackend.New("npm")
	d := newDispatcher(t, npm)

	if _, err := d.Invoke(Request{Backend: "npm", Operation: "upgrade"}); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
	if len(npm.Calls()) != 0 {
		t.Fatalf("backend should not be called for unknown operation")
	}
}

type permissionError struct{ path string }

func (e *permissionError) Error() string { return "permission denied: " + e.path }

func TestInvokeWrapsBackendFailureKeepingCause(t *testing.T) {
	testlog.Start(t)
	npm := fakebackend.New("npm")
	npm.Fail = fmt.Errorf("install left-pad: %w", &permissionError{path: "/usr/lib/node_modules"})
	d := newDispatcher(t, npm)

	err := d.Install("npm", backend.InstallationEntry{Name: "left-pad"})
	if !errors.Is(err, ErrBackendFailure) {
		t.Fatalf("expected ErrBackendFailure, got %v", err)
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Backend != "npm" || be.Operation != OpInstall {
		t.Fatalf("expected *BackendError for npm install, got %#v", err)
	}
	var perm *permissionError
	if !errors.As(err, &perm) || perm.path != "/usr/lib/node_modules" {
		t.Fatalf("original cause lost: %v", err)
	}
	if err.Error() != "backend=npm op=install: install left-pad: permission denied: /usr/lib/node_modules" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestInvokeRecoversBackendPanic(t *testing.T) {
	testlog.Start(t)
	npm := fakebackend.New("npm")
	npm.Panic = "nil map write"
	d := newDispatcher(t, npm)

	_, err := d.ListExplicit("npm")
	var pe *PanicError
	if !errors.As(err, &pe) || pe.Value != "nil map write" {
		t.Fatalf("expected *PanicError, got %v", err)
	}
	if !errors.Is(err, ErrBackendFailure) {
		t.Fatalf("panic should surface as backend failure")
	}
}

func TestInstallBatchRunsPostInstallOnce(t *testing.T) {
	testlog.Start(t)
	npm := fakebackend.New("npm")
	d := newDispatcher(t, npm)

	entries := []backend.InstallationEntry{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	if err := d.InstallBatch("npm", entries); err != nil {
		t.Fatalf("install batch: %v", err)
	}
	if npm.PostInstalls() != 1 {
		t.Fatalf("expected one post-install, got %d", npm.PostInstalls())
	}
	calls := npm.Calls()
	if calls[len(calls)-1].Op != "post-install" {
		t.Fatalf("post-install should run last: %+v", calls)
	}
}

func TestInstallBatchStopsAtFailure(t *testing.T) {
	testlog.Start(t)
	npm := fakebackend.New("npm")
	npm.Fail = errors.New("registry unreachable")
	d := newDispatcher(t, npm)

	err := d.InstallBatch("npm", []backend.InstallationEntry{{Name: "a"}, {Name: "b"}})
	if !errors.Is(err, ErrBackendFailure) {
		t.Fatalf("expected backend failure, got %v", err)
	}
	if npm.PostInstalls() != 0 || len(npm.Calls()) != 1 {
		t.Fatalf("batch should stop after first failure: %+v", npm.Calls())
	}
}

func TestListAllCollectsEveryBackend(t *testing.T) {
	testlog.Start(t)
	npm := fakebackend.New("npm")
	npm.Seed("typescript", "5.6.3")
	npm.Seed("eslint", "9.1.0")
	vscode := fakebackend.New("vscode")
	vscode.Seed("golang.go", "0.42.1")
	d := newDispatcher(t, npm, vscode, fakebackend.New("brew"))

	got, err := d.ListAll()
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	want := map[string][]backend.Package{
		"brew":   {},
		"npm":    {{Name: "eslint", Version: "9.1.0"}, {Name: "typescript", Version: "5.6.3"}},
		"vscode": {{Name: "golang.go", Version: "0.42.1"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list all mismatch (-want +got):\n%s", diff)
	}
}

func TestListAllKeepsAnsweringBackends(t *testing.T) {
	testlog.Start(t)
	npm := fakebackend.New("npm")
	npm.Seed("typescript", "5.6.3")
	brew := fakebackend.New("brew")
	brew.Panic = "brew: command not found"
	vscode := fakebackend.New("vscode")
	vscode.Panic = "code: command not found"
	d := newDispatcher(t, npm, brew, vscode)

	got, err := d.ListAll()
	want := map[string][]backend.Package{
		"npm": {{Name: "typescript", Version: "5.6.3"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list all mismatch (-want +got):\n%s", diff)
	}

	if !errors.Is(err, ErrBackendFailure) {
		t.Fatalf("expected joined backend failures, got %v", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected a joined error, got %T", err)
	}
	var failed []string
	for _, e := range joined.Unwrap() {
		var be *BackendError
		if !errors.As(e, &be) {
			t.Fatalf("expected *BackendError, got %T", e)
		}
		failed = append(failed, be.Backend)
	}
	if diff := cmp.Diff([]string{"brew", "vscode"}, failed); diff != "" {
		t.Fatalf("failed backends mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentDispatchIsIndependent(t *testing.T) {
	defer goleak.VerifyNone(t)
	testlog.Start(t)
	npm := fakebackend.New("npm")
	vscode := fakebackend.New("vscode")
	d := newDispatcher(t, npm, vscode)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := "npm"
			if i%2 == 1 {
				name = "vscode"
			}
			entry := backend.InstallationEntry{Name: fmt.Sprintf("pkg-%02d", i)}
			if err := d.Install(name, entry); err != nil {
				t.Errorf("install %s: %v", entry.Name, err)
			}
		}()
	}
	wg.Wait()

	npmPkgs, err := d.ListExplicit("npm")
	if err != nil {
		t.Fatalf("list npm: %v", err)
	}
	vscodePkgs, err := d.ListExplicit("vscode")
	if err != nil {
		t.Fatalf("list vscode: %v", err)
	}
	if len(npmPkgs) != 16 || len(vscodePkgs) != 16 {
		t.Fatalf("expected 16 packages per backend, got npm=%d vscode=%d", len(npmPkgs), len(vscodePkgs))
	}
}
