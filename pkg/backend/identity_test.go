package backend

import (
	"errors"
	"testing"

	"github.com/danmuck/darling/internal/testutil/testlog"
)

func TestValidateIdentityReserved(t *testing.T) {
	testlog.Start(t)
	if err := ValidateIdentity(ReservedIdentity); !errors.Is(err, ErrIdentityReserved) {
		t.Fatalf("expected ErrIdentityReserved, got %v", err)
	}
}

func TestValidateIdentityEmpty(t *testing.T) {
	testlog.Start(t)
	if err := ValidateIdentity(""); !errors.Is(err, ErrIdentityEmpty) {
		t.Fatalf("expected ErrIdentityEmpty, got %v", err)
	}
}

func TestValidateIdentityAccepts(t *testing.T) {
	testlog.Start(t)
	for _, id := range []string{"npm", "vscode", "Module", "modules", " module", "pacman-aur", "x"} {
		if err := ValidateIdentity(id); err != nil {
			t.Fatalf("expected %q to be valid, got %v", id, err)
		}
	}
}

func TestIdentityFromPackage(t *testing.T) {
	testlog.Start(t)
	id, err := IdentityFromPackage("darling-npm")
	if err != nil || id != "npm" {
		t.Fatalf("unexpected identity=%q err=%v", id, err)
	}
	id, err = IdentityFromPackage("github.com/acme/darling-vscode")
	if err != nil || id != "vscode" {
		t.Fatalf("unexpected identity=%q err=%v", id, err)
	}
	if _, err := IdentityFromPackage("github.com/darling-acme/npm"); !errors.Is(err, ErrMissingPrefix) {
		t.Fatalf("expected ErrMissingPrefix, got %v", err)
	}
	if _, err := IdentityFromPackage("npm"); !errors.Is(err, ErrMissingPrefix) {
		t.Fatalf("expected ErrMissingPrefix, got %v", err)
	}
}

type stubBackend struct {
	name        string
	postInstall int
}

func (s *stubBackend) Name() string                                { return s.name }
func (s *stubBackend) Install(*Context, InstallationEntry) error   { return nil }
func (s *stubBackend) Uninstall(*Context, InstallationEntry) error { return nil }
func (s *stubBackend) ListExplicit(*Context) ([]Package, error)    { return nil, nil }

type postStubBackend struct{ stubBackend }

func (s *postStubBackend) PostInstall(*Context) error {
	s.postInstall++
	return nil
}

func TestPostInstallDefaultsToNoop(t *testing.T) {
	testlog.Start(t)
	plain := &stubBackend{name: "plain"}
	if err := PostInstall(plain, &Context{}); err != nil {
		t.Fatalf("post install: %v", err)
	}

	hooked := &postStubBackend{stubBackend{name: "hooked"}}
	if err := PostInstall(hooked, &Context{}); err != nil {
		t.Fatalf("post install: %v", err)
	}
	if hooked.postInstall != 1 {
		t.Fatalf("expected hook to run once, ran %d", hooked.postInstall)
	}
}

func TestInstallationEntryProperties(t *testing.T) {
	testlog.Start(t)
	e := InstallationEntry{Name: "joshuto", Properties: map[string]string{"source": "aur", "version": "  ", PropertyVersion + "x": "1"}}
	if v, ok := e.Property("source"); !ok || v != "aur" {
		t.Fatalf("unexpected source property %q %v", v, ok)
	}
	if e.Version() != "" {
		t.Fatalf("blank version should read as latest, got %q", e.Version())
	}
	if _, ok := e.Property("missing"); ok {
		t.Fatalf("missing property reported present")
	}
}

func TestExportBuildsSlot(t *testing.T) {
	testlog.Start(t)
	b := &stubBackend{name: "npm"}
	slot := Export("darling-npm", b)
	if slot.Package != "darling-npm" || slot.Module != b {
		t.Fatalf("unexpected slot %+v", slot)
	}
}
