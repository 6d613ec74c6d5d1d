package backend

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// ReservedIdentity is bound by the host to its own self-management backend.
	ReservedIdentity = "module"

	// PackagePrefix marks a published package as a darling backend.
	PackagePrefix = "darling-"
)

var (
	ErrIdentityEmpty    = errors.New("backend: identity is empty")
	ErrIdentityReserved = errors.New("backend: identity is reserved")
	ErrMissingPrefix    = errors.New("backend: package name missing prefix")
)

// ValidateIdentity checks a candidate backend identity. It does not check
// uniqueness; that needs the full backend set and belongs to the registry.
func ValidateIdentity(candidate string) error {
	if candidate == "" {
		return ErrIdentityEmpty
	}
	if candidate == ReservedIdentity {
		return fmt.Errorf("%w: %q", ErrIdentityReserved, candidate)
	}
	return nil
}

// IdentityFromPackage returns the identity a backend published as pkg is
// expected to report. pkg is a module path; only its last element carries
// the prefix, so github.com/acme/darling-npm reports "npm".
func IdentityFromPackage(pkg string) (string, error) {
	name, ok := strings.CutPrefix(path.Base(pkg), PackagePrefix)
	if !ok {
		return "", fmt.Errorf("%w: package=%q prefix=%q", ErrMissingPrefix, pkg, PackagePrefix)
	}
	return name, nil
}
