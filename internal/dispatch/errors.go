package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownBackend   = errors.New("dispatch: unknown backend")
	ErrUnknownOperation = errors.New("dispatch: unknown operation")
	ErrBackendFailure   = errors.New("dispatch: backend operation failed")
)

// BackendError wraps a backend-local failure. The original cause stays
// reachable through errors.Is and errors.As.
type BackendError struct {
	Backend   string
	Operation Operation
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend=%s op=%s: %v", e.Backend, e.Operation, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackendFailure
}

// PanicError records a panic raised inside a backend call.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("backend panicked: %v", e.Value)
}
