// Package dispatch routes host operations to backends by identity.
//
// The dispatcher owns no I/O of its own: it resolves the backend, forwards
// the request unchanged and folds whatever the backend returns (or panics
// with) into one error taxonomy so callers never need backend-specific
// handling.
package dispatch
