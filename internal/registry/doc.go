// Package registry builds the host's read-only index of linked backends.
//
// The registry is assembled once at startup from the backends' registration
// slots. Any invalid, unstable, misnamed or duplicated identity aborts the
// build: the host cannot run with an ambiguous backend set. After Build
// returns, lookups need no locking.
package registry
