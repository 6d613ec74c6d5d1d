// Package backend owns the contract between the darling host and the
// package-manager backends linked into it. It is public so backend modules
// developed outside this repository can implement it.
//
// Ownership boundary:
// - backend identity rules
// - backend capability interface
// - registration slot shape exported by each backend package
package backend
