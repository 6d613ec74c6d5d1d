// Package host wires the darling process together: it builds the module
// registry from the linked slot table, binds its own self-management backend
// under the reserved identity and keeps the installed-package cache in step
// with successful dispatches.
package host
