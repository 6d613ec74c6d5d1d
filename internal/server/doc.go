// Package server exposes a read-only local status API over the host: health,
// prometheus metrics, the module registry and what each backend reports as
// explicitly installed. It never installs or removes anything.
package server
