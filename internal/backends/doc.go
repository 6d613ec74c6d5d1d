// Package backends holds the package-manager backends compiled into the
// darling binary. Each subpackage exports exactly one registration slot
// named Module.
package backends
