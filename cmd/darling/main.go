// Command darling installs and tracks packages across package managers
// through statically linked backend modules.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
