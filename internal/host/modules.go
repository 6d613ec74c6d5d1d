package host

import (
	"github.com/danmuck/darling/internal/backends/brew"
	"github.com/danmuck/darling/internal/backends/npm"
	"github.com/danmuck/darling/internal/backends/vscode"
	"github.com/danmuck/darling/pkg/backend"
)

// LinkedModules is the slot table of backends compiled into this binary.
// Backends added through the module backend are appended by the generated
// file in cmd/darling.
var LinkedModules = []backend.Slot{
	brew.Module,
	npm.Module,
	vscode.Module,
}
