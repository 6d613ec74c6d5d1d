package backend

// Slot binds a published backend package, identified by its module path, to
// its single capability instance.
// Each backend package exports exactly one, as a package-level variable named
// Module, so it exists before the host runs:
//
//	var Module = backend.Export("darling-npm", &Manager{})
type Slot struct {
	Package string
	Module  Backend
}

// Export builds the registration slot for a backend package.
func Export(pkg string, b Backend) Slot {
	return Slot{Package: pkg, Module: b}
}
