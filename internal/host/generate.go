package host

import (
	"bytes"
	"fmt"
	"go/format"
	"reflect"
	"text/template"

	"github.com/danmuck/darling/pkg/backend"
)

// ContractPath is the import path external modules build their slot against.
var ContractPath = reflect.TypeOf(backend.Slot{}).PkgPath()

var modulesTemplate = template.Must(template.New("modules").Parse(`// Code generated by darling; DO NOT EDIT.

package main

import (
	{{ printf "%q" .Contract }}
{{- range $i, $m := .Modules }}
	mod{{ $i }} {{ printf "%q" $m.Path }}
{{- end }}
)

// externalModules are the backend modules added through the module backend.
var externalModules = []backend.Slot{
{{- range $i, $m := .Modules }}
	mod{{ $i }}.Module,
{{- end }}
}
`))

// GenerateModules renders the cmd/darling slot table for refs. Each module's
// root package must export its registration slot as Module.
func GenerateModules(refs []ModuleRef) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Contract string
		Modules  []ModuleRef
	}{Contract: ContractPath, Modules: refs}
	if err := modulesTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render modules: %w", err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format modules: %w", err)
	}
	return out, nil
}
