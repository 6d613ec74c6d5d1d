package host

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"
	"strings"
	"testing"

	"github.com/danmuck/darling/internal/testutil/testlog"
)

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) {
	return f(path)
}

// importAllowed applies the go toolchain's internal-package rule.
func importAllowed(from, path string) bool {
	i := strings.LastIndex(path, "/internal/")
	if i < 0 {
		if !strings.HasSuffix(path, "/internal") {
			return true
		}
		i = len(path) - len("/internal")
	}
	parent := path[:i]
	return from == parent || strings.HasPrefix(from, parent+"/")
}

func TestImportAllowed(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		from, path string
		want       bool
	}{
		{"github.com/acme/darling-pacman", "github.com/danmuck/darling/pkg/backend", true},
		{"github.com/acme/darling-pacman", "github.com/danmuck/darling/internal/backend", false},
		{"github.com/danmuck/darling/cmd/darling", "github.com/danmuck/darling/internal/host", true},
		{"github.com/acme/x", "github.com/danmuck/darling/internal", false},
	}
	for _, tc := range cases {
		if got := importAllowed(tc.from, tc.path); got != tc.want {
			t.Fatalf("importAllowed(%q, %q)=%v want %v", tc.from, tc.path, got, tc.want)
		}
	}
}

// External backend modules live outside this repository, so the contract
// they export their slot against must not sit under an internal directory.
func TestContractImportableByExternalModules(t *testing.T) {
	testlog.Start(t)
	for _, ext := range []string{"github.com/acme/darling-pacman", "example.org/darling-apt"} {
		if !importAllowed(ext, ContractPath) {
			t.Fatalf("%s cannot import contract %s", ext, ContractPath)
		}
	}
}

// The rendered slot table must type-check against modules that export
// Module as a slot of the contract package.
func TestGeneratedModulesTypeCheck(t *testing.T) {
	testlog.Start(t)
	refs := []ModuleRef{
		{Path: "github.com/acme/darling-apt"},
		{Path: "github.com/acme/darling-pacman", Version: "v0.2.0"},
	}
	code, err := GenerateModules(refs)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "modules_gen.go", code, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse generated: %v\n%s", err, code)
	}

	contract := types.NewPackage(ContractPath, "backend")
	slotName := types.NewTypeName(token.NoPos, contract, "Slot", nil)
	slot := types.NewNamed(slotName, types.NewStruct(nil, nil), nil)
	contract.Scope().Insert(slotName)
	contract.MarkComplete()

	stubs := map[string]*types.Package{ContractPath: contract}
	for _, ref := range refs {
		if !importAllowed(ref.Path, ContractPath) {
			t.Fatalf("module %s cannot import %s", ref.Path, ContractPath)
		}
		name := ref.Path[strings.LastIndex(ref.Path, "/")+1:]
		pkg := types.NewPackage(ref.Path, strings.ReplaceAll(name, "-", ""))
		pkg.Scope().Insert(types.NewVar(token.NoPos, pkg, "Module", slot))
		pkg.MarkComplete()
		stubs[ref.Path] = pkg
	}

	conf := types.Config{Importer: importerFunc(func(path string) (*types.Package, error) {
		if pkg, ok := stubs[path]; ok {
			return pkg, nil
		}
		t.Fatalf("generated code imports unexpected package %q", path)
		return nil, nil
	})}
	info := &types.Info{Types: make(map[ast.Expr]types.TypeAndValue)}
	if _, err := conf.Check("github.com/danmuck/darling/cmd/darling", fset, []*ast.File{file}, info); err != nil {
		t.Fatalf("generated code does not type-check: %v\n%s", err, code)
	}

	var imports []string
	for _, spec := range file.Imports {
		path, _ := strconv.Unquote(spec.Path.Value)
		imports = append(imports, path)
	}
	want := []string{ContractPath, refs[0].Path, refs[1].Path}
	if strings.Join(imports, ",") != strings.Join(want, ",") {
		t.Fatalf("imports=%v want %v", imports, want)
	}
}
