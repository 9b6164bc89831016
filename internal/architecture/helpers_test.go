package architecture_test

import (
	"go/ast"
	"go/doc"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const modulePath = "github.com/jacoelho/fastinfoset"

func repoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repository root with go.mod not found from %s", dir)
		}
		dir = parent
	}
}

func internalPkg(name string) string {
	return modulePath + "/internal/" + name
}

// walkSources parses every Go file of the module and passes it to fn with
// its path relative to the repository root.
func walkSources(t *testing.T, mode parser.Mode, withTests bool, fn func(rel string, fset *token.FileSet, file *ast.File)) {
	t.Helper()

	root := repoRoot(t)
	fset := token.NewFileSet()
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (name == "vendor" || name == "testdata" ||
				strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || (!withTests && strings.HasSuffix(name, "_test.go")) {
			return nil
		}
		file, err := parser.ParseFile(fset, path, nil, mode)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		fn(filepath.ToSlash(rel), fset, file)
		return nil
	})
	if err != nil {
		t.Fatalf("walk module sources: %v", err)
	}
}

// internalImports maps each internal package to the module packages its
// non-test files import.
func internalImports(t *testing.T) map[string]map[string]bool {
	t.Helper()

	graph := make(map[string]map[string]bool)
	walkSources(t, parser.ImportsOnly, false, func(rel string, _ *token.FileSet, file *ast.File) {
		dir, ok := strings.CutPrefix(filepath.ToSlash(filepath.Dir(rel)), "internal/")
		if !ok {
			return
		}
		pkg := internalPkg(dir)
		if graph[pkg] == nil {
			graph[pkg] = make(map[string]bool)
		}
		for _, imp := range file.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				t.Fatalf("%s: import %s: %v", rel, imp.Path.Value, err)
			}
			if strings.HasPrefix(path, modulePath) {
				graph[pkg][path] = true
			}
		}
	})
	return graph
}

// rootExports lists the exported API of the root package as "kind Name"
// entries, with methods written as "method Type.Name".
func rootExports(t *testing.T) map[string]bool {
	t.Helper()

	var (
		files []*ast.File
		fset  *token.FileSet
	)
	walkSources(t, parser.ParseComments, false, func(rel string, fs *token.FileSet, file *ast.File) {
		if strings.Contains(rel, "/") {
			return
		}
		fset = fs
		files = append(files, file)
	})
	if len(files) == 0 {
		t.Fatal("no root package files found")
	}
	pkg, err := doc.NewFromFiles(fset, files, modulePath)
	if err != nil {
		t.Fatalf("package docs: %v", err)
	}

	exports := make(map[string]bool)
	addValues := func(kind string, values []*doc.Value) {
		for _, v := range values {
			for _, name := range v.Names {
				exports[kind+" "+name] = true
			}
		}
	}
	addValues("const", pkg.Consts)
	addValues("var", pkg.Vars)
	for _, f := range pkg.Funcs {
		exports["func "+f.Name] = true
	}
	for _, typ := range pkg.Types {
		exports["type "+typ.Name] = true
		addValues("const", typ.Consts)
		addValues("var", typ.Vars)
		for _, f := range typ.Funcs {
			exports["func "+f.Name] = true
		}
		for _, m := range typ.Methods {
			exports["method "+typ.Name+"."+m.Name] = true
		}
	}
	return exports
}
