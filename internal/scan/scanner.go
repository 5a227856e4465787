// SPDX-License-Identifier: MPL-2.0

package scan

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/build"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/modfile"
)

// GeneratedFile is the name of the registration file written next to tagged
// code. The scanner never reads it.
const GeneratedFile = "modular_gen.go"

// ErrNoModule is returned when no go.mod encloses the scanned directory.
var ErrNoModule = errors.New("no go.mod found")

type (
	// Scanner reads the packages of one Go module.
	Scanner struct {
		// Dir is where module lookup starts and patterns are resolved.
		// Empty means the working directory.
		Dir string
	}

	// Module identifies the module being scanned.
	Module struct {
		Path string
		Root string
	}
)

// FindModule walks up from dir to the nearest go.mod and reads its module path.
func FindModule(dir string) (Module, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Module{}, err
	}
	for d := abs; ; {
		gomod := filepath.Join(d, "go.mod")
		data, err := os.ReadFile(gomod)
		switch {
		case err == nil:
			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return Module{}, fmt.Errorf("%s: missing module directive", gomod)
			}
			return Module{Path: modPath, Root: d}, nil
		case !errors.Is(err, fs.ErrNotExist):
			return Module{}, err
		}
		parent := filepath.Dir(d)
		if parent == d {
			return Module{}, fmt.Errorf("%w above %s", ErrNoModule, abs)
		}
		d = parent
	}
}

// ImportPath returns the import path of dir inside m.
func (m Module) ImportPath(dir string) (string, error) {
	rel, err := filepath.Rel(m.Root, dir)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return m.Path, nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside module %s", dir, m.Path)
	}
	return path.Join(m.Path, filepath.ToSlash(rel)), nil
}

// Scan parses the packages matched by patterns. A pattern is a directory
// ("./internal/hooks") or a directory followed by "/..." to include every
// package below it. No patterns means "./...".
func (s *Scanner) Scan(ctx context.Context, patterns ...string) (*Result, error) {
	base := s.Dir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	mod, err := FindModule(base)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	dirs, err := s.expand(base, mod, patterns)
	if err != nil {
		return nil, err
	}

	res := &Result{Module: mod}
	fset := token.NewFileSet()
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pkg, problems, err := parseDir(fset, mod, dir)
		res.Problems = append(res.Problems, problems...)
		if err != nil {
			res.Problems = append(res.Problems, Problem{Pos: token.Position{Filename: dir}, Err: err})
			continue
		}
		if pkg != nil {
			res.Packages = append(res.Packages, pkg)
		}
	}
	return res, nil
}

func (s *Scanner) expand(base string, mod Module, patterns []string) ([]string, error) {
	var dirs []string
	add := func(d string) {
		if !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}

	for _, pat := range patterns {
		dir, recursive := strings.CutSuffix(filepath.ToSlash(pat), "/...")
		if pat == "..." {
			dir, recursive = ".", true
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, filepath.FromSlash(dir))
		}
		if _, err := mod.ImportPath(dir); err != nil {
			return nil, err
		}
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("pattern %s: %w", pat, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("pattern %s: not a directory", pat)
		}
		if !recursive {
			add(dir)
			continue
		}

		walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if p != dir {
				name := d.Name()
				if name == "testdata" || name == "vendor" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
					return filepath.SkipDir
				}
				if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
					return filepath.SkipDir
				}
			}
			add(p)
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return dirs, nil
}

// parseDir parses the non-test Go files of dir whose build constraints match
// the default build context. It returns a nil package for directories
// without such files.
func parseDir(fset *token.FileSet, mod Module, dir string) (*Package, []Problem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") || name == GeneratedFile {
			continue
		}
		match, err := build.Default.MatchFile(dir, name)
		if err != nil {
			return nil, nil, err
		}
		if !match {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return nil, nil, nil
	}

	importPath, err := mod.ImportPath(dir)
	if err != nil {
		return nil, nil, err
	}

	parsed := make([]*ast.File, 0, len(files))
	for _, name := range files {
		f, err := parser.ParseFile(fset, name, nil, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, nil, err
		}
		if len(parsed) > 0 && f.Name.Name != parsed[0].Name.Name {
			return nil, nil, fmt.Errorf("found packages %s and %s in %s", parsed[0].Name.Name, f.Name.Name, dir)
		}
		parsed = append(parsed, f)
	}

	pkg, problems := BuildPackage(fset, importPath, parsed)
	pkg.Dir = dir
	return pkg, problems, nil
}
