// SPDX-License-Identifier: MPL-2.0

package scan

import (
	"fmt"
	"go/ast"
	"go/token"
	"slices"
)

type (
	// Package is the part of a Go package that classification needs.
	Package struct {
		ImportPath string
		Name       string
		Dir        string
		// Files are the parsed file names, in parse order.
		Files []string
		// Types are the named types declared at package level.
		Types map[string]*Type
		// Vars are package-level variables whose type is a named type of
		// this package, in declaration order.
		Vars []Var
		// Funcs are the tagged functions and methods, in declaration order.
		Funcs []*Func
		// Markers are the dispatch keys of marker types declared here.
		Markers []string
	}

	// Type is a package-level named type.
	Type struct {
		Name    string
		Generic bool
		Marker  bool
		// Constructors are exported package functions whose first result is
		// the type or a pointer to it.
		Constructors []string
	}

	// Var is a package-level variable of a local named type.
	Var struct {
		Name string
		// Type is the named type, without the pointer.
		Type    string
		Pointer bool
	}

	// Func is a tagged function or method.
	Func struct {
		Name string
		// Recv is the receiver's base type name, empty for plain functions.
		Recv        string
		PointerRecv bool
		// Generic is set for functions with type parameters and methods of
		// generic types.
		Generic bool
		// Tags are the resolved marker keys, in directive order.
		Tags []string
		Pos  token.Position
		// At is Pos in the file set the package was built with.
		At token.Pos
	}

	// Problem is a non-fatal issue found while reading source.
	Problem struct {
		Pos token.Position
		At  token.Pos
		Err error
	}
)

// Type returns the named type called name, or nil.
func (p *Package) Type(name string) *Type {
	return p.Types[name]
}

// VarsOf returns the package-level variables of the named type.
func (p *Package) VarsOf(typeName string) []Var {
	var out []Var
	for _, v := range p.Vars {
		if v.Type == typeName {
			out = append(out, v)
		}
	}
	return out
}

// String returns the import path.
func (p *Package) String() string { return p.ImportPath }

// Error implements the error interface.
func (p Problem) Error() string {
	return fmt.Sprintf("%s: %v", p.Pos, p.Err)
}

// Unwrap returns the underlying error.
func (p Problem) Unwrap() error { return p.Err }

// BuildPackage builds the package model of already parsed files. It is used
// by the scanner and by the vet analyzer, which receives files from the
// analysis driver.
func BuildPackage(fset *token.FileSet, importPath string, files []*ast.File) (*Package, []Problem) {
	b := &builder{
		fset: fset,
		pkg: &Package{
			ImportPath: importPath,
			Types:      make(map[string]*Type),
		},
	}
	for _, f := range files {
		if b.pkg.Name == "" {
			b.pkg.Name = f.Name.Name
		}
		b.pkg.Files = append(b.pkg.Files, fset.Position(f.Package).Filename)
		b.collectTypes(f)
	}
	for _, f := range files {
		b.collectDecls(f)
	}
	for name, t := range b.pkg.Types {
		if t.Marker {
			b.pkg.Markers = append(b.pkg.Markers, importPath+"."+name)
		}
	}
	slices.Sort(b.pkg.Markers)
	return b.pkg, b.problems
}

type builder struct {
	fset     *token.FileSet
	pkg      *Package
	problems []Problem
}

func (b *builder) problem(pos token.Pos, err error) {
	b.problems = append(b.problems, Problem{Pos: b.fset.Position(pos), At: pos, Err: err})
}

func (b *builder) collectTypes(f *ast.File) {
	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			// A directive on an unparenthesized declaration belongs to its
			// only spec.
			groups := []*ast.CommentGroup{ts.Doc, ts.Comment}
			if !gen.Lparen.IsValid() {
				groups = append(groups, gen.Doc)
			}
			b.pkg.Types[ts.Name.Name] = &Type{
				Name:    ts.Name.Name,
				Generic: ts.TypeParams != nil && ts.TypeParams.NumFields() > 0,
				Marker:  hasDirective(MarkerDirective, groups...),
			}
		}
	}
}

func (b *builder) collectDecls(f *ast.File) {
	imports := importNames(f)
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok == token.VAR {
				b.collectVars(d)
			}
			b.checkStrayDirectives(d)
		case *ast.FuncDecl:
			b.collectConstructor(d)
			b.collectFunc(d, imports)
		}
	}
}

func (b *builder) collectVars(gen *ast.GenDecl) {
	for _, spec := range gen.Specs {
		vs := spec.(*ast.ValueSpec)
		for i, name := range vs.Names {
			if name.Name == "_" {
				continue
			}
			var (
				typeName string
				pointer  bool
			)
			switch {
			case vs.Type != nil:
				typeName, pointer = namedType(vs.Type)
			case i < len(vs.Values):
				typeName, pointer = valueType(vs.Values[i])
			}
			if typeName == "" || b.pkg.Types[typeName] == nil {
				continue
			}
			b.pkg.Vars = append(b.pkg.Vars, Var{Name: name.Name, Type: typeName, Pointer: pointer})
		}
	}
}

// checkStrayDirectives reports tags placed on non-function declarations.
func (b *builder) checkStrayDirectives(gen *ast.GenDecl) {
	groups := []*ast.CommentGroup{gen.Doc}
	for _, spec := range gen.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			groups = append(groups, s.Doc)
		case *ast.ValueSpec:
			groups = append(groups, s.Doc)
		}
	}
	for _, cg := range groups {
		for _, d := range directives(cg) {
			switch d.key {
			case MarkerDirective:
				if gen.Tok != token.TYPE {
					b.problem(d.pos.Pos(), fmt.Errorf("//modular:marker must precede a type declaration"))
				}
			case OnDirective:
				b.problem(d.pos.Pos(), fmt.Errorf("//modular:on must precede a function declaration"))
			default:
				b.problem(d.pos.Pos(), fmt.Errorf("%w: %q", ErrUnknownDirective, d.key))
			}
		}
	}
}

func (b *builder) collectConstructor(fd *ast.FuncDecl) {
	if fd.Recv != nil || !fd.Name.IsExported() || fd.Type.Results == nil || len(fd.Type.Results.List) == 0 {
		return
	}
	typeName, _ := namedType(fd.Type.Results.List[0].Type)
	if t := b.pkg.Types[typeName]; t != nil {
		t.Constructors = append(t.Constructors, fd.Name.Name)
	}
}

func (b *builder) collectFunc(fd *ast.FuncDecl, imports map[string]string) {
	var tags []string
	for _, d := range directives(fd.Doc) {
		switch d.key {
		case OnDirective:
			if len(d.args) == 0 {
				b.problem(d.pos.Pos(), ErrEmptyTag)
				continue
			}
			for _, ref := range d.args {
				key, err := resolveMarker(ref, b.pkg.ImportPath, imports)
				if err != nil {
					b.problem(d.pos.Pos(), err)
					continue
				}
				if !slices.Contains(tags, key) {
					tags = append(tags, key)
				}
			}
		case MarkerDirective:
			b.problem(d.pos.Pos(), fmt.Errorf("//modular:marker must precede a type declaration"))
		default:
			b.problem(d.pos.Pos(), fmt.Errorf("%w: %q", ErrUnknownDirective, d.key))
		}
	}
	if len(tags) == 0 {
		return
	}

	fn := &Func{
		Name:    fd.Name.Name,
		Generic: fd.Type.TypeParams != nil && fd.Type.TypeParams.NumFields() > 0,
		Tags:    tags,
		Pos:     b.fset.Position(fd.Name.Pos()),
		At:      fd.Name.Pos(),
	}
	if fd.Recv != nil && len(fd.Recv.List) == 1 {
		recv := fd.Recv.List[0].Type
		if star, ok := recv.(*ast.StarExpr); ok {
			fn.PointerRecv = true
			recv = star.X
		}
		switch r := recv.(type) {
		case *ast.Ident:
			fn.Recv = r.Name
		case *ast.IndexExpr:
			fn.Generic = true
			fn.Recv = identName(r.X)
		case *ast.IndexListExpr:
			fn.Generic = true
			fn.Recv = identName(r.X)
		}
	}
	b.pkg.Funcs = append(b.pkg.Funcs, fn)
}

// namedType returns the local type name of T or *T expressions.
func namedType(expr ast.Expr) (string, bool) {
	if star, ok := expr.(*ast.StarExpr); ok {
		return identName(star.X), true
	}
	return identName(expr), false
}

// valueType infers the local type of T{}, &T{} and new(T) initializers.
func valueType(expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.CompositeLit:
		return identName(e.Type), false
	case *ast.UnaryExpr:
		if lit, ok := e.X.(*ast.CompositeLit); ok && e.Op == token.AND {
			return identName(lit.Type), true
		}
	case *ast.CallExpr:
		if fn, ok := e.Fun.(*ast.Ident); ok && fn.Name == "new" && len(e.Args) == 1 {
			return identName(e.Args[0]), true
		}
	}
	return "", false
}

func identName(expr ast.Expr) string {
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}
