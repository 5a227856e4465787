// SPDX-License-Identifier: MPL-2.0

// Package vet implements a go/analysis analyzer for //modular: directives.
//
// It reports tagged functions that discovery would record as invalid, tags
// that name something other than a marker type and directives the scanner
// cannot use. Marker types are exported as facts so that tags can be checked
// against markers declared in imported packages.
package vet

import (
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"

	"github.com/daylightnebula/modular/internal/discovery"
	"github.com/daylightnebula/modular/internal/scan"
)

// Diagnostic categories, reported in the "category" field of -json output.
const (
	CategoryNotDispatchable = "not-dispatchable"
	CategoryUnknownMarker   = "unknown-marker"
	CategoryNotMarker       = "not-marker"
	CategoryDirective       = "directive"
)

// Analyzer is the modularvet pass. Use it with singlechecker or via
// go vet -vettool.
var Analyzer = &analysis.Analyzer{
	Name:      "modularvet",
	Doc:       "reports //modular: tags that can never be dispatched",
	URL:       "https://github.com/daylightnebula/modular/internal/vet",
	Run:       run,
	FactTypes: []analysis.Fact{new(markerFact)},
}

// markerFact is attached to every type carrying the marker directive.
type markerFact struct{}

// AFact implements analysis.Fact.
func (*markerFact) AFact() {}

func (*markerFact) String() string { return "modular marker" }

func run(pass *analysis.Pass) (any, error) {
	pkg, problems := scan.BuildPackage(pass.Fset, pass.Pkg.Path(), pass.Files)

	for _, p := range problems {
		pass.Report(analysis.Diagnostic{Pos: p.At, Category: CategoryDirective, Message: p.Err.Error()})
	}

	for name, t := range pkg.Types {
		if !t.Marker {
			continue
		}
		if obj := pass.Pkg.Scope().Lookup(name); obj != nil {
			pass.ExportObjectFact(obj, new(markerFact))
		}
	}

	for _, fn := range pkg.Funcs {
		for _, key := range fn.Tags {
			checkMarker(pass, fn, key)
		}
		d := discovery.Classify(scan.Element{Package: pkg, Func: fn})
		if !d.Valid {
			pass.Report(analysis.Diagnostic{
				Pos:      fn.At,
				Category: CategoryNotDispatchable,
				Message:  d.Path + " is never dispatched: " + d.Reason,
			})
		}
	}
	return nil, nil
}

// checkMarker verifies that key names a marker type. Keys of packages that
// are neither the current package nor one of its imports cannot be checked.
func checkMarker(pass *analysis.Pass, fn *scan.Func, key string) {
	i := strings.LastIndexByte(key, '.')
	if i < 0 {
		return
	}
	path, name := key[:i], key[i+1:]

	scope := lookupScope(pass.Pkg, path)
	if scope == nil {
		return
	}
	short := shortKey(path, name)
	obj := scope.Lookup(name)
	if obj == nil {
		pass.Report(analysis.Diagnostic{
			Pos:      fn.At,
			Category: CategoryUnknownMarker,
			Message:  "unknown marker " + short,
		})
		return
	}
	if _, ok := obj.(*types.TypeName); !ok || !pass.ImportObjectFact(obj, new(markerFact)) {
		pass.Report(analysis.Diagnostic{
			Pos:      fn.At,
			Category: CategoryNotMarker,
			Message:  short + " is not a marker type",
		})
	}
}

func lookupScope(pkg *types.Package, path string) *types.Scope {
	if pkg.Path() == path {
		return pkg.Scope()
	}
	for _, imp := range pkg.Imports() {
		if imp.Path() == path {
			return imp.Scope()
		}
	}
	return nil
}

// shortKey renders a key with only the last import path element.
func shortKey(path, name string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	return path + "." + name
}
