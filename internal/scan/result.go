// SPDX-License-Identifier: MPL-2.0

package scan

import (
	"slices"
)

type (
	// Result is the outcome of a scan.
	Result struct {
		Module   Module
		Packages []*Package
		Problems []Problem
	}

	// Element is a tagged function together with its package.
	Element struct {
		Package *Package
		Func    *Func
	}
)

// Markers returns the dispatch keys of the marker types declared in the
// scanned packages, sorted.
func (r *Result) Markers() []string {
	var out []string
	for _, p := range r.Packages {
		out = append(out, p.Markers...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// AnnotatedWith returns the functions tagged with marker in package,
// declaration order.
func (r *Result) AnnotatedWith(marker string) []Element {
	var out []Element
	for _, p := range r.Packages {
		for _, fn := range p.Funcs {
			if slices.Contains(fn.Tags, marker) {
				out = append(out, Element{Package: p, Func: fn})
			}
		}
	}
	return out
}

// Referenced returns every marker key named by a tag, sorted.
func (r *Result) Referenced() []string {
	var out []string
	for _, p := range r.Packages {
		for _, fn := range p.Funcs {
			out = append(out, fn.Tags...)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Dirs returns the directories of the scanned packages, in scan order.
func (r *Result) Dirs() []string {
	out := make([]string, 0, len(r.Packages))
	for _, p := range r.Packages {
		out = append(out, p.Dir)
	}
	return out
}
