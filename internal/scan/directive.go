// SPDX-License-Identifier: MPL-2.0

package scan

import (
	"errors"
	"fmt"
	"go/ast"
	"path"
	"strconv"
	"strings"
	"unicode"
)

const (
	// DirectivePrefix starts every directive comment.
	DirectivePrefix = "//modular:"
	// MarkerDirective declares the following type as a marker.
	MarkerDirective = "marker"
	// OnDirective tags the following function with markers.
	OnDirective = "on"
)

var (
	// ErrUnknownDirective is reported for //modular: comments with an
	// unrecognized key.
	ErrUnknownDirective = errors.New("unknown directive")
	// ErrEmptyTag is reported for //modular:on without any marker.
	ErrEmptyTag = errors.New("tag names no marker")
	// ErrUnknownQualifier is reported when a qualified marker reference does
	// not match any import of the file.
	ErrUnknownQualifier = errors.New("marker qualifier is not an imported package")
)

// directive is one parsed //modular: comment.
type directive struct {
	key  string
	args []string
	pos  *ast.Comment
}

// directives returns the //modular: comments of a comment group, in order.
// The prefix must start the comment with no space after the slashes, like
// other Go directives.
func directives(cg *ast.CommentGroup) []directive {
	if cg == nil {
		return nil
	}
	var out []directive
	for _, c := range cg.List {
		text, ok := strings.CutPrefix(c.Text, DirectivePrefix)
		if !ok {
			continue
		}
		key, rest, _ := strings.Cut(strings.TrimSpace(text), " ")
		d := directive{key: key, pos: c}
		for arg := range strings.SplitSeq(rest, ",") {
			if arg = strings.TrimSpace(arg); arg != "" {
				d.args = append(d.args, arg)
			}
		}
		out = append(out, d)
	}
	return out
}

// hasDirective reports whether any of the groups carries the key.
func hasDirective(key string, groups ...*ast.CommentGroup) bool {
	for _, cg := range groups {
		for _, d := range directives(cg) {
			if d.key == key {
				return true
			}
		}
	}
	return false
}

// importNames maps the names under which a file refers to its imports.
func importNames(f *ast.File) map[string]string {
	names := make(map[string]string, len(f.Imports))
	for _, spec := range f.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		switch {
		case spec.Name == nil:
			names[defaultImportName(p)] = p
		case spec.Name.Name == "_" || spec.Name.Name == ".":
		default:
			names[spec.Name.Name] = p
		}
	}
	return names
}

// defaultImportName guesses the package name of an import path the way
// goimports does: the last element without a major version suffix, a "go-"
// prefix or anything after the first non-identifier character.
func defaultImportName(p string) string {
	base := path.Base(p)
	if len(base) > 1 && base[0] == 'v' && isDigits(base[1:]) {
		if parent := path.Dir(p); parent != "." {
			base = path.Base(parent)
		}
	}
	base = strings.TrimPrefix(base, "go-")
	if i := strings.IndexFunc(base, func(r rune) bool { return !isIdentRune(r) }); i >= 0 {
		base = base[:i]
	}
	return base
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// resolveMarker turns a marker reference into a dispatch key.
func resolveMarker(ref, importPath string, imports map[string]string) (string, error) {
	if strings.Contains(ref, "/") {
		slash := strings.LastIndex(ref, "/")
		if !strings.Contains(ref[slash:], ".") {
			return "", fmt.Errorf("marker %q: full keys take the form <import path>.<Type>", ref)
		}
		return ref, nil
	}

	qualifier, name, qualified := strings.Cut(ref, ".")
	if !qualified {
		if !isIdent(ref) {
			return "", fmt.Errorf("marker %q is not an identifier", ref)
		}
		return importPath + "." + ref, nil
	}
	if !isIdent(qualifier) || !isIdent(name) {
		return "", fmt.Errorf("marker %q is not a qualified identifier", ref)
	}
	p, ok := imports[qualifier]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownQualifier, ref)
	}
	return p + "." + name, nil
}

func isIdent(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for _, r := range s {
		if !isIdentRune(r) {
			return false
		}
	}
	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
