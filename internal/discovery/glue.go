// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"bytes"
	"fmt"
	"go/format"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/daylightnebula/modular/internal/scan"
	"github.com/daylightnebula/modular/pkg/fragment"
)

// DefaultRuntimeImport is the import path of the package the generated code
// registers with.
const DefaultRuntimeImport = "github.com/daylightnebula/modular/pkg/modular"

const glueHeader = "// Code generated by modular discover. DO NOT EDIT."

var glueTemplate = template.Must(template.New("glue").Parse(glueHeader + `

package {{.Package}}

import modular "{{.Runtime}}"

func init() {
{{- range .Funcs}}
	modular.RegisterFunc({{printf "%q" .Path}}, {{.Expr}})
{{- end}}
{{- range .Receivers}}

	modular.{{.Register}}({{printf "%q" .Owner}}, {{.Expr}})
{{- range .Methods}}
	modular.{{.Register}}({{printf "%q" .Owner}}, {{printf "%q" .Name}}, {{.Expr}})
{{- end}}
{{- end}}
}
`))

type (
	// glueFile collects the registrations generated for one package.
	glueFile struct {
		Package   string
		Runtime   string
		Funcs     []glueFunc
		Receivers []*glueReceiver

		dir  string
		seen map[string]bool
	}

	glueFunc struct {
		Path string
		Expr string
	}

	glueReceiver struct {
		Register string
		Owner    string
		Expr     string
		Methods  []glueMethod
	}

	glueMethod struct {
		Register string
		Owner    string
		Name     string
		Expr     string
	}

	// glueSet holds the registration files of one run, keyed by package
	// directory.
	glueSet struct {
		runtime string
		files   map[string]*glueFile
	}
)

func newGlueSet(runtime string) *glueSet {
	return &glueSet{runtime: runtime, files: make(map[string]*glueFile)}
}

// add records the registrations that make the valid descriptor d reachable.
// Functions tagged with several markers are registered once.
func (g *glueSet) add(el scan.Element, d fragment.Descriptor) {
	pkg, fn := el.Package, el.Func

	f := g.files[pkg.Dir]
	if f == nil {
		f = &glueFile{Package: pkg.Name, Runtime: g.runtime, dir: pkg.Dir, seen: make(map[string]bool)}
		g.files[pkg.Dir] = f
	}
	id := string(d.Kind) + " " + d.Path
	if f.seen[id] {
		return
	}
	f.seen[id] = true

	switch d.Kind {
	case fragment.KindStaticFunction:
		f.Funcs = append(f.Funcs, glueFunc{Path: d.Path, Expr: fn.Name})

	case fragment.KindSingletonMethod:
		r := f.receiver("RegisterSingleton", d.Owner, func() string {
			return addressOf(singletonReceiver(pkg, fn.Recv))
		})
		r.Methods = append(r.Methods, glueMethod{
			Register: "RegisterSingletonMethod",
			Owner:    d.Owner,
			Name:     fn.Name,
			Expr:     methodExpr(fn),
		})

	case fragment.KindSharedHolderMethod:
		r := f.receiver("RegisterHolder", d.Owner, func() string {
			if v := holderReceiver(pkg, fn.Recv); v != nil {
				return addressOf(v)
			}
			return "new(" + fn.Recv + ")"
		})
		r.Methods = append(r.Methods, glueMethod{
			Register: "RegisterHolderMethod",
			Owner:    d.Owner,
			Name:     fn.Name,
			Expr:     methodExpr(fn),
		})
	}
}

func (f *glueFile) receiver(register, owner string, expr func() string) *glueReceiver {
	for _, r := range f.Receivers {
		if r.Register == register && r.Owner == owner {
			return r
		}
	}
	r := &glueReceiver{Register: register, Owner: owner, Expr: expr()}
	f.Receivers = append(f.Receivers, r)
	return r
}

// dirs returns the package directories with registrations, sorted.
func (g *glueSet) dirs() []string {
	out := make([]string, 0, len(g.files))
	for dir := range g.files {
		out = append(out, dir)
	}
	slices.Sort(out)
	return out
}

// render produces the gofmt-formatted registration file of dir.
func (g *glueSet) render(dir string) ([]byte, error) {
	f := g.files[dir]
	if f == nil {
		return nil, fmt.Errorf("no registrations for %s", dir)
	}
	var buf bytes.Buffer
	if err := glueTemplate.Execute(&buf, f); err != nil {
		return nil, err
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated code for %s: %w", f.Package, err)
	}
	return out, nil
}

// writeGlue writes the registration files and removes generated files left
// in scanned packages that no longer have dispatchable functions.
func (a *Analyzer) writeGlue(g *glueSet, scanned []string, res *Result) {
	name := a.opts.GlueFile
	if name == "" {
		name = scan.GeneratedFile
	}

	for _, dir := range g.dirs() {
		target := filepath.Join(dir, name)
		data, err := g.render(dir)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, failure(CodeGlueWriteFailed, target, "failed to generate registration code", err))
			continue
		}
		changed, err := writeFile(target, data)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, failure(CodeGlueWriteFailed, target, "failed to write registration code", err))
			continue
		}
		res.Glue = append(res.Glue, target)
		if changed {
			res.Written = append(res.Written, target)
			a.logger.Info("wrote registration code", "path", target)
		}
	}

	for _, dir := range scanned {
		if g.files[dir] != nil {
			continue
		}
		target := filepath.Join(dir, name)
		removed, err := removeGenerated(target)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, warning(CodeGlueWriteFailed, target, "failed to remove stale registration code", err))
			continue
		}
		if removed {
			res.RemovedGlue = append(res.RemovedGlue, target)
			a.logger.Info("removed stale registration code", "path", target)
		}
	}
}

func isGenerated(data []byte) bool {
	return bytes.HasPrefix(data, []byte(glueHeader))
}

func addressOf(v *scan.Var) string {
	if v.Pointer {
		return v.Name
	}
	return "&" + v.Name
}

func methodExpr(fn *scan.Func) string {
	var sb strings.Builder
	if fn.PointerRecv {
		fmt.Fprintf(&sb, "(*%s)", fn.Recv)
	} else {
		sb.WriteString(fn.Recv)
	}
	sb.WriteString(".")
	sb.WriteString(fn.Name)
	return sb.String()
}
