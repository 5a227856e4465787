// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/daylightnebula/modular/internal/scan"
	"github.com/daylightnebula/modular/pkg/fragment"
)

const classifySource = `package hooks

//modular:marker
type OnStart struct{}

//modular:on OnStart
func Static() {}

type Server struct{}

var Instance = &Server{}

//modular:on OnStart
func (s *Server) Start() {}

type Plugin struct{}

type PluginCompanion struct{}

var holder PluginCompanion

//modular:on OnStart
func (PluginCompanion) Load() {}

type Conn struct{}

func NewConn() *Conn { return &Conn{} }

var defaultConn = &Conn{}

//modular:on OnStart
func (c *Conn) Open() {}

type Lonely struct{}

var lonely Lonely

//modular:on OnStart
func (Lonely) Ping() {}

type Box[T any] struct{}

//modular:on OnStart
func (b *Box[T]) Fill() {}

//modular:on OnStart
func Generic[T any](v T) {}

type OrphanCompanion struct{}

var orphan = &OrphanCompanion{}

//modular:on OnStart
func (o *OrphanCompanion) Tick() {}
`

// parseResult builds a scan result from in-memory sources keyed by import path.
func parseResult(t *testing.T, sources map[string]string) *scan.Result {
	t.Helper()
	fset := token.NewFileSet()
	res := &scan.Result{}
	for importPath, src := range sources {
		f, err := parser.ParseFile(fset, importPath+"/src.go", src, parser.ParseComments)
		if err != nil {
			t.Fatalf("parse %s: %v", importPath, err)
		}
		pkg, problems := scan.BuildPackage(fset, importPath, []*ast.File{f})
		if len(problems) != 0 {
			t.Fatalf("problems in %s: %v", importPath, problems)
		}
		pkg.Dir = t.TempDir()
		res.Packages = append(res.Packages, pkg)
	}
	return res
}

func TestClassify(t *testing.T) {
	t.Parallel()

	const pkg = "example.com/hooks"
	res := parseResult(t, map[string]string{pkg: classifySource})
	elements := res.AnnotatedWith(pkg + ".OnStart")

	byName := make(map[string]fragment.Descriptor)
	for _, el := range elements {
		byName[el.Func.Name] = Classify(el)
	}

	tests := []struct {
		fn     string
		kind   fragment.InvocationKind
		owner  string
		path   string
		valid  bool
		reason string
	}{
		{"Static", fragment.KindStaticFunction, pkg, pkg + ".Static", true, reasonStaticFunction},
		{"Start", fragment.KindSingletonMethod, pkg + ".Server", pkg + ".Server.Start", true, reasonSingletonMethod},
		{"Load", fragment.KindSharedHolderMethod, pkg + ".Plugin", pkg + ".Plugin.Load", true, reasonHolderMethod},
		{"Open", fragment.KindInstanceMethod, pkg + ".Conn", pkg + ".Conn.Open", false, reasonInstanceMethod},
		{"Ping", fragment.KindSingletonMethod, pkg + ".Lonely", pkg + ".Lonely.Ping", true, reasonSingletonMethod},
		{"Fill", fragment.KindInstanceMethod, pkg + ".Box", pkg + ".Box.Fill", false, reasonInstanceMethod},
		{"Generic", fragment.KindStaticFunction, pkg, pkg + ".Generic", false, reasonGeneric},
		{"Tick", fragment.KindSingletonMethod, pkg + ".OrphanCompanion", pkg + ".OrphanCompanion.Tick", true, reasonSingletonMethod},
	}

	if len(byName) != len(tests) {
		t.Fatalf("classified %d functions, want %d", len(byName), len(tests))
	}
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			t.Parallel()
			d, ok := byName[tt.fn]
			if !ok {
				t.Fatalf("%s not classified", tt.fn)
			}
			if d.Kind != tt.kind || d.Owner != tt.owner || d.Path != tt.path {
				t.Errorf("Classify(%s) = %+v, want kind %s owner %s path %s", tt.fn, d, tt.kind, tt.owner, tt.path)
			}
			if d.Function != tt.fn {
				t.Errorf("Function = %q, want %q", d.Function, tt.fn)
			}
			if d.Valid != tt.valid || d.Reason != tt.reason {
				t.Errorf("Valid, Reason = %v, %q; want %v, %q", d.Valid, d.Reason, tt.valid, tt.reason)
			}
		})
	}
}

func TestClassify_CompanionWinsOverSingleton(t *testing.T) {
	t.Parallel()

	const pkg = "example.com/holder"
	res := parseResult(t, map[string]string{pkg: `package holder

type Cache struct{}

type CacheCompanion struct{}

var Instance = &CacheCompanion{}

//modular:on example.com/events.OnStart
func (c *CacheCompanion) Warm() {}
`})

	els := res.AnnotatedWith("example.com/events.OnStart")
	if len(els) != 1 {
		t.Fatalf("AnnotatedWith() = %d elements, want 1", len(els))
	}
	d := Classify(els[0])
	if d.Kind != fragment.KindSharedHolderMethod || d.Owner != pkg+".Cache" {
		t.Errorf("Classify() = %+v, want shared holder owned by Cache", d)
	}
}

func TestSingletonReceiver(t *testing.T) {
	t.Parallel()

	const pkg = "example.com/single"
	res := parseResult(t, map[string]string{pkg: `package single

type Named struct{}

func NewNamed() *Named { return nil }

var (
	other    Named
	Instance = &Named{}
)

type Two struct{}

var a, b Two

type None struct{}
`})
	p := res.Packages[0]

	if v := singletonReceiver(p, "Named"); v == nil || v.Name != "Instance" || !v.Pointer {
		t.Errorf("singletonReceiver(Named) = %+v, want pointer var Instance", v)
	}
	if v := singletonReceiver(p, "Two"); v != nil {
		t.Errorf("singletonReceiver(Two) = %+v, want nil", v)
	}
	if v := singletonReceiver(p, "None"); v != nil {
		t.Errorf("singletonReceiver(None) = %+v, want nil", v)
	}
	if v := singletonReceiver(p, "Missing"); v != nil {
		t.Errorf("singletonReceiver(Missing) = %+v, want nil", v)
	}
}
