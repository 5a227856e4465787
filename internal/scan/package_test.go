// SPDX-License-Identifier: MPL-2.0

package scan

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"slices"
	"testing"
)

const hooksSource = `package hooks

import (
	"example.com/app/events"
	ev "example.com/app/events/v2"
)

//modular:marker
type OnStartup struct{}

type (
	//modular:marker
	OnTick struct{}

	Server struct{ started bool }

	Worker struct{}

	WorkerCompanion struct{}

	Box[T any] struct{ v T }
)

var Instance = &Server{}

var (
	explicit Server
	viaNew   = new(WorkerCompanion)
	other    = 42
	_        = Server{}
)

func NewWorker() *Worker { return &Worker{} }

func helper() Server { return Server{} }

//modular:on OnStartup
func Setup() {}

// Start starts the server.
//
//modular:on OnStartup, events.OnReload
func (s *Server) Start() {}

//modular:on ev.OnStop
func (WorkerCompanion) stop() {}

//modular:on OnTick
func Each[T any](v T) {}

//modular:on OnTick
func (b *Box[T]) tick() {}

// untagged is ignored.
func untagged() {}
`

func buildHooks(t *testing.T, src string) (*Package, []Problem) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "hooks.go", src, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}
	return BuildPackage(fset, "example.com/app/hooks", []*ast.File{f})
}

func TestBuildPackage(t *testing.T) {
	t.Parallel()

	pkg, problems := buildHooks(t, hooksSource)
	if len(problems) != 0 {
		t.Fatalf("problems = %v", problems)
	}

	if pkg.Name != "hooks" {
		t.Errorf("Name = %q", pkg.Name)
	}
	wantMarkers := []string{"example.com/app/hooks.OnStartup", "example.com/app/hooks.OnTick"}
	if !slices.Equal(pkg.Markers, wantMarkers) {
		t.Errorf("Markers = %v, want %v", pkg.Markers, wantMarkers)
	}
	if !pkg.Type("Box").Generic || pkg.Type("Server").Generic {
		t.Error("generic flag wrong")
	}
	if got := pkg.Type("Worker").Constructors; !slices.Equal(got, []string{"NewWorker"}) {
		t.Errorf("Worker constructors = %v", got)
	}
	if got := pkg.Type("Server").Constructors; len(got) != 0 {
		t.Errorf("unexported helper counted as constructor: %v", got)
	}

	wantVars := []Var{
		{Name: "Instance", Type: "Server", Pointer: true},
		{Name: "explicit", Type: "Server"},
		{Name: "viaNew", Type: "WorkerCompanion", Pointer: true},
	}
	if !slices.Equal(pkg.Vars, wantVars) {
		t.Errorf("Vars = %+v, want %+v", pkg.Vars, wantVars)
	}
	if got := pkg.VarsOf("Server"); len(got) != 2 {
		t.Errorf("VarsOf(Server) = %+v", got)
	}

	type fnWant struct {
		name, recv string
		ptr, gen   bool
		tags       []string
	}
	want := []fnWant{
		{"Setup", "", false, false, []string{"example.com/app/hooks.OnStartup"}},
		{"Start", "Server", true, false, []string{"example.com/app/hooks.OnStartup", "example.com/app/events.OnReload"}},
		{"stop", "WorkerCompanion", false, false, []string{"example.com/app/events/v2.OnStop"}},
		{"Each", "", false, true, []string{"example.com/app/hooks.OnTick"}},
		{"tick", "Box", true, true, []string{"example.com/app/hooks.OnTick"}},
	}
	if len(pkg.Funcs) != len(want) {
		t.Fatalf("Funcs = %d, want %d", len(pkg.Funcs), len(want))
	}
	for i, w := range want {
		fn := pkg.Funcs[i]
		if fn.Name != w.name || fn.Recv != w.recv || fn.PointerRecv != w.ptr || fn.Generic != w.gen || !slices.Equal(fn.Tags, w.tags) {
			t.Errorf("Funcs[%d] = %+v, want %+v", i, fn, w)
		}
	}
	if pkg.Funcs[0].Pos.Line == 0 {
		t.Error("Pos not recorded")
	}
}

func TestBuildPackage_Problems(t *testing.T) {
	t.Parallel()

	src := `package hooks

//modular:on OnStartup
type Wrong struct{}

//modular:marker
var notAType int

//modular:listen OnStartup
func Unknown() {}

//modular:on
func Empty() {}

//modular:on missing.OnStartup
func BadQualifier() {}
`
	pkg, problems := buildHooks(t, src)

	if len(pkg.Funcs) != 0 {
		t.Errorf("Funcs = %+v, want none", pkg.Funcs)
	}
	if len(problems) != 5 {
		t.Fatalf("problems = %v, want 5", problems)
	}
	if !errors.Is(problems[2], ErrUnknownDirective) {
		t.Errorf("problems[2] = %v, want unknown directive", problems[2])
	}
	if !slices.ContainsFunc(problems, func(p Problem) bool { return errors.Is(p, ErrEmptyTag) }) {
		t.Error("empty tag not reported")
	}
	if !slices.ContainsFunc(problems, func(p Problem) bool { return errors.Is(p, ErrUnknownQualifier) }) {
		t.Error("unknown qualifier not reported")
	}
}

func TestBuildPackage_DuplicateTagsCollapse(t *testing.T) {
	t.Parallel()

	src := `package hooks

//modular:marker
type OnStartup struct{}

//modular:on OnStartup
//modular:on OnStartup, example.com/app/hooks.OnStartup
func Setup() {}
`
	pkg, problems := buildHooks(t, src)
	if len(problems) != 0 {
		t.Fatal(problems)
	}
	if got := pkg.Funcs[0].Tags; len(got) != 1 {
		t.Errorf("Tags = %v, want one", got)
	}
}
