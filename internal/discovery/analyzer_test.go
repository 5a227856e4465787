// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"go/parser"
	"go/token"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/daylightnebula/modular/internal/scan"
	"github.com/daylightnebula/modular/internal/testutil"
	"github.com/daylightnebula/modular/pkg/fragment"
	"github.com/daylightnebula/modular/pkg/modular"
)

const (
	startupKey  = "example.com/app/events.OnStartup"
	reloadKey   = "example.com/app/events.OnReload"
	externalKey = "example.com/ext.OnExternal"
	hooksPkg    = "example.com/app/hooks"
)

const hooksSource = `package hooks

import "example.com/app/events"

var _ events.OnStartup

type Server struct{ started bool }

var Instance = &Server{}

//modular:on events.OnStartup
func (s *Server) Start() { s.started = true }

type Worker struct{}

type WorkerCompanion struct{}

//modular:on events.OnStartup, events.OnReload
func (WorkerCompanion) Spawn(n int) {}

//modular:on events.OnStartup
func Setup() {}

type Conn struct{}

//modular:on events.OnStartup
func (c *Conn) Open() {}

//modular:on example.com/ext.OnExternal
func External() {}

//modular:on example.com/nowhere.Unknown
func Ignored() {}
`

func writeApp(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"go.mod": "module example.com/app\n\ngo 1.25\n",
		"events/events.go": `package events

//modular:marker
type OnStartup struct{}

//modular:marker
type OnReload struct{}
`,
		"hooks/hooks.go": hooksSource,
	})
	return root
}

func scanApp(t *testing.T, root string) *scan.Result {
	t.Helper()
	res, err := (&scan.Scanner{Dir: root}).Scan(t.Context())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return res
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runAnalyzer(t *testing.T, opts Options, src Source) *Result {
	t.Helper()
	opts.Logger = quietLogger()
	res, err := New(opts).Run(t.Context(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return res
}

func hasDiagnostic(diags []Diagnostic, code DiagnosticCode) bool {
	return slices.ContainsFunc(diags, func(d Diagnostic) bool { return d.Code == code })
}

func TestAnalyzer_Run(t *testing.T) {
	t.Parallel()

	root := writeApp(t)
	out := filepath.Join(root, "build")
	res := runAnalyzer(t, Options{OutputDir: out}, scanApp(t, root))

	wantPaths := []string{
		"modular/listeners/example.com/app/hooks.Conn.json",
		"modular/listeners/example.com/app/hooks.Server.json",
		"modular/listeners/example.com/app/hooks.Worker.json",
		"modular/listeners/example.com/app/hooks.json",
	}
	var gotPaths []string
	for p := range res.Fragments {
		gotPaths = append(gotPaths, p)
	}
	slices.Sort(gotPaths)
	if !slices.Equal(gotPaths, wantPaths) {
		t.Errorf("fragments = %v, want %v", gotPaths, wantPaths)
	}

	worker := res.Fragments["modular/listeners/example.com/app/hooks.Worker.json"]
	if got := worker.Keys(); !slices.Equal(got, []string{reloadKey, startupKey}) {
		t.Errorf("worker keys = %v", got)
	}
	spawn := worker.Descriptors(startupKey)
	if len(spawn) != 1 || spawn[0].Kind != fragment.KindSharedHolderMethod || spawn[0].Path != hooksPkg+".Worker.Spawn" {
		t.Errorf("worker startup descriptors = %+v", spawn)
	}

	conn := res.Fragments["modular/listeners/example.com/app/hooks.Conn.json"].Descriptors(startupKey)
	if len(conn) != 1 || conn[0].Valid || conn[0].Kind != fragment.KindInstanceMethod {
		t.Errorf("instance method descriptor = %+v, want invalid INSTANCE_METHOD", conn)
	}

	if !hasDiagnostic(res.Diagnostics, CodeUnknownMarker) {
		t.Errorf("diagnostics = %v, want %s", res.Diagnostics, CodeUnknownMarker)
	}
	if !slices.Equal(res.Markers, []string{reloadKey, startupKey}) {
		t.Errorf("Markers = %v", res.Markers)
	}

	for _, rel := range []string{
		"modular/markers/example.com/app/events.OnStartup",
		"modular/markers/example.com/app/events.OnReload",
	} {
		testutil.MustStat(t, filepath.Join(out, filepath.FromSlash(rel)))
	}

	data, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(fragment.ManifestPath)))
	if err != nil {
		t.Fatal(err)
	}
	m, err := fragment.UnmarshalManifest(data)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(m.Fragments, wantPaths) || len(m.Markers) != 2 {
		t.Errorf("manifest = %+v", m)
	}
}

func TestAnalyzer_OutputLoadsIntoRegistry(t *testing.T) {
	t.Parallel()

	root := writeApp(t)
	out := filepath.Join(root, "build")
	runAnalyzer(t, Options{OutputDir: out}, scanApp(t, root))

	r := modular.New(modular.WithSymbols(modular.NewSymbols()), modular.WithLogger(quietLogger()))
	if err := r.Init(out); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	snap := r.Snapshot()

	var paths []string
	for _, d := range snap.Descriptors(startupKey) {
		paths = append(paths, d.Path)
	}
	slices.Sort(paths)
	want := []string{hooksPkg + ".Conn.Open", hooksPkg + ".Server.Start", hooksPkg + ".Setup", hooksPkg + ".Worker.Spawn"}
	if !slices.Equal(paths, want) {
		t.Errorf("startup descriptors = %v, want %v", paths, want)
	}
	if got := snap.Descriptors(reloadKey); len(got) != 1 {
		t.Errorf("reload descriptors = %v", got)
	}
	if len(snap.Problems()) != 0 {
		t.Errorf("problems = %v", snap.Problems())
	}
}

func TestAnalyzer_Idempotent(t *testing.T) {
	t.Parallel()

	root := writeApp(t)
	out := filepath.Join(root, "build")
	opts := Options{OutputDir: out, Glue: true}

	first := runAnalyzer(t, opts, scanApp(t, root))
	if len(first.Written) == 0 {
		t.Fatal("first run wrote nothing")
	}
	before := make(map[string]string)
	for _, p := range first.Written {
		before[p] = testutil.ReadFile(t, p)
	}

	second := runAnalyzer(t, opts, scanApp(t, root))
	if len(second.Written) != 0 {
		t.Errorf("second run rewrote %v", second.Written)
	}
	if len(second.Unchanged) != 4 {
		t.Errorf("Unchanged = %v, want 4 fragments", second.Unchanged)
	}
	for p, content := range before {
		if got := testutil.ReadFile(t, p); got != content {
			t.Errorf("%s changed between runs", p)
		}
	}
}

func TestAnalyzer_MergesClasspathFragments(t *testing.T) {
	t.Parallel()

	root := writeApp(t)
	out := filepath.Join(root, "build")

	legacy := fragment.New()
	legacy.Append(startupKey, fragment.NewDescriptor(fragment.KindStaticFunction, hooksPkg, "Legacy"))
	data, err := fragment.Marshal(legacy)
	if err != nil {
		t.Fatal(err)
	}
	lib := filepath.Join(root, "lib")
	testutil.WriteTree(t, lib, map[string]string{
		"modular/listeners/example.com/app/hooks.json": string(data),
		"modular/markers/" + externalKey:                "",
	})

	res := runAnalyzer(t, Options{OutputDir: out, Classpath: []string{lib, out}}, scanApp(t, root))

	hooks := res.Fragments["modular/listeners/example.com/app/hooks.json"]
	var names []string
	for _, d := range hooks.Descriptors(startupKey) {
		names = append(names, d.Function)
	}
	if !slices.Equal(names, []string{"Legacy", "Setup"}) {
		t.Errorf("startup functions = %v, want classpath entries first", names)
	}
	if ext := hooks.Descriptors(externalKey); len(ext) != 1 || ext[0].Function != "External" {
		t.Errorf("external descriptors = %+v", ext)
	}
	if !slices.Contains(res.Markers, externalKey) {
		t.Errorf("Markers = %v, want classpath marker", res.Markers)
	}
	// Marker files are only written for markers declared in scanned code.
	if _, err := os.Stat(filepath.Join(out, "modular", "markers", externalKey)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("classpath marker copied to output: %v", err)
	}

	// Running again with the output on the classpath must not duplicate.
	again := runAnalyzer(t, Options{OutputDir: out, Classpath: []string{lib, out}}, scanApp(t, root))
	if n := again.Fragments["modular/listeners/example.com/app/hooks.json"].Len(); n != hooks.Len() {
		t.Errorf("second run has %d descriptors, want %d", n, hooks.Len())
	}
}

func TestAnalyzer_ConfiguredMarkers(t *testing.T) {
	t.Parallel()

	root := writeApp(t)
	res := runAnalyzer(t, Options{
		OutputDir: filepath.Join(root, "build"),
		Markers:   []string{externalKey},
	}, scanApp(t, root))

	if ext := res.Fragments["modular/listeners/example.com/app/hooks.json"].Descriptors(externalKey); len(ext) != 1 {
		t.Errorf("external descriptors = %+v", ext)
	}
}

func TestAnalyzer_BadClasspathEntry(t *testing.T) {
	t.Parallel()

	root := writeApp(t)
	notArchive := filepath.Join(root, "lib.zip")
	testutil.WriteFile(t, notArchive, "not a zip")

	res := runAnalyzer(t, Options{
		OutputDir: filepath.Join(root, "build"),
		Classpath: []string{notArchive, filepath.Join(root, "[")},
	}, scanApp(t, root))

	n := 0
	for _, d := range res.Diagnostics {
		if d.Code == CodeClasspathEntryInvalid {
			n++
		}
	}
	if n != 2 {
		t.Errorf("classpath diagnostics = %d, want 2: %v", n, res.Diagnostics)
	}
	if len(res.Fragments) != 4 {
		t.Errorf("fragments = %d, want 4", len(res.Fragments))
	}
}

func TestAnalyzer_WriteFailuresAreDiagnostics(t *testing.T) {
	t.Parallel()

	root := writeApp(t)
	blocked := filepath.Join(root, "blocked")
	testutil.WriteFile(t, blocked, "a file where a directory should be")

	res, err := New(Options{OutputDir: blocked, Logger: quietLogger()}).Run(t.Context(), scanApp(t, root))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	n := 0
	for _, d := range res.Diagnostics {
		if d.Code == CodeFragmentWriteFailed {
			n++
			if d.Severity != SeverityError || d.Cause == nil {
				t.Errorf("diagnostic = %+v", d)
			}
		}
	}
	if n != 4 {
		t.Errorf("fragment_write_failed diagnostics = %d, want 4", n)
	}
	if !hasDiagnostic(res.Diagnostics, CodeManifestWriteFailed) {
		t.Error("manifest failure not reported")
	}
	if len(res.Fragments) != 0 {
		t.Errorf("Fragments = %v, want none", res.Fragments)
	}
}

func TestAnalyzer_NoOutputDir(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}).Run(t.Context(), &scan.Result{}); !errors.Is(err, ErrNoOutputDir) {
		t.Errorf("Run() error = %v, want ErrNoOutputDir", err)
	}
}

func TestAnalyzer_Glue(t *testing.T) {
	t.Parallel()

	root := writeApp(t)
	res := runAnalyzer(t, Options{OutputDir: filepath.Join(root, "build"), Glue: true}, scanApp(t, root))

	gluePath := filepath.Join(root, "hooks", scan.GeneratedFile)
	if !slices.Equal(res.Glue, []string{gluePath}) {
		t.Fatalf("Glue = %v, want %s", res.Glue, gluePath)
	}
	src := testutil.ReadFile(t, gluePath)

	for _, want := range []string{
		"// Code generated by modular discover. DO NOT EDIT.",
		"package hooks",
		`modular "github.com/daylightnebula/modular/pkg/modular"`,
		`modular.RegisterFunc("example.com/app/hooks.Setup", Setup)`,
		`modular.RegisterSingleton("example.com/app/hooks.Server", Instance)`,
		`modular.RegisterSingletonMethod("example.com/app/hooks.Server", "Start", (*Server).Start)`,
		`modular.RegisterHolder("example.com/app/hooks.Worker", new(WorkerCompanion))`,
		`modular.RegisterHolderMethod("example.com/app/hooks.Worker", "Spawn", WorkerCompanion.Spawn)`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated code missing %q:\n%s", want, src)
		}
	}
	if n := strings.Count(src, `"Spawn"`); n != 1 {
		t.Errorf("Spawn registered %d times", n)
	}
	for _, unwanted := range []string{"Open", "External", "Ignored"} {
		if strings.Contains(src, unwanted) {
			t.Errorf("generated code mentions %s", unwanted)
		}
	}
	if _, err := parser.ParseFile(token.NewFileSet(), gluePath, src, 0); err != nil {
		t.Errorf("generated code does not parse: %v", err)
	}
}

func TestAnalyzer_RemovesStaleGlue(t *testing.T) {
	t.Parallel()

	root := writeApp(t)
	out := filepath.Join(root, "build")
	runAnalyzer(t, Options{OutputDir: out, Glue: true}, scanApp(t, root))

	handWritten := filepath.Join(root, "events", scan.GeneratedFile)
	testutil.WriteFile(t, handWritten, "package events\n")
	testutil.WriteFile(t, filepath.Join(root, "hooks", "hooks.go"), "package hooks\n\nfunc Setup() {}\n")

	res := runAnalyzer(t, Options{OutputDir: out, Glue: true}, scanApp(t, root))

	gluePath := filepath.Join(root, "hooks", scan.GeneratedFile)
	if !slices.Equal(res.RemovedGlue, []string{gluePath}) {
		t.Errorf("RemovedGlue = %v, want %s", res.RemovedGlue, gluePath)
	}
	if _, err := os.Stat(gluePath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stale glue still present: %v", err)
	}
	testutil.MustStat(t, handWritten)
}

func TestAnalyzer_GlueDisabled(t *testing.T) {
	t.Parallel()

	root := writeApp(t)
	res := runAnalyzer(t, Options{OutputDir: filepath.Join(root, "build")}, scanApp(t, root))
	if len(res.Glue) != 0 {
		t.Errorf("Glue = %v, want none", res.Glue)
	}
	if _, err := os.Stat(filepath.Join(root, "hooks", scan.GeneratedFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("glue written while disabled: %v", err)
	}
}
