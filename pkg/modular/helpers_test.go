// SPDX-License-Identifier: MPL-2.0

package modular

import (
	"archive/zip"
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/daylightnebula/modular/pkg/fragment"
)

const (
	testPkg     = "example.com/app/test"
	startupKey  = "example.com/app/events.OnStartup"
	reloadKey   = "example.com/app/events.OnReload"
	shutdownKey = "example.com/app/events.OnShutdown"
)

type (
	// journal records listener invocations in order.
	journal struct {
		mu    sync.Mutex
		calls []string
	}

	testServer struct {
		j       *journal
		reasons []string
	}

	testWorkerCompanion struct {
		j *journal
	}

	testMarker struct{}
)

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

func (s *testServer) onStartup() { s.j.add("server.onStartup") }

func (s *testServer) onReload(reason string) {
	s.reasons = append(s.reasons, reason)
	s.j.add("server.onReload")
}

func (c *testWorkerCompanion) onStartup() { c.j.add("worker.onStartup") }

func (c testWorkerCompanion) onShutdown() { c.j.add("worker.onShutdown") }

// fixture registers one listener of every dispatchable kind.
type fixture struct {
	j      *journal
	server *testServer
	holder *testWorkerCompanion
	syms   *Symbols
}

func newFixture() *fixture {
	j := &journal{}
	f := &fixture{
		j:      j,
		server: &testServer{j: j},
		holder: &testWorkerCompanion{j: j},
		syms:   NewSymbols(),
	}

	f.syms.RegisterFunc(testPkg+".Setup", func() { j.add("Setup") })
	f.syms.RegisterFunc(testPkg+".OnReload", func(reason string) { j.add("OnReload:" + reason) })
	f.syms.RegisterSingleton(testPkg+".testServer", f.server)
	f.syms.RegisterSingletonMethod(testPkg+".testServer", "onStartup", (*testServer).onStartup)
	f.syms.RegisterSingletonMethod(testPkg+".testServer", "onReload", (*testServer).onReload)
	f.syms.RegisterHolder(testPkg+".testWorker", f.holder)
	f.syms.RegisterHolderMethod(testPkg+".testWorker", "onStartup", (*testWorkerCompanion).onStartup)
	f.syms.RegisterHolderMethod(testPkg+".testWorker", "onShutdown", testWorkerCompanion.onShutdown)
	return f
}

func staticDesc(name string) fragment.Descriptor {
	return fragment.NewDescriptor(fragment.KindStaticFunction, testPkg, name)
}

func singletonDesc(name string) fragment.Descriptor {
	return fragment.NewDescriptor(fragment.KindSingletonMethod, testPkg+".testServer", name)
}

func holderDesc(name string) fragment.Descriptor {
	return fragment.NewDescriptor(fragment.KindSharedHolderMethod, testPkg+".testWorker", name)
}

func instanceDesc(name string) fragment.Descriptor {
	return fragment.NewDescriptor(fragment.KindInstanceMethod, testPkg+".session", name).
		Invalid("instance methods are not supported")
}

func mustMarshal(t *testing.T, f *fragment.Fragment) []byte {
	t.Helper()
	data, err := fragment.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// memFS places each fragment at its own resource path.
func memFS(t *testing.T, frags ...*fragment.Fragment) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	for i, f := range frags {
		fsys["modular/listeners/test/"+strconv.Itoa(i)+".json"] = &fstest.MapFile{Data: mustMarshal(t, f)}
	}
	return fsys
}

// writeDirEntry writes fragments into a classpath directory.
func writeDirEntry(t *testing.T, dir string, frags map[string]*fragment.Fragment) {
	t.Helper()
	for owner, f := range frags {
		rel, err := fragment.ResourcePath(owner)
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, mustMarshal(t, f), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// writeZipEntry writes fragments into a classpath archive.
func writeZipEntry(t *testing.T, path string, frags map[string]*fragment.Fragment) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for owner, f := range frags {
		rel, err := fragment.ResourcePath(owner)
		if err != nil {
			t.Fatal(err)
		}
		w, err := zw.Create(rel)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(mustMarshal(t, f)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newTestLogger returns a debug-level logger writing into buf.
func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func one(key string, ds ...fragment.Descriptor) *fragment.Fragment {
	f := fragment.New()
	f.Append(key, ds...)
	return f
}
