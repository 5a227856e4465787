// SPDX-License-Identifier: MPL-2.0

package packaging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/daylightnebula/modular/internal/classpath"
	"github.com/daylightnebula/modular/pkg/fragment"
)

func writeTree(t *testing.T, dir string) {
	t.Helper()
	f := fragment.New()
	f.Append("example.com/app/events.OnStart", fragment.NewDescriptor(fragment.KindStaticFunction, "example.com/app/hooks", "Setup"))
	data, err := fragment.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	rel, err := fragment.ResourcePath("example.com/app/hooks")
	if err != nil {
		t.Fatalf("ResourcePath() error = %v", err)
	}

	files := map[string][]byte{
		rel: data,
		"modular/markers/example.com/app/events.OnStart": nil,
		"modular/listeners/.partial-1.tmp":               []byte("{"),
		"unrelated.txt":                                  []byte("not archived"),
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestArchive(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "build")
	writeTree(t, dir)
	out := filepath.Join(t.TempDir(), "dist", "app.zip")

	summary, err := Archive(dir, out)
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if summary.Path != out {
		t.Errorf("Path = %q, want %q", summary.Path, out)
	}
	if summary.Fragments != 1 || len(summary.Files) != 2 {
		t.Errorf("summary = %+v, want 1 fragment in 2 files", summary)
	}
	if slices.Contains(summary.Files, "unrelated.txt") {
		t.Error("files outside the resource tree were archived")
	}

	entry, err := classpath.Open(out)
	if err != nil {
		t.Fatalf("archive is not a classpath entry: %v", err)
	}
	defer entry.Close()

	contents := fragment.Read(entry.FS)
	if len(contents.Problems) != 0 {
		t.Fatalf("Problems = %v", contents.Problems)
	}
	if len(contents.Fragments) != 1 {
		t.Fatalf("Fragments = %d, want 1", len(contents.Fragments))
	}
	if !slices.Equal(contents.Markers, []string{"example.com/app/events.OnStart"}) {
		t.Errorf("Markers = %v", contents.Markers)
	}
}

func TestArchive_Reproducible(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "build")
	writeTree(t, dir)
	outDir := t.TempDir()

	first, err := Archive(dir, filepath.Join(outDir, "a.zip"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Archive(dir, filepath.Join(outDir, "b.zip"))
	if err != nil {
		t.Fatal(err)
	}

	a, _ := os.ReadFile(first.Path)
	b, _ := os.ReadFile(second.Path)
	if !bytes.Equal(a, b) {
		t.Error("archiving the same tree twice produced different bytes")
	}
}

func TestArchive_DefaultOutput(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "build")
	writeTree(t, dir)

	summary, err := Archive(dir, "")
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if summary.Path != dir+".zip" {
		t.Errorf("Path = %q, want %q", summary.Path, dir+".zip")
	}
}

func TestArchive_NoResources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "x.zip")
	_, err := Archive(dir, out)
	if !errors.Is(err, ErrNoResources) {
		t.Fatalf("error = %v, want ErrNoResources", err)
	}
	if _, statErr := os.Stat(out); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("archive written despite failure")
	}
}
