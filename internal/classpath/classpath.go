// SPDX-License-Identifier: MPL-2.0

// Package classpath opens classpath entries (directories, zip archives and
// in-memory file systems) as fs.FS values and expands glob entries.
package classpath

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// KindDirectory is an on-disk directory entry.
	KindDirectory Kind = "directory"
	// KindArchive is a zip archive entry.
	KindArchive Kind = "archive"
	// KindFS is an in-memory entry supplied by the caller.
	KindFS Kind = "fs"
)

// ErrUnsupportedEntry is returned by Open for paths that are neither a
// directory nor a readable zip archive.
var ErrUnsupportedEntry = errors.New("unsupported classpath entry")

type (
	// Kind describes how an entry is backed.
	Kind string

	// Entry is one opened classpath entry. Close must be called when the
	// entry is no longer needed.
	Entry struct {
		// Name is the path the entry was opened from, or the caller-supplied
		// name for in-memory entries.
		Name string
		Kind Kind
		FS   fs.FS

		closer io.Closer
	}
)

// Open opens path as a classpath entry.
func Open(path string) (*Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open classpath entry %s: %w", path, err)
	}
	if info.IsDir() {
		return &Entry{Name: path, Kind: KindDirectory, FS: os.DirFS(path)}, nil
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedEntry, path, err)
	}
	return &Entry{Name: path, Kind: KindArchive, FS: zr, closer: zr}, nil
}

// FromFS wraps an existing file system as an entry.
func FromFS(name string, fsys fs.FS) *Entry {
	return &Entry{Name: name, Kind: KindFS, FS: fsys}
}

// Close releases the entry. It is safe to call on directory and in-memory
// entries and more than once.
func (e *Entry) Close() error {
	if e == nil || e.closer == nil {
		return nil
	}
	c := e.closer
	e.closer = nil
	return c.Close()
}

// String returns the entry name.
func (e *Entry) String() string { return e.Name }

// Expand resolves glob entries. Plain paths are returned unchanged, even when
// they do not exist; glob entries are replaced by their matches in lexical
// order. The first occurrence of a path wins, so the result has no duplicates.
func Expand(entries []string) ([]string, error) {
	out := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	add := func(p string) {
		clean := filepath.Clean(p)
		if _, ok := seen[clean]; ok {
			return
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}

	for _, entry := range entries {
		if entry == "" {
			continue
		}
		if !hasMeta(entry) {
			add(entry)
			continue
		}
		if !doublestar.ValidatePathPattern(filepath.ToSlash(entry)) {
			return nil, fmt.Errorf("invalid classpath pattern %q: %w", entry, doublestar.ErrBadPattern)
		}
		matches, err := doublestar.FilepathGlob(entry)
		if err != nil {
			return nil, fmt.Errorf("expand classpath pattern %q: %w", entry, err)
		}
		slices.Sort(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return out, nil
}

// SplitList splits a list of entries joined by the OS path list separator.
func SplitList(list string) []string {
	if list == "" {
		return nil
	}
	return filepath.SplitList(list)
}

// Same reports whether two entry paths refer to the same location.
func Same(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func hasMeta(p string) bool {
	for _, r := range p {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
