// SPDX-License-Identifier: MPL-2.0

package modular

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/daylightnebula/modular/internal/classpath"
	"github.com/daylightnebula/modular/pkg/fragment"
)

type (
	// Registry owns the aggregated registry of one process (or test) and
	// dispatches against it. The zero value is not usable; call New.
	Registry struct {
		symbols   *Symbols
		logger    *slog.Logger
		onFailure func(key string, call Call)
		sources   []*classpath.Entry
		fallback  func() []string

		// mu serializes Init and Reload. Readers never take it.
		mu       sync.Mutex
		patterns []string
		snap     atomic.Pointer[Snapshot]
		// lazy is set while the snapshot comes from the default classpath
		// rather than an explicit Init. Guarded by mu.
		lazy bool
	}

	// Option configures a Registry.
	Option func(*Registry)
)

// New returns an uninitialized registry. Without WithSymbols it resolves
// targets against the process-wide symbol table filled by generated code.
func New(opts ...Option) *Registry {
	r := &Registry{
		symbols:  globalSymbols,
		fallback: DefaultClasspath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithSymbols resolves targets against s instead of the process-wide table.
func WithSymbols(s *Symbols) Option {
	return func(r *Registry) { r.symbols = s }
}

// WithLogger sets the logger used for dispatch diagnostics. The default is
// slog.Default() at the time of each log call.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithFS adds an in-memory classpath entry, such as an embed.FS holding the
// application's own fragments. FS entries are read before path entries.
func WithFS(name string, fsys fs.FS) Option {
	return func(r *Registry) { r.sources = append(r.sources, classpath.FromFS(name, fsys)) }
}

// WithFailureHandler registers fn to be called for every failed descriptor
// during Execute, in addition to the error log line.
func WithFailureHandler(fn func(key string, call Call)) Option {
	return func(r *Registry) { r.onFailure = fn }
}

// WithDefaultClasspath sets the entries used when the registry is used before
// Init.
func WithDefaultClasspath(entries ...string) Option {
	return func(r *Registry) {
		entries = slices.Clone(entries)
		r.fallback = func() []string { return entries }
	}
}

// DefaultClasspath returns the directory of the running executable followed
// by the working directory.
func DefaultClasspath() []string {
	var entries []string
	if exe, err := os.Executable(); err == nil {
		entries = append(entries, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		entries = append(entries, wd)
	}
	return entries
}

// Init scans entries and publishes the first snapshot. Entries may be
// directories, zip archives or glob patterns matching either. Once Init has
// succeeded further calls do nothing and return nil; use Reload to rescan.
// A snapshot loaded implicitly from the default classpath, because the
// registry was used before Init, is replaced by the first Init.
func (r *Registry) Init(entries ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snap.Load() != nil && !r.lazy {
		return nil
	}
	if err := r.load(entries); err != nil {
		return err
	}
	r.lazy = false
	return nil
}

// Reload rescans the classpath given to Init, re-expanding glob entries, and
// swaps in the new snapshot. On an uninitialized registry it behaves like
// Init with the default classpath.
func (r *Registry) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	patterns := r.patterns
	if r.snap.Load() == nil {
		patterns = r.fallback()
		r.lazy = true
	}
	return r.load(patterns)
}

// Initialized reports whether a snapshot has been published.
func (r *Registry) Initialized() bool { return r.snap.Load() != nil }

// Snapshot returns the current snapshot, initializing the registry with the
// default classpath on first use.
func (r *Registry) Snapshot() *Snapshot {
	if s := r.snap.Load(); s != nil {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.snap.Load(); s != nil {
		return s
	}
	r.lazy = true
	if err := r.load(r.fallback()); err != nil {
		r.log().Warn("default classpath could not be loaded", "error", err)
		r.snap.Store(newSnapshot(nil))
	}
	return r.snap.Load()
}

// Fragments returns the per-resource fragment view of the current snapshot.
func (r *Registry) Fragments() map[string]*fragment.Fragment {
	return r.Snapshot().Fragments()
}

// load builds and publishes a snapshot. r.mu must be held.
func (r *Registry) load(patterns []string) error {
	expanded, err := classpath.Expand(patterns)
	if err != nil {
		return err
	}

	snap := newSnapshot(expanded)
	for _, src := range r.sources {
		snap.add(src.Name, fragment.Read(src.FS))
	}
	for _, path := range expanded {
		entry, err := classpath.Open(path)
		if err != nil {
			snap.problem(path, err)
			continue
		}
		snap.add(entry.Name, fragment.Read(entry.FS))
		if err := entry.Close(); err != nil {
			snap.problem(path, err)
		}
	}

	logger := r.log()
	for _, p := range snap.problems {
		logger.Debug("classpath resource skipped", "entry", p.Entry, "path", p.Path, "error", p.Err)
	}
	logger.Debug("registry loaded",
		"entries", len(expanded), "fragments", len(snap.order), "keys", len(snap.byKey), "descriptors", snap.Len())

	r.patterns = slices.Clone(patterns)
	r.snap.Store(snap)
	return nil
}

func (r *Registry) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}
