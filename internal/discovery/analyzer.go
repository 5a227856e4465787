// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"

	"github.com/daylightnebula/modular/internal/classpath"
	"github.com/daylightnebula/modular/internal/scan"
	"github.com/daylightnebula/modular/pkg/fragment"
)

// ErrNoOutputDir is returned by Run when Options.OutputDir is empty.
var ErrNoOutputDir = errors.New("discovery: output directory not set")

type (
	// Source is what the analyzer needs from a source scan: the markers
	// declared in the scanned code and the functions carrying each marker.
	Source interface {
		Markers() []string
		AnnotatedWith(marker string) []scan.Element
	}

	// referencer is implemented by sources that can list every marker named
	// by a tag, recognized or not.
	referencer interface {
		Referenced() []string
	}

	// dirLister is implemented by sources that can list their package
	// directories. It enables removal of stale registration files.
	dirLister interface {
		Dirs() []string
	}

	// Options configures an Analyzer.
	Options struct {
		// OutputDir receives the modular/ resource tree. Required.
		OutputDir string
		// Classpath entries (directories, archives or glob patterns) searched
		// for markers and for fragments to merge. OutputDir is never read.
		Classpath []string
		// Markers are extra marker keys to recognize.
		Markers []string
		// Glue enables writing registration code next to tagged functions.
		Glue bool
		// GlueFile overrides the registration file name.
		GlueFile string
		// RuntimeImport overrides the import path used by registration code.
		RuntimeImport string
		// Logger receives progress messages. Nil means slog.Default().
		Logger *slog.Logger
	}

	// Analyzer writes registry fragments for the tagged functions of a Source.
	Analyzer struct {
		opts   Options
		logger *slog.Logger
	}

	// Result reports what a run produced.
	Result struct {
		// Fragments are the fragments now present in the output directory,
		// keyed by resource path.
		Fragments map[string]*fragment.Fragment
		// Markers are the recognized marker keys, sorted.
		Markers []string
		// Written lists files created or changed by the run.
		Written []string
		// Unchanged lists fragment files that already had the right content.
		Unchanged []string
		// Glue lists the registration files of this run.
		Glue []string
		// RemovedGlue lists stale registration files that were deleted.
		RemovedGlue []string
		// Diagnostics are non-fatal problems. A run with write failures still
		// writes everything else.
		Diagnostics []Diagnostic
	}

	// buildClasspath is what the analyzer learned from the build classpath.
	buildClasspath struct {
		markers   []string
		fragments map[string]*fragment.Fragment
	}
)

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RuntimeImport == "" {
		opts.RuntimeImport = DefaultRuntimeImport
	}
	return &Analyzer{opts: opts, logger: logger}
}

// Run classifies every function tagged with a recognized marker and writes
// the resulting fragments. Only an unusable output directory or context
// cancellation make it fail; everything else is reported as diagnostics.
func (a *Analyzer) Run(ctx context.Context, src Source) (*Result, error) {
	if a.opts.OutputDir == "" {
		return nil, ErrNoOutputDir
	}
	outDir, err := filepath.Abs(a.opts.OutputDir)
	if err != nil {
		return nil, err
	}

	res := &Result{Fragments: make(map[string]*fragment.Fragment)}
	cp := a.readClasspath(outDir, res)
	recognized := a.recognize(src, cp)
	res.Markers = recognized
	a.reportUnknown(src, recognized, res)

	queue := make(map[string]*fragment.Fragment)
	glue := newGlueSet(a.opts.RuntimeImport)
	for _, marker := range recognized {
		for _, el := range src.AnnotatedWith(marker) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			d := Classify(el)
			a.logger.Debug("discovered function",
				"marker", marker, "path", d.Path, "kind", d.Kind, "valid", d.Valid, "pos", el.Func.Pos.String())

			f := queue[d.Owner]
			if f == nil {
				f = fragment.New()
				queue[d.Owner] = f
			}
			f.Append(marker, d)
			if d.Valid {
				glue.add(el, d)
			}
		}
	}

	var fragmentPaths []string
	for _, owner := range slices.Sorted(maps.Keys(queue)) {
		rel, err := fragment.ResourcePath(owner)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, failure(CodeFragmentWriteFailed, owner, "invalid owner name", err))
			continue
		}
		merged := fragment.Merge(cp.fragments[rel], queue[owner]).Dedupe()
		if a.writeFragment(outDir, rel, merged, res) {
			fragmentPaths = append(fragmentPaths, rel)
		}
	}

	var markerPaths []string
	for _, key := range declared(src) {
		if rel, ok := a.writeMarker(outDir, key, res); ok {
			markerPaths = append(markerPaths, rel)
		}
	}
	a.writeManifest(outDir, fragmentPaths, markerPaths, res)

	if a.opts.Glue {
		var scanned []string
		if dl, ok := src.(dirLister); ok {
			scanned = dl.Dirs()
		}
		a.writeGlue(glue, scanned, res)
	}
	return res, nil
}

// readClasspath collects markers and fragments from the build classpath.
// Entries that cannot be used are reported and skipped.
func (a *Analyzer) readClasspath(outDir string, res *Result) buildClasspath {
	cp := buildClasspath{fragments: make(map[string]*fragment.Fragment)}

	for _, raw := range a.opts.Classpath {
		paths, err := classpath.Expand([]string{raw})
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, warning(CodeClasspathEntryInvalid, raw, "classpath entry skipped", err))
			continue
		}
		for _, p := range paths {
			if classpath.Same(p, outDir) {
				a.logger.Debug("skipping output directory on classpath", "entry", p)
				continue
			}
			entry, err := classpath.Open(p)
			if err != nil {
				res.Diagnostics = append(res.Diagnostics, warning(CodeClasspathEntryInvalid, p, "classpath entry skipped", err))
				continue
			}
			contents := fragment.Read(entry.FS)
			if err := entry.Close(); err != nil {
				a.logger.Debug("closing classpath entry", "entry", p, "error", err)
			}

			for _, prob := range contents.Problems {
				res.Diagnostics = append(res.Diagnostics,
					warning(CodeFragmentParseSkipped, p+"!"+prob.Path, "classpath fragment skipped", prob.Err))
			}
			cp.markers = append(cp.markers, contents.Markers...)
			for _, loc := range contents.Fragments {
				cp.fragments[loc.Path] = fragment.Merge(cp.fragments[loc.Path], loc.Fragment)
			}
		}
	}
	return cp
}

// recognize returns the sorted set of markers the run honors.
func (a *Analyzer) recognize(src Source, cp buildClasspath) []string {
	all := slices.Concat(src.Markers(), cp.markers, a.opts.Markers)
	slices.Sort(all)
	return slices.Compact(all)
}

func (a *Analyzer) reportUnknown(src Source, recognized []string, res *Result) {
	r, ok := src.(referencer)
	if !ok {
		return
	}
	for _, key := range r.Referenced() {
		if _, found := slices.BinarySearch(recognized, key); found {
			continue
		}
		a.logger.Warn("tag names an unrecognized marker", "marker", key)
		res.Diagnostics = append(res.Diagnostics,
			warning(CodeUnknownMarker, key, "tag names an unrecognized marker; functions tagged only with it are ignored", nil))
	}
}

func declared(src Source) []string {
	out := slices.Clone(src.Markers())
	slices.Sort(out)
	return slices.Compact(out)
}
