// SPDX-License-Identifier: MPL-2.0

package modular

import (
	"maps"
	"slices"
	"time"

	"github.com/daylightnebula/modular/pkg/fragment"
)

type (
	// Snapshot is an immutable aggregated registry built from one scan of the
	// classpath. A Registry swaps snapshots atomically on reload; executions
	// already holding a snapshot keep using it.
	Snapshot struct {
		entries   []string
		byKey     map[string][]fragment.Descriptor
		fragments map[string]*fragment.Fragment
		order     []string
		markers   []string
		problems  []Problem
		loadedAt  time.Time
	}

	// Problem records a classpath entry or resource that was skipped while
	// loading.
	Problem struct {
		Entry string
		Path  string
		Err   error
	}
)

func newSnapshot(entries []string) *Snapshot {
	return &Snapshot{
		entries:   slices.Clone(entries),
		byKey:     make(map[string][]fragment.Descriptor),
		fragments: make(map[string]*fragment.Fragment),
		loadedAt:  time.Now(),
	}
}

// add folds the contents of one classpath entry into the snapshot.
func (s *Snapshot) add(entry string, c fragment.Contents) {
	for _, loc := range c.Fragments {
		if existing, ok := s.fragments[loc.Path]; ok {
			s.fragments[loc.Path] = fragment.Merge(existing, loc.Fragment)
		} else {
			s.fragments[loc.Path] = loc.Fragment
			s.order = append(s.order, loc.Path)
		}
		for _, key := range loc.Fragment.Keys() {
			s.byKey[key] = append(s.byKey[key], loc.Fragment.Entries[key]...)
		}
	}
	for _, m := range c.Markers {
		if !slices.Contains(s.markers, m) {
			s.markers = append(s.markers, m)
		}
	}
	for _, p := range c.Problems {
		s.problems = append(s.problems, Problem{Entry: entry, Path: p.Path, Err: p.Err})
	}
}

func (s *Snapshot) problem(entry string, err error) {
	s.problems = append(s.problems, Problem{Entry: entry, Err: err})
}

// Descriptors returns a copy of the descriptors registered under key, in
// registration order.
func (s *Snapshot) Descriptors(key string) []fragment.Descriptor {
	return slices.Clone(s.byKey[key])
}

// Keys returns every dispatch key in lexical order.
func (s *Snapshot) Keys() []string {
	return slices.Sorted(maps.Keys(s.byKey))
}

// Len returns the number of descriptors across all keys.
func (s *Snapshot) Len() int {
	n := 0
	for _, ds := range s.byKey {
		n += len(ds)
	}
	return n
}

// Fragments returns a copy of the per-resource view.
func (s *Snapshot) Fragments() map[string]*fragment.Fragment {
	out := make(map[string]*fragment.Fragment, len(s.fragments))
	for p, f := range s.fragments {
		out[p] = f.Clone()
	}
	return out
}

// FragmentPaths returns the resource paths in the order they were first read.
func (s *Snapshot) FragmentPaths() []string { return slices.Clone(s.order) }

// Entries returns the expanded classpath the snapshot was built from.
func (s *Snapshot) Entries() []string { return slices.Clone(s.entries) }

// Markers returns the marker keys found on the classpath.
func (s *Snapshot) Markers() []string { return slices.Clone(s.markers) }

// Problems returns the entries and resources skipped while loading.
func (s *Snapshot) Problems() []Problem { return slices.Clone(s.problems) }

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }
