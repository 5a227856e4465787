// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"maps"
	"slices"
)

// Fragment is a partial dispatch table: dispatch key to ordered descriptors.
// The zero value is an empty fragment ready for use.
type Fragment struct {
	Entries map[string][]Descriptor `json:"entries"`
}

// New returns an empty fragment.
func New() *Fragment {
	return &Fragment{Entries: make(map[string][]Descriptor)}
}

// Append adds descriptors to the end of key's list.
func (f *Fragment) Append(key string, descriptors ...Descriptor) {
	if f.Entries == nil {
		f.Entries = make(map[string][]Descriptor)
	}
	f.Entries[key] = append(f.Entries[key], descriptors...)
}

// Keys returns the dispatch keys in lexical order.
func (f *Fragment) Keys() []string {
	if f == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(f.Entries))
}

// Descriptors returns a copy of the descriptors registered under key.
func (f *Fragment) Descriptors(key string) []Descriptor {
	if f == nil {
		return nil
	}
	return slices.Clone(f.Entries[key])
}

// Len returns the total number of descriptors across all keys.
func (f *Fragment) Len() int {
	if f == nil {
		return 0
	}
	n := 0
	for _, ds := range f.Entries {
		n += len(ds)
	}
	return n
}

// Clone returns a deep copy of f.
func (f *Fragment) Clone() *Fragment {
	out := New()
	if f == nil {
		return out
	}
	for key, ds := range f.Entries {
		out.Entries[key] = slices.Clone(ds)
	}
	return out
}

// Dedupe returns a copy of f in which every key lists each distinct
// descriptor once, keeping the first occurrence.
func (f *Fragment) Dedupe() *Fragment {
	out := New()
	if f == nil {
		return out
	}
	for key, ds := range f.Entries {
		kept := make([]Descriptor, 0, len(ds))
		for _, d := range ds {
			if !slices.Contains(kept, d) {
				kept = append(kept, d)
			}
		}
		out.Entries[key] = kept
	}
	return out
}

// Merge combines fragments key by key. For every key the result lists the
// descriptors of the first fragment, then those of the second, and so on.
// The inputs are not modified. Nil fragments are ignored.
//
// Merge is associative but not commutative: Merge(a, b) and Merge(b, a) hold
// the same descriptors in a different order.
func Merge(fragments ...*Fragment) *Fragment {
	out := New()
	for _, f := range fragments {
		if f == nil {
			continue
		}
		// Iterate keys in sorted order so allocation is deterministic; the
		// per-key order is what matters for dispatch.
		for _, key := range f.Keys() {
			out.Entries[key] = append(out.Entries[key], f.Entries[key]...)
		}
	}
	return out
}
