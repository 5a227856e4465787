// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrMalformed is wrapped by every decoding failure.
var ErrMalformed = errors.New("malformed fragment")

// Manifest lists the fragment and marker resources of one classpath entry so
// the loader does not need to walk the entry.
type Manifest struct {
	Fragments []string `json:"fragments"`
	Markers   []string `json:"markers,omitempty"`
}

// Marshal encodes f as indented JSON terminated by a newline. Map keys are
// emitted in sorted order, so equal fragments always encode to equal bytes.
func Marshal(f *Fragment) ([]byte, error) {
	if f == nil {
		f = New()
	}
	entries := f.Entries
	if entries == nil {
		entries = map[string][]Descriptor{}
	}
	return encode(Fragment{Entries: entries})
}

// Unmarshal decodes a fragment. Unknown fields are ignored.
func Unmarshal(data []byte) (*Fragment, error) {
	var f Fragment
	if err := decode(data, &f); err != nil {
		return nil, err
	}
	if f.Entries == nil {
		f.Entries = make(map[string][]Descriptor)
	}
	return &f, nil
}

// MarshalManifest encodes m with its lists sorted and deduplicated.
func MarshalManifest(m Manifest) ([]byte, error) {
	m.Fragments = sortedUnique(m.Fragments)
	m.Markers = sortedUnique(m.Markers)
	if m.Fragments == nil {
		m.Fragments = []string{}
	}
	return encode(m)
}

// UnmarshalManifest decodes a manifest. Listed paths that are not fragment or
// marker resources are rejected.
func UnmarshalManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := decode(data, &m); err != nil {
		return Manifest{}, err
	}
	for _, p := range m.Fragments {
		if !IsFragmentPath(p) {
			return Manifest{}, fmt.Errorf("%w: manifest lists %q outside %s", ErrMalformed, p, ListenerPrefix)
		}
	}
	for _, p := range m.Markers {
		if !IsMarkerPath(p) {
			return Manifest{}, fmt.Errorf("%w: manifest lists %q outside %s", ErrMalformed, p, MarkerPrefix)
		}
	}
	return m, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: expected a JSON object", ErrMalformed)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
