// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"errors"
	"io/fs"
	"path"
)

const resourceRoot = "modular"

type (
	// Located is a fragment together with the resource path it was read from.
	Located struct {
		Path     string
		Fragment *Fragment
	}

	// Problem records a resource that was skipped while reading.
	Problem struct {
		Path string
		Err  error
	}

	// Contents is everything read from one classpath entry.
	Contents struct {
		// Fragments in read order: manifest order when a manifest is present,
		// lexical walk order otherwise.
		Fragments []Located
		// Markers are marker dispatch keys.
		Markers []string
		// Problems lists skipped resources. Reading never fails as a whole.
		Problems []Problem
		// FromManifest is true when the entry's manifest drove the read.
		FromManifest bool
	}
)

// Read collects the fragments and markers of fsys.
//
// If fsys holds a readable manifest, only the listed resources are read.
// Otherwise the reserved resource tree is walked. Unreadable or malformed
// fragments are recorded as problems and skipped.
func Read(fsys fs.FS) Contents {
	var c Contents

	data, err := fs.ReadFile(fsys, ManifestPath)
	switch {
	case err == nil:
		m, mErr := UnmarshalManifest(data)
		if mErr == nil {
			c.FromManifest = true
			for _, p := range m.Fragments {
				c.readFragment(fsys, p)
			}
			for _, p := range m.Markers {
				if key, ok := MarkerKey(p); ok {
					c.Markers = append(c.Markers, key)
				}
			}
			return c
		}
		c.Problems = append(c.Problems, Problem{Path: ManifestPath, Err: mErr})
	case !errors.Is(err, fs.ErrNotExist):
		c.Problems = append(c.Problems, Problem{Path: ManifestPath, Err: err})
	}

	c.walk(fsys)
	return c
}

func (c *Contents) walk(fsys fs.FS) {
	walkErr := fs.WalkDir(fsys, resourceRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == resourceRoot && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			c.Problems = append(c.Problems, Problem{Path: p, Err: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case IsFragmentPath(p):
			c.readFragment(fsys, p)
		case IsMarkerPath(p):
			if key, ok := MarkerKey(p); ok {
				c.Markers = append(c.Markers, key)
			}
		}
		return nil
	})
	if walkErr != nil {
		c.Problems = append(c.Problems, Problem{Path: resourceRoot, Err: walkErr})
	}
}

func (c *Contents) readFragment(fsys fs.FS, p string) {
	data, err := fs.ReadFile(fsys, path.Clean(p))
	if err != nil {
		c.Problems = append(c.Problems, Problem{Path: p, Err: err})
		return
	}
	f, err := Unmarshal(data)
	if err != nil {
		c.Problems = append(c.Problems, Problem{Path: p, Err: err})
		return
	}
	c.Fragments = append(c.Fragments, Located{Path: p, Fragment: f})
}
