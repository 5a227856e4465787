// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

const (
	// ListenerPrefix is the reserved resource directory holding fragments.
	ListenerPrefix = "modular/listeners"
	// MarkerPrefix is the reserved resource directory holding one empty file
	// per declared marker, named after the marker's dispatch key.
	MarkerPrefix = "modular/markers"
	// ManifestPath lists every fragment and marker file of a classpath entry.
	ManifestPath = "modular/manifest.json"
	// Ext is the fragment file extension.
	Ext = ".json"
)

var (
	// ErrInvalidOwner is returned when an owner name cannot be mapped to a
	// resource path.
	ErrInvalidOwner = errors.New("invalid owner name")

	listenerPattern = regexp.MustCompile(`^` + regexp.QuoteMeta(ListenerPrefix) + `/.+\` + Ext + `$`)
	markerPattern   = regexp.MustCompile(`^` + regexp.QuoteMeta(MarkerPrefix) + `/.+$`)
)

// ResourcePath returns the slash-separated path of the fragment for owner.
// Owners containing slashes (package import paths) produce nested directories.
func ResourcePath(owner string) (string, error) {
	if err := validateName(owner); err != nil {
		return "", err
	}
	return ListenerPrefix + "/" + owner + Ext, nil
}

// MarkerPath returns the slash-separated path of the marker file for key.
func MarkerPath(key string) (string, error) {
	if err := validateName(key); err != nil {
		return "", err
	}
	return MarkerPrefix + "/" + key, nil
}

// IsFragmentPath reports whether p names a fragment resource.
func IsFragmentPath(p string) bool {
	return listenerPattern.MatchString(p)
}

// IsMarkerPath reports whether p names a marker resource.
func IsMarkerPath(p string) bool {
	return markerPattern.MatchString(p)
}

// MarkerKey extracts the marker dispatch key from a marker resource path.
func MarkerKey(p string) (string, bool) {
	if !IsMarkerPath(p) {
		return "", false
	}
	return strings.TrimPrefix(p, MarkerPrefix+"/"), true
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidOwner)
	}
	if strings.ContainsAny(name, "\\\x00") {
		return fmt.Errorf("%w: %q contains a forbidden character", ErrInvalidOwner, name)
	}
	if path.IsAbs(name) || path.Clean(name) != name {
		return fmt.Errorf("%w: %q is not a clean relative name", ErrInvalidOwner, name)
	}
	for elem := range strings.SplitSeq(name, "/") {
		if elem == ".." {
			return fmt.Errorf("%w: %q escapes the resource directory", ErrInvalidOwner, name)
		}
	}
	return nil
}
