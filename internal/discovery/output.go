// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/daylightnebula/modular/pkg/fragment"
)

// writeFile replaces path with data unless it already holds exactly data.
// The new content is written to a temporary sibling and renamed into place so
// readers never observe a partial file. It reports whether path changed.
func writeFile(path string, data []byte) (changed bool, err error) {
	if cur, readErr := os.ReadFile(path); readErr == nil && bytes.Equal(cur, data) {
		return false, nil
	}

	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name()) // best-effort cleanup
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, err
	}
	if err = tmp.Close(); err != nil {
		return false, err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return false, err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return false, err
	}
	return true, nil
}

// writeFragment serializes f to the resource path rel under outDir.
func (a *Analyzer) writeFragment(outDir, rel string, f *fragment.Fragment, res *Result) bool {
	data, err := fragment.Marshal(f)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, failure(CodeFragmentWriteFailed, rel, "failed to encode fragment", err))
		return false
	}

	target := filepath.Join(outDir, filepath.FromSlash(rel))
	changed, err := writeFile(target, data)
	if err != nil {
		a.logger.Warn("fragment write failed", "path", target, "error", err)
		res.Diagnostics = append(res.Diagnostics, failure(CodeFragmentWriteFailed, target, "failed to write fragment", err))
		return false
	}

	res.Fragments[rel] = f
	if changed {
		res.Written = append(res.Written, target)
		a.logger.Info("wrote fragment", "path", target, "descriptors", f.Len())
	} else {
		res.Unchanged = append(res.Unchanged, target)
		a.logger.Debug("fragment unchanged", "path", target)
	}
	return true
}

// writeMarker writes the empty marker file of key.
func (a *Analyzer) writeMarker(outDir, key string, res *Result) (string, bool) {
	rel, err := fragment.MarkerPath(key)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, failure(CodeMarkerWriteFailed, key, "invalid marker key", err))
		return "", false
	}
	target := filepath.Join(outDir, filepath.FromSlash(rel))
	if _, err := writeFile(target, nil); err != nil {
		res.Diagnostics = append(res.Diagnostics, failure(CodeMarkerWriteFailed, target, "failed to write marker", err))
		return "", false
	}
	return rel, true
}

// writeManifest records every fragment and marker present in outDir. Entries
// of an existing manifest are kept while their files still exist.
func (a *Analyzer) writeManifest(outDir string, fragments, markers []string, res *Result) {
	target := filepath.Join(outDir, filepath.FromSlash(fragment.ManifestPath))

	if data, err := os.ReadFile(target); err == nil {
		prev, err := fragment.UnmarshalManifest(data)
		if err != nil {
			a.logger.Debug("ignoring unreadable manifest", "path", target, "error", err)
		}
		fragments = append(fragments, existing(outDir, prev.Fragments)...)
		markers = append(markers, existing(outDir, prev.Markers)...)
	} else if !errors.Is(err, fs.ErrNotExist) {
		a.logger.Debug("ignoring unreadable manifest", "path", target, "error", err)
	}

	data, err := fragment.MarshalManifest(fragment.Manifest{Fragments: fragments, Markers: markers})
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, failure(CodeManifestWriteFailed, target, "failed to encode manifest", err))
		return
	}
	changed, err := writeFile(target, data)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, failure(CodeManifestWriteFailed, target, "failed to write manifest", err))
		return
	}
	if changed {
		res.Written = append(res.Written, target)
	}
}

// existing filters resource paths down to those present under dir.
func existing(dir string, paths []string) []string {
	return slices.DeleteFunc(slices.Clone(paths), func(p string) bool {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(p)))
		return err != nil
	})
}

func removeGenerated(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if !isGenerated(data) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("remove stale registration file: %w", err)
	}
	return true, nil
}
