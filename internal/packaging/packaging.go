// SPDX-License-Identifier: MPL-2.0

// Package packaging bundles the modular resource tree of a discovery output
// directory into a zip archive usable as a classpath entry.
package packaging

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daylightnebula/modular/pkg/fragment"
)

// resourceDir is the top-level directory of the archived tree.
const resourceDir = "modular"

// ErrNoResources is returned when the source directory has no resource tree.
var ErrNoResources = errors.New("no modular resources")

// archiveTime is stamped on every entry so that equal trees produce equal archives.
var archiveTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Summary describes a written archive.
type Summary struct {
	// Path is the absolute archive path.
	Path string
	// Files lists the archived resources in archive order.
	Files []string
	// Fragments is the number of listener fragments archived.
	Fragments int
}

// Archive zips the modular/ tree of dir into outputPath. An empty outputPath
// writes <dir>.zip next to dir. The archive is written to a temporary file
// and renamed into place, so a failed run leaves any previous archive intact.
func Archive(dir, outputPath string) (summary Summary, err error) {
	root := filepath.Join(dir, resourceDir)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Summary{}, fmt.Errorf("%w in %s", ErrNoResources, dir)
	}

	if outputPath == "" {
		outputPath = filepath.Clean(dir) + ".zip"
	}
	absOutputPath, err := filepath.Abs(outputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to resolve output path: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(absOutputPath), 0o755); err != nil {
		return Summary{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(absOutputPath), "."+filepath.Base(absOutputPath)+"-*.tmp")
	if err != nil {
		return Summary{}, fmt.Errorf("failed to create ZIP file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name()) // best effort
		}
	}()

	summary.Path = absOutputPath
	zipWriter := zip.NewWriter(tmp)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		relPath, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return fmt.Errorf("failed to get relative path: %w", relErr)
		}
		zipPath := filepath.ToSlash(relPath)

		if d.IsDir() {
			header := &zip.FileHeader{Name: zipPath + "/", Modified: archiveTime}
			header.SetMode(fs.ModeDir | 0o755)
			if _, createErr := zipWriter.CreateHeader(header); createErr != nil {
				return fmt.Errorf("failed to create directory entry: %w", createErr)
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}

		fileData, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("failed to read file %s: %w", path, readErr)
		}

		header := &zip.FileHeader{Name: zipPath, Method: zip.Deflate, Modified: archiveTime}
		header.SetMode(0o644)
		writer, writerErr := zipWriter.CreateHeader(header)
		if writerErr != nil {
			return fmt.Errorf("failed to create ZIP entry: %w", writerErr)
		}
		if _, writeErr := writer.Write(fileData); writeErr != nil {
			return fmt.Errorf("failed to write file data: %w", writeErr)
		}

		summary.Files = append(summary.Files, zipPath)
		if fragment.IsFragmentPath(zipPath) {
			summary.Fragments++
		}
		return nil
	})

	closeZipErr := zipWriter.Close()
	closeFileErr := tmp.Close()
	if err = errors.Join(walkErr, closeZipErr, closeFileErr); err != nil {
		return Summary{}, fmt.Errorf("failed to archive %s: %w", root, err)
	}
	if err = os.Rename(tmp.Name(), absOutputPath); err != nil {
		return Summary{}, fmt.Errorf("failed to move archive into place: %w", err)
	}
	return summary, nil
}
