// Package extract unpacks the native libraries of a bundle into a directory.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bagtoad/libload/internal/bundle"
	"github.com/klauspost/compress/zip"
)

// Result records what happened to a single library.
type Result struct {
	Name     string // library name relative to the prefix
	DestPath string
	Size     int64
}

// Extract copies every library under prefix in b into destDir, keeping the
// relative layout. Existing files are never overwritten; a numeric suffix is
// added instead. If dryRun is true, nothing is written but results are still
// returned.
func Extract(b *bundle.Bundle, prefix, destDir string, dryRun bool) ([]Result, error) {
	var results []Result

	for _, name := range b.Libraries(prefix) {
		entry, err := b.Entry(prefix + name)
		if err != nil {
			return nil, err
		}

		destPath := filepath.Join(destDir, filepath.FromSlash(name))
		if !within(destDir, destPath) {
			return nil, fmt.Errorf("refusing to extract %q outside %s", name, destDir)
		}
		destPath = resolveConflict(destPath, dryRun)

		size := int64(entry.UncompressedSize64)
		if !dryRun {
			if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
				return nil, fmt.Errorf("cannot create folder for %s: %w", name, err)
			}
			n, err := copyEntry(entry, destPath)
			if err != nil {
				return nil, fmt.Errorf("cannot extract %s to %s: %w", name, destPath, err)
			}
			size = n
		}

		results = append(results, Result{
			Name:     name,
			DestPath: destPath,
			Size:     size,
		})
	}

	return results, nil
}

func copyEntry(entry *zip.File, destPath string) (int64, error) {
	in, err := entry.Open()
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0755)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		os.Remove(destPath)
		return 0, err
	}
	return n, out.Close()
}

// within reports whether p stays inside dir.
func within(dir, p string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolveConflict appends a numeric suffix if a file already exists at destPath.
func resolveConflict(destPath string, dryRun bool) string {
	if dryRun {
		return destPath
	}

	if _, err := os.Stat(destPath); os.IsNotExist(err) {
		return destPath
	}

	base, ext := bundle.SplitExt(destPath)

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
