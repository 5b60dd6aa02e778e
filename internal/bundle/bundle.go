// Package bundle locates the archive this program was shipped in and reads
// native library entries out of it.
package bundle

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// DefaultPrefix is the namespace inside a bundle that holds native libraries.
const DefaultPrefix = "jnilibs/"

// ErrEntryNotFound is returned when a bundle has no entry at the requested path.
var ErrEntryNotFound = errors.New("entry not found")

// Locator reports the on-disk path of the bundle to read from.
type Locator func() (string, error)

// Executable locates the bundle as the running executable, with symlinks
// resolved.
func Executable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot determine executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("cannot resolve executable path: %w", err)
	}
	return resolved, nil
}

// Fixed returns a Locator that always reports p.
func Fixed(p string) Locator {
	return func() (string, error) {
		if p == "" {
			return "", fmt.Errorf("empty bundle path")
		}
		return p, nil
	}
}

// Bundle is an open, random-access view of a bundle archive.
type Bundle struct {
	path    string
	rc      *zip.ReadCloser
	entries map[string]*zip.File
}

// Open opens the archive at p.
func Open(p string) (*Bundle, error) {
	rc, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("cannot open bundle %s: %w", p, err)
	}

	entries := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries[f.Name] = f
	}

	return &Bundle{path: p, rc: rc, entries: entries}, nil
}

// Path returns the file the bundle was opened from.
func (b *Bundle) Path() string { return b.path }

// Entry returns the file stored at the exact archive path name.
func (b *Bundle) Entry(name string) (*zip.File, error) {
	f, ok := b.entries[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	return f, nil
}

// Libraries lists the native library entries under prefix, with the prefix
// stripped, in sorted order. Hidden files and non-library entries are skipped.
func (b *Bundle) Libraries(prefix string) []string {
	var names []string
	for name := range b.entries {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rel := strings.TrimPrefix(name, prefix)
		if rel == "" || strings.HasPrefix(path.Base(rel), ".") {
			continue
		}
		if IsLibrary(rel) {
			names = append(names, rel)
		}
	}
	sort.Strings(names)
	return names
}

// Close releases the underlying archive.
func (b *Bundle) Close() error {
	return b.rc.Close()
}
