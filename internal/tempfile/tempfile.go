// Package tempfile creates uniquely named temporary files and removes them on
// a best-effort basis when the process exits.
//
// Cleanup only runs if the owner calls it, typically from a deferred call in
// main and from a signal handler. A process that is killed outright leaves
// its files behind.
package tempfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Tracker remembers every file it has created so they can be removed later.
type Tracker struct {
	// Dir is the directory for new files. Empty means os.TempDir().
	Dir string

	mu    sync.Mutex
	paths []string
}

// Create makes a new file whose name is derived from name, e.g. "libfoo.so"
// becomes "libfoo-123456.so". The caller owns the returned file.
func (t *Tracker) Create(name string) (*os.File, error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	pattern := strings.TrimSuffix(base, ext) + "-*" + ext

	f, err := os.CreateTemp(t.Dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("cannot create temp file: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = append(t.paths, f.Name())
	return f, nil
}

// Paths returns the files created so far.
func (t *Tracker) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.paths...)
}

// Cleanup removes every tracked file. Files that are already gone are
// ignored. Files that cannot be removed (for instance a DLL still mapped on
// Windows) are reported and stay tracked.
func (t *Tracker) Cleanup() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	var kept []string
	for _, p := range t.paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			kept = append(kept, p)
		}
	}
	t.paths = kept
	return errors.Join(errs...)
}
