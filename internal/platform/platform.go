// Package platform hands native code objects to the operating system's
// dynamic loader.
package platform

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnsupported is returned on targets without a dynamic loader binding.
var ErrUnsupported = errors.New("dynamic library loading not supported on this platform")

// Loader loads the native code object at path into the current process.
type Loader interface {
	Load(path string) error
}

// Dynamic loads libraries with the host's dynamic loader. Handles stay open
// for the life of the process so exported symbols remain resolvable.
type Dynamic struct {
	mu      sync.Mutex
	handles map[string]uintptr
}

// NewDynamic returns a loader backed by the operating system.
func NewDynamic() *Dynamic {
	return &Dynamic{handles: make(map[string]uintptr)}
}

// Load maps the library at path into the process.
func (d *Dynamic) Load(path string) error {
	h, err := openLibrary(path)
	if err != nil {
		return fmt.Errorf("cannot load %s: %w", path, err)
	}
	if h == 0 {
		return fmt.Errorf("cannot load %s: loader returned a nil handle", path)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handles[path] = h
	return nil
}

// Symbol resolves an exported symbol from a library previously loaded from path.
func (d *Dynamic) Symbol(path, name string) (uintptr, error) {
	d.mu.Lock()
	h, ok := d.handles[path]
	d.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("library %s is not loaded", path)
	}

	addr, err := lookupSymbol(h, name)
	if err != nil {
		return 0, fmt.Errorf("cannot resolve %s in %s: %w", name, path, err)
	}
	return addr, nil
}
