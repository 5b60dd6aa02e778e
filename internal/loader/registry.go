package loader

import (
	"sort"
	"sync"
)

// Library records a native library that has been loaded into this process.
type Library struct {
	Name   string // logical name requested by the caller
	Bundle string // bundle the library was extracted from
	Path   string // canonical path of the extracted file handed to the platform loader
	Size   int64
	SHA256 string
}

// Registry is the set of library names already loaded during this run.
// Entries are only ever added.
type Registry struct {
	mu   sync.Mutex
	libs map[string]Library
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{libs: make(map[string]Library)}
}

// Contains reports whether name has been loaded.
func (r *Registry) Contains(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.libs[name]
	return ok
}

// Add records lib as loaded. An existing record for the same name is kept.
func (r *Registry) Add(lib Library) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.libs[lib.Name]; ok {
		return
	}
	r.libs[lib.Name] = lib
}

// Get returns the record for name.
func (r *Registry) Get(name string) (Library, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lib, ok := r.libs[name]
	return lib, ok
}

// Names returns the loaded names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.libs))
	for name := range r.libs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded libraries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.libs)
}
