package bundle

import (
	"path"
	"path/filepath"
	"strings"
)

// LibraryExtensions contains the file extensions treated as native code objects.
var LibraryExtensions = map[string]bool{
	".so":     true,
	".dylib":  true,
	".jnilib": true,
	".dll":    true,
}

// IsLibrary reports whether name looks like a native library file. Versioned
// shared objects such as libfoo.so.1.2 are accepted.
func IsLibrary(name string) bool {
	base := strings.ToLower(path.Base(name))
	if LibraryExtensions[path.Ext(base)] {
		return true
	}
	return versionedIndex(base) >= 0
}

// SplitExt splits name into stem and extension. Versioned shared objects keep
// the whole ".so.N" tail as the extension, so "libfoo.so.1" splits into
// "libfoo" and ".so.1".
func SplitExt(name string) (stem, ext string) {
	dir, file := path.Split(filepath.ToSlash(name))
	if i := versionedIndex(strings.ToLower(file)); i >= 0 {
		stem, ext = file[:i], file[i:]
	} else {
		ext = path.Ext(file)
		stem = strings.TrimSuffix(file, ext)
	}
	return filepath.FromSlash(dir + stem), ext
}

// versionedIndex returns the index of ".so." in a versioned shared object
// name like libfoo.so.1.2, or -1.
func versionedIndex(base string) int {
	i := strings.Index(base, ".so.")
	if i <= 0 || i+len(".so.") >= len(base) {
		return -1
	}
	for _, r := range base[i+len(".so."):] {
		if r != '.' && (r < '0' || r > '9') {
			return -1
		}
	}
	return i
}
