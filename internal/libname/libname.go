// Package libname builds platform-qualified library names and resolves which
// libraries a run should load.
package libname

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// PlatformPrefix marks a bare base name that should be qualified for the
// current platform, e.g. "@onnxruntime".
const PlatformPrefix = "@"

// ForPlatform returns the conventional bundle name for base on goos/goarch,
// e.g. "linux-amd64/libfoo.so" or "windows-amd64/foo.dll".
func ForPlatform(base, goos, goarch string) string {
	var file string
	switch goos {
	case "darwin", "ios":
		file = "lib" + base + ".dylib"
	case "windows":
		file = base + ".dll"
	default:
		file = "lib" + base + ".so"
	}
	return goos + "-" + goarch + "/" + file
}

// Current returns ForPlatform for the running platform.
func Current(base string) string {
	return ForPlatform(base, runtime.GOOS, runtime.GOARCH)
}

// Expand qualifies names written as "@base" for the running platform and
// returns other names unchanged.
func Expand(name string) string {
	if base, ok := strings.CutPrefix(name, PlatformPrefix); ok && base != "" {
		return Current(base)
	}
	return name
}

// DefaultListPath returns the path to the user's library list file.
func DefaultListPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".libload", "libraries.txt"), nil
}

// LoadList reads library names from path, one per line. Blank lines and lines
// starting with '#' are ignored. Returns nil if the file does not exist.
func LoadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open library list: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			names = append(names, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading library list: %w", err)
	}

	return names, nil
}

// Resolve returns the library names to load, expanded for the current
// platform. Priority: CLI arguments > list file. An empty listPath skips the
// file.
func Resolve(cli []string, listPath string) ([]string, error) {
	names := cli
	if len(names) == 0 && listPath != "" {
		fromFile, err := LoadList(listPath)
		if err != nil {
			return nil, err
		}
		names = fromFile
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no libraries requested")
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, Expand(n))
	}
	return out, nil
}
