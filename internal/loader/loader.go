// Package loader extracts native libraries from the program's bundle and
// loads each logical name into the process at most once.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"

	"github.com/bagtoad/libload/internal/bundle"
	"github.com/bagtoad/libload/internal/platform"
	"github.com/bagtoad/libload/internal/tempfile"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultBufferSize is the copy buffer used when Options.BufferSize is unset.
const DefaultBufferSize = 2048

// Options configures a Loader. Zero values select the defaults.
type Options struct {
	Locator    bundle.Locator    // default bundle.Executable
	Platform   platform.Loader   // default platform.NewDynamic()
	Temp       *tempfile.Tracker // default tracker in os.TempDir()
	Prefix     string            // default bundle.DefaultPrefix
	BufferSize int               // default DefaultBufferSize
	Logger     *zap.Logger       // default zap.NewNop()
}

// Loader owns the registry of loaded libraries.
type Loader struct {
	locate     bundle.Locator
	platform   platform.Loader
	temp       *tempfile.Tracker
	prefix     string
	bufferSize int
	log        *zap.Logger

	registry *Registry
	inflight singleflight.Group
}

// New returns a Loader with an empty registry.
func New(opts Options) *Loader {
	l := &Loader{
		locate:     opts.Locator,
		platform:   opts.Platform,
		temp:       opts.Temp,
		prefix:     opts.Prefix,
		bufferSize: opts.BufferSize,
		log:        opts.Logger,
		registry:   NewRegistry(),
	}
	if l.locate == nil {
		l.locate = bundle.Executable
	}
	if l.platform == nil {
		l.platform = platform.NewDynamic()
	}
	if l.temp == nil {
		l.temp = &tempfile.Tracker{}
	}
	if l.prefix == "" {
		l.prefix = bundle.DefaultPrefix
	}
	if l.bufferSize <= 0 {
		l.bufferSize = DefaultBufferSize
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	return l
}

// Load makes sure the library stored in the bundle under the prefix joined
// with name is loaded into the process. Once a name has loaded successfully,
// later calls return immediately. Concurrent calls for the same name share a
// single extraction. Failures leave the registry untouched, so a later call
// starts over.
func (l *Loader) Load(name string) error {
	if l.registry.Contains(name) {
		l.log.Debug("native library already loaded", zap.String("name", name))
		return nil
	}

	_, err, _ := l.inflight.Do(name, func() (any, error) {
		// A call for the same name may have finished between the check above
		// and joining the group.
		if l.registry.Contains(name) {
			return nil, nil
		}
		lib, err := l.extractAndLoad(name)
		if err != nil {
			return nil, err
		}
		l.registry.Add(lib)
		return nil, nil
	})
	return err
}

// Loaded reports whether name has been loaded.
func (l *Loader) Loaded(name string) bool {
	return l.registry.Contains(name)
}

// Path returns the extracted file backing a loaded library.
func (l *Loader) Path(name string) (string, bool) {
	lib, ok := l.registry.Get(name)
	if !ok {
		return "", false
	}
	return lib.Path, true
}

// Libraries returns every loaded library, ordered by name.
func (l *Loader) Libraries() []Library {
	names := l.registry.Names()
	libs := make([]Library, 0, len(names))
	for _, n := range names {
		if lib, ok := l.registry.Get(n); ok {
			libs = append(libs, lib)
		}
	}
	return libs
}

// Registry exposes the set of loaded names.
func (l *Loader) Registry() *Registry { return l.registry }

func (l *Loader) extractAndLoad(name string) (Library, error) {
	bundlePath, err := l.locate()
	if err != nil {
		l.log.Debug("cannot locate bundle", zap.String("name", name), zap.Error(err))
		return Library{}, &LoadError{Name: name, Err: fmt.Errorf("%w: %w", ErrLocate, err)}
	}
	l.log.Debug("opening bundle", zap.String("name", name), zap.String("bundle", bundlePath))
	fail := func(err error) (Library, error) {
		return Library{}, &LoadError{Name: name, Bundle: bundlePath, Err: err}
	}

	b, err := bundle.Open(bundlePath)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrOpen, err))
	}
	defer b.Close()

	entry, err := b.Entry(l.prefix + name)
	if err != nil {
		return fail(err)
	}

	path, size, sum, err := l.extract(entry, name)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrCopy, err))
	}

	if err := l.platform.Load(path); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrPlatform, err))
	}

	l.log.Info("loaded native library",
		zap.String("name", name),
		zap.String("bundle", bundlePath),
		zap.String("path", path),
		zap.Int64("bytes", size),
		zap.String("sha256", sum),
	)

	return Library{
		Name:   name,
		Bundle: bundlePath,
		Path:   path,
		Size:   size,
		SHA256: sum,
	}, nil
}

// extract copies entry into a fresh temp file and returns its canonical path,
// size and SHA-256.
func (l *Loader) extract(entry *zip.File, name string) (string, int64, string, error) {
	in, err := entry.Open()
	if err != nil {
		return "", 0, "", fmt.Errorf("cannot read %s: %w", entry.Name, err)
	}
	defer in.Close()

	out, err := l.temp.Create(name)
	if err != nil {
		return "", 0, "", err
	}
	defer out.Close()

	hasher := sha256.New()
	buf := make([]byte, l.bufferSize)
	n, err := io.CopyBuffer(io.MultiWriter(out, hasher), in, buf)
	if err != nil {
		return "", 0, "", fmt.Errorf("copy error: %w", err)
	}
	if err := out.Chmod(0755); err != nil {
		return "", 0, "", fmt.Errorf("cannot set permissions: %w", err)
	}
	if err := out.Sync(); err != nil {
		return "", 0, "", fmt.Errorf("flush error: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", 0, "", fmt.Errorf("close error: %w", err)
	}

	path, err := canonical(out.Name())
	if err != nil {
		return "", 0, "", err
	}
	return path, n, hex.EncodeToString(hasher.Sum(nil)), nil
}

func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", p, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", abs, err)
	}
	return resolved, nil
}
