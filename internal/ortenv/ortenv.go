// Package ortenv initializes ONNX Runtime from a shared library shipped in
// the bundle, so the binary needs no system-wide installation.
package ortenv

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bagtoad/libload/internal/libname"
	"github.com/bagtoad/libload/internal/loader"
	ort "github.com/yalue/onnxruntime_go"
)

// ErrAlreadyInitialized is returned when the environment is already up.
var ErrAlreadyInitialized = errors.New("ONNX Runtime already initialized")

// DefaultLibrary is the bundle name of ONNX Runtime for this platform.
var DefaultLibrary = libname.Current("onnxruntime")

var mu sync.Mutex

// Runtime is an initialized ONNX Runtime environment.
type Runtime struct {
	Name string // bundle name the library was loaded from
	Path string // extracted library path
}

// Initialize loads name through l and starts ONNX Runtime from the extracted
// file. Only one environment may exist per process.
func Initialize(l *loader.Loader, name string) (*Runtime, error) {
	mu.Lock()
	defer mu.Unlock()

	if ort.IsInitialized() {
		return nil, ErrAlreadyInitialized
	}

	if err := l.Load(name); err != nil {
		return nil, err
	}
	path, ok := l.Path(name)
	if !ok {
		return nil, fmt.Errorf("library %s loaded without a path", name)
	}

	ort.SetSharedLibraryPath(path)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("cannot initialize ONNX Runtime: %w", err)
	}

	return &Runtime{Name: name, Path: path}, nil
}

// Version reports the ONNX Runtime version string.
func (r *Runtime) Version() string {
	return ort.GetVersion()
}

// Destroy tears the environment down.
func (r *Runtime) Destroy() error {
	mu.Lock()
	defer mu.Unlock()
	return ort.DestroyEnvironment()
}
