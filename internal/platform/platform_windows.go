//go:build windows

package platform

import (
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
)

var (
	dllMu sync.Mutex
	dlls  = map[uintptr]*windows.DLL{}
)

func openLibrary(path string) (uintptr, error) {
	dll, err := windows.LoadDLL(path)
	if err != nil {
		return 0, fmt.Errorf("LoadDLL failed: %w", err)
	}
	h := uintptr(dll.Handle)

	dllMu.Lock()
	defer dllMu.Unlock()
	dlls[h] = dll
	return h, nil
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	dllMu.Lock()
	dll, ok := dlls[handle]
	dllMu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown library handle")
	}
	proc, err := dll.FindProc(name)
	if err != nil {
		return 0, fmt.Errorf("FindProc(%s) failed: %w", name, err)
	}
	return proc.Addr(), nil
}
