//go:build !darwin && !freebsd && !linux && !windows

package platform

func openLibrary(string) (uintptr, error) {
	return 0, ErrUnsupported
}

func lookupSymbol(uintptr, string) (uintptr, error) {
	return 0, ErrUnsupported
}
