package loader

import (
	"errors"
	"fmt"
)

// Causes wrapped by LoadError. A missing entry wraps bundle.ErrEntryNotFound.
var (
	ErrLocate   = errors.New("cannot locate bundle")
	ErrOpen     = errors.New("cannot open bundle")
	ErrCopy     = errors.New("cannot extract library")
	ErrPlatform = errors.New("platform loader rejected library")
)

// LoadError is returned by every failed Load.
type LoadError struct {
	Name   string
	Bundle string // empty if the bundle was never located
	Err    error
}

func (e *LoadError) Error() string {
	if e.Bundle == "" {
		return fmt.Sprintf("failed to load native library %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("failed to load native library %s from %s: %v", e.Name, e.Bundle, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
