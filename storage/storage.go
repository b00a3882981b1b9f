// Package storage defines the file backend contract the cache stores
// entries through.
//
// A Backend is rooted under a single folder and exposes exactly the
// operations the cache needs: resolving a root-relative path to a concrete
// file path, deleting if present, writing with parent creation, and reading
// with absence reported as a normal result. The disk subpackage provides
// the production implementation; anything satisfying Backend can stand in.
package storage

import (
	"errors"
	"os"
)

// Sentinel errors.
var (
	// ErrNotFile is returned when a resolved path is not file-shaped.
	ErrNotFile = errors.New("storage: path is not a file path")

	// ErrNotLocal is returned when a relative path would escape the backend root.
	ErrNotLocal = errors.New("storage: path escapes the backend root")
)

// Backend stores and retrieves files under a single root folder.
//
// Every rel argument is interpreted relative to the root. Absence of a file
// is a normal result, not an error. Implementations must be safe for
// concurrent use; they are not required to coordinate concurrent writers
// beyond keeping individual files intact.
type Backend interface {
	// Root returns the folder the backend operates under.
	Root() string

	// Resolve appends rel to the root and vets the result as a file path.
	// It fails with ErrNotFile or ErrNotLocal on structurally invalid input
	// and performs no I/O.
	Resolve(rel string) (string, error)

	// RemoveIfExists deletes the file at rel. A missing file is not an error.
	RemoveIfExists(rel string) error

	// WriteFile creates or replaces the file at rel with data, creating
	// parent directories as needed.
	WriteFile(rel string, data []byte) error

	// ReadFileIfExists returns the contents of the file at rel, or ok=false
	// if it does not exist. The error is non-nil only for genuine read
	// failures.
	ReadFileIfExists(rel string) (data []byte, ok bool, err error)
}

// TempDir provisions a fresh process-unique folder suitable for a
// throwaway cache root. The folder is not cleaned up automatically.
func TempDir() (string, error) {
	return os.MkdirTemp("", "filecache-")
}
