// Package disk provides the disk-backed storage backend for the cache.
package disk

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/filecache/storage"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
)

// Backend stores files under a root folder using scoped filesystem access.
//
// Every operation opens the root with os.OpenRoot for its own duration, so
// a Backend holds no file descriptors between calls and relative paths
// cannot reach outside the root. The root folder itself is created on first
// write; until then the backend reads as empty.
type Backend struct {
	root     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// Interface compliance.
var _ storage.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithDirPerm sets the permissions for created directories. Defaults to 0o700.
func WithDirPerm(mode os.FileMode) Option {
	return func(b *Backend) {
		b.dirPerm = mode
	}
}

// WithFilePerm sets the permissions for written files. Defaults to 0o600.
func WithFilePerm(mode os.FileMode) Option {
	return func(b *Backend) {
		b.filePerm = mode
	}
}

// New creates a backend rooted at root.
//
// The folder does not need to exist yet; New performs no filesystem access.
// A relative root is resolved against the working directory at operation
// time, not at construction.
func New(root string, opts ...Option) (*Backend, error) {
	if root == "" {
		return nil, errors.New("backend root is empty")
	}
	b := &Backend{
		root:     root,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Root returns the root folder as given to New.
func (b *Backend) Root() string {
	return b.root
}

// Resolve joins rel onto the root after vetting it as a file path.
func (b *Backend) Resolve(rel string) (string, error) {
	switch {
	case rel == "" || rel == "." || strings.HasSuffix(rel, "/"):
		return "", fmt.Errorf("%w: %q", storage.ErrNotFile, rel)
	case !filepath.IsLocal(rel):
		return "", fmt.Errorf("%w: %q", storage.ErrNotLocal, rel)
	}
	return filepath.Join(b.root, rel), nil
}

// RemoveIfExists deletes the file at rel. Missing files, including a
// missing root folder, are not errors.
func (b *Backend) RemoveIfExists(rel string) error {
	root, err := os.OpenRoot(b.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open cache root: %w", err)
	}
	defer root.Close()

	if err := root.Remove(rel); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

// WriteFile creates or replaces the file at rel with data.
//
// The contents are staged in a uniquely named sibling and renamed into
// place, so a reader never observes a partially written file. Parent
// directories, including the root itself, are created as needed.
func (b *Backend) WriteFile(rel string, data []byte) error {
	if err := os.MkdirAll(b.root, b.dirPerm); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}
	root, err := os.OpenRoot(b.root)
	if err != nil {
		return fmt.Errorf("open cache root: %w", err)
	}
	defer root.Close()

	dir := filepath.Dir(rel)
	if dir != "." {
		if err := root.MkdirAll(dir, b.dirPerm); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	tmp, tmpPath, err := createTemp(root, dir, b.filePerm)
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = root.Remove(tmpPath)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = root.Remove(tmpPath)
		return fmt.Errorf("close cache file: %w", err)
	}

	if err := root.Rename(tmpPath, rel); err != nil {
		_ = root.Remove(tmpPath)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// ReadFileIfExists returns the contents of the file at rel. A missing
// file, including a missing root folder, reports ok=false with a nil error.
func (b *Backend) ReadFileIfExists(rel string) ([]byte, bool, error) {
	root, err := os.OpenRoot(b.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open cache root: %w", err)
	}
	defer root.Close()

	data, err := root.ReadFile(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache file: %w", err)
	}
	return data, true, nil
}

// createTemp creates a uniquely named file in dir under root, in the
// manner of os.CreateTemp but scoped to the root.
func createTemp(root *os.Root, dir string, perm os.FileMode) (*os.File, string, error) {
	for tries := 0; tries < 10000; tries++ {
		var randBytes [8]byte
		if _, err := rand.Read(randBytes[:]); err != nil {
			return nil, "", err
		}
		path := filepath.Join(dir, "tmp"+hex.EncodeToString(randBytes[:]))
		f, err := root.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return f, path, nil
	}

	return nil, "", errors.New("failed to create temp file")
}
