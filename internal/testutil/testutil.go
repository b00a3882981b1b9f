// Package testutil provides shared test doubles for cache tests.
package testutil

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/meigma/filecache/storage"
)

// MockBackend implements a concurrency-safe in-memory storage backend,
// recording the operations performed against it in order.
//
// The Fail* fields, when set, are returned by the corresponding operations
// before the store is touched.
type MockBackend struct {
	root string

	mu    sync.Mutex
	files map[string][]byte
	ops   []string

	FailRemove error
	FailWrite  error
	FailRead   error
}

// Interface compliance.
var _ storage.Backend = (*MockBackend)(nil)

// NewMockBackend constructs an empty in-memory backend rooted at root.
func NewMockBackend(root string) *MockBackend {
	return &MockBackend{root: root, files: make(map[string][]byte)}
}

// Root returns the nominal root folder.
func (b *MockBackend) Root() string {
	return b.root
}

// Resolve joins rel onto the root after the same structural checks as the
// disk backend.
func (b *MockBackend) Resolve(rel string) (string, error) {
	switch {
	case rel == "" || rel == "." || strings.HasSuffix(rel, "/"):
		return "", storage.ErrNotFile
	case !filepath.IsLocal(rel):
		return "", storage.ErrNotLocal
	}
	return filepath.Join(b.root, rel), nil
}

// RemoveIfExists deletes the entry at rel if present.
func (b *MockBackend) RemoveIfExists(rel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, "remove "+rel)
	if b.FailRemove != nil {
		return b.FailRemove
	}
	delete(b.files, rel)
	return nil
}

// WriteFile stores a copy of data at rel.
func (b *MockBackend) WriteFile(rel string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, "write "+rel)
	if b.FailWrite != nil {
		return b.FailWrite
	}
	b.files[rel] = append([]byte(nil), data...)
	return nil
}

// ReadFileIfExists returns a copy of the data at rel.
func (b *MockBackend) ReadFileIfExists(rel string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, "read "+rel)
	if b.FailRead != nil {
		return nil, false, b.FailRead
	}
	data, ok := b.files[rel]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Ops returns the operations performed so far, in order, as
// "<verb> <rel>" strings.
func (b *MockBackend) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ops...)
}

// Len returns the number of stored entries.
func (b *MockBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}
