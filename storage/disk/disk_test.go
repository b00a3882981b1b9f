package disk

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/meigma/filecache/storage"
)

func TestBackendWriteRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	content := []byte("backend content")
	if err := b.WriteFile("ab/cd.cache", content); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, ok, err := b.ReadFileIfExists("ab/cd.cache")
	if err != nil {
		t.Fatalf("ReadFileIfExists() error = %v", err)
	}
	if !ok {
		t.Fatal("ReadFileIfExists() ok = false, want true")
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("ReadFileIfExists() = %q, want %q", got, content)
	}

	// Verify the file landed at the expected location
	if _, err := os.Stat(filepath.Join(dir, "ab", "cd.cache")); err != nil {
		t.Fatalf("expected file at ab/cd.cache: %v", err)
	}
}

func TestBackendReadMissing(t *testing.T) {
	t.Parallel()

	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, ok, err := b.ReadFileIfExists("ab/absent.cache")
	if err != nil {
		t.Fatalf("ReadFileIfExists() error = %v, want nil for missing file", err)
	}
	if ok {
		t.Fatal("ReadFileIfExists() ok = true, want false for missing file")
	}
	if got != nil {
		t.Fatalf("ReadFileIfExists() = %q, want nil", got)
	}
}

func TestBackendMissingRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "absent")
	b, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Reads and removes treat a missing root as an empty backend
	if _, ok, err := b.ReadFileIfExists("ab/cd.cache"); err != nil || ok {
		t.Fatalf("ReadFileIfExists() = ok=%v err=%v, want absent", ok, err)
	}
	if err := b.RemoveIfExists("ab/cd.cache"); err != nil {
		t.Fatalf("RemoveIfExists() error = %v", err)
	}

	// Neither operation may create the root as a side effect
	if _, err := os.Stat(root); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Stat(root) error = %v, want not exist", err)
	}
}

func TestBackendWriteCreatesRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "nested", "cache")
	b, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := b.WriteFile("ab/cd.cache", []byte("x")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "ab", "cd.cache")); err != nil {
		t.Fatalf("expected file under created root: %v", err)
	}
}

func TestBackendOverwrite(t *testing.T) {
	t.Parallel()

	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := b.WriteFile("ab/cd.cache", []byte("first")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := b.WriteFile("ab/cd.cache", []byte("second")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, ok, err := b.ReadFileIfExists("ab/cd.cache")
	if err != nil || !ok {
		t.Fatalf("ReadFileIfExists() = ok=%v err=%v, want hit", ok, err)
	}
	if string(got) != "second" {
		t.Fatalf("ReadFileIfExists() = %q, want %q", got, "second")
	}
}

func TestBackendRemoveIfExists(t *testing.T) {
	t.Parallel()

	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := b.WriteFile("ab/cd.cache", []byte("x")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := b.RemoveIfExists("ab/cd.cache"); err != nil {
		t.Fatalf("RemoveIfExists() error = %v", err)
	}

	if _, ok, err := b.ReadFileIfExists("ab/cd.cache"); err != nil || ok {
		t.Fatalf("ReadFileIfExists() = ok=%v err=%v, want absent after remove", ok, err)
	}

	// Removing an already-missing file is not an error
	if err := b.RemoveIfExists("ab/cd.cache"); err != nil {
		t.Fatalf("RemoveIfExists() second call error = %v", err)
	}
}

func TestBackendWriteEmpty(t *testing.T) {
	t.Parallel()

	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := b.WriteFile("ab/empty.cache", nil); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, ok, err := b.ReadFileIfExists("ab/empty.cache")
	if err != nil || !ok {
		t.Fatalf("ReadFileIfExists() = ok=%v err=%v, want hit", ok, err)
	}
	if len(got) != 0 {
		t.Fatalf("ReadFileIfExists() = %q, want empty", got)
	}
}

func TestBackendResolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr error
	}{
		{name: "sharded entry", rel: "ab/cd.cache", want: filepath.Join(dir, "ab", "cd.cache")},
		{name: "bare file", rel: "x.cache", want: filepath.Join(dir, "x.cache")},
		{name: "empty", rel: "", wantErr: storage.ErrNotFile},
		{name: "dot", rel: ".", wantErr: storage.ErrNotFile},
		{name: "trailing slash", rel: "ab/", wantErr: storage.ErrNotFile},
		{name: "parent escape", rel: "../escape.cache", wantErr: storage.ErrNotLocal},
		{name: "nested escape", rel: "ab/../../escape.cache", wantErr: storage.ErrNotLocal},
		{name: "absolute", rel: "/etc/passwd", wantErr: storage.ErrNotLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := b.Resolve(tt.rel)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q) error = %v, want %v", tt.rel, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.rel, err)
			}
			if got != tt.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tt.rel, got, tt.want)
			}
		})
	}
}

func TestBackendRootIsFile(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(root, []byte("not a directory"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	b, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := b.WriteFile("ab/cd.cache", []byte("x")); err == nil {
		t.Fatal("WriteFile() error = nil, want error for file root")
	}
	if _, _, err := b.ReadFileIfExists("ab/cd.cache"); err == nil {
		t.Fatal("ReadFileIfExists() error = nil, want error for file root")
	}
}

func TestBackendParentIsFile(t *testing.T) {
	t.Parallel()

	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Occupy the parent directory slot with a regular file
	if err := b.WriteFile("ab", []byte("x")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := b.WriteFile("ab/cd.cache", []byte("y")); err == nil {
		t.Fatal("WriteFile() error = nil, want error for file parent")
	}
}

func TestNewEmptyRoot(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") error = nil, want error")
	}
}

func TestNewNoFilesystemAccess(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "untouched")
	if _, err := New(root); err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := os.Stat(root); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Stat(root) error = %v, want not exist", err)
	}
}
