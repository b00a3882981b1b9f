package filecache

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/filecache/storage"
	"github.com/meigma/filecache/storage/disk"
)

const (
	// cacheExt is the filename extension given to every entry file.
	cacheExt = ".cache"

	// shardPrefixLen is the number of leading hex characters used as the
	// shard directory, giving at most 65536 first-level directories.
	shardPrefixLen = 4
)

// Cache is a content-addressed file cache rooted under a single folder.
//
// The entry for a key lives at <root>/<hex[:4]>/<hex[4:]>.cache, where hex
// is the lowercase 64-character SHA-256 digest of the key's text. The
// location depends only on the root and the key, never on the payload, so
// independently constructed caches over one folder address the same files.
//
// A Cache holds no open file handles and no state beyond its configuration;
// every operation is an independent, synchronous filesystem transaction.
// Concurrent use is safe but uncoordinated: writers racing on one key
// finish in last-write order, and a reader racing a writer observes either
// a complete previous payload, a complete new payload, or absence.
type Cache struct {
	backend     storage.Backend
	compression Compression
	enc         *zstd.Encoder
	dec         *zstd.Decoder
}

// New creates a cache rooted at the given folder.
//
// The folder does not need to exist; it is created on first write. New
// performs no filesystem access.
func New(root string, opts ...Option) (*Cache, error) {
	backend, err := disk.New(root)
	if err != nil {
		return nil, err
	}
	return NewWithBackend(backend, opts...)
}

// NewTemp creates a cache rooted at a fresh process-unique temporary
// folder, for throwaway caches in tests and short-lived tools.
//
// The folder is not removed by the cache; its lifetime is the caller's
// concern. Use Root to recover the location.
func NewTemp(opts ...Option) (*Cache, error) {
	root, err := storage.TempDir()
	if err != nil {
		return nil, fmt.Errorf("create temp cache root: %w", err)
	}
	return New(root, opts...)
}

// NewWithBackend creates a cache over a caller-supplied storage backend.
func NewWithBackend(backend storage.Backend, opts ...Option) (*Cache, error) {
	if backend == nil {
		return nil, errors.New("backend is nil")
	}
	c := &Cache{backend: backend}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.compression == CompressionZstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		c.enc, c.dec = enc, dec
	}
	return c, nil
}

// Root returns the folder the cache stores entries under.
func (c *Cache) Root() string {
	return c.backend.Root()
}

// FilePath returns the path of the file backing the entry for key.
//
// The path is a pure function of the cache root and the key's text; it is
// the same whether or not the entry exists, and FilePath performs no
// filesystem access. The error reports structurally unusable paths, such
// as a root that makes the result escape itself.
func (c *Cache) FilePath(key Key) (string, error) {
	return c.backend.Resolve(relPath(key))
}

// Put stores data as the payload for key, replacing any previous payload.
//
// Any existing entry file is deleted before the new contents are staged
// and renamed into place. The two steps are not atomic as a pair: a reader
// racing a Put can observe the entry as briefly absent.
func (c *Cache) Put(key Key, data []byte) error {
	rel := relPath(key)
	if err := c.backend.RemoveIfExists(rel); err != nil {
		return fmt.Errorf("remove previous entry: %w", err)
	}
	if err := c.backend.WriteFile(rel, c.encode(data)); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// Get returns the payload stored for key.
//
// The second result reports whether an entry was present: a miss is a
// normal outcome, not an error. The error is non-nil only when an entry
// could not be read or decoded.
func (c *Cache) Get(key Key) ([]byte, bool, error) {
	data, ok, err := c.backend.ReadFileIfExists(relPath(key))
	if err != nil {
		return nil, false, fmt.Errorf("read entry: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	decoded, err := c.decode(data)
	if err != nil {
		return nil, false, err
	}
	return decoded, true, nil
}

// relPath derives the root-relative entry path for key: the lowercase hex
// SHA-256 digest of the key's text, split into a shard directory and a
// filename.
func relPath(key Key) string {
	hexHash := digest.SHA256.FromString(key.String()).Encoded()
	return filepath.Join(hexHash[:shardPrefixLen], hexHash[shardPrefixLen:]+cacheExt)
}

func (c *Cache) encode(data []byte) []byte {
	if c.enc == nil {
		return data
	}
	return c.enc.EncodeAll(data, nil)
}

func (c *Cache) decode(data []byte) ([]byte, error) {
	if c.dec == nil {
		return data, nil
	}
	decoded, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return decoded, nil
}
