package filecache

import (
	"errors"

	"github.com/meigma/filecache/storage"
)

// Sentinel errors.
var (
	// ErrDecompression is returned when a stored payload fails to decode.
	ErrDecompression = errors.New("filecache: decompression failed")
)

// Errors re-exported from storage.
var (
	// ErrNotFile is returned when a derived entry path is not file-shaped.
	ErrNotFile = storage.ErrNotFile

	// ErrNotLocal is returned when a derived entry path escapes the cache root.
	ErrNotLocal = storage.ErrNotLocal
)
