package filecache

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// Key addresses a cache entry.
//
// The cache identifies an entry by the key's string form alone: two keys
// address the same entry exactly when their String results are identical.
// String must be deterministic, returning the same text for the same value
// on every call and in every process.
type Key interface {
	fmt.Stringer
}

// StringKey adapts a string for use as a Key. The string is used as the
// key text verbatim.
type StringKey string

func (k StringKey) String() string { return string(k) }

// BytesKey adapts a byte slice for use as a Key. The key text is the
// lowercase hex encoding of the bytes, so arbitrary binary identifiers
// remain stable and printable.
type BytesKey []byte

func (k BytesKey) String() string { return hex.EncodeToString(k) }

// Uint64Key adapts an unsigned integer for use as a Key. The key text is
// the decimal representation of the value.
type Uint64Key uint64

func (k Uint64Key) String() string { return strconv.FormatUint(uint64(k), 10) }
