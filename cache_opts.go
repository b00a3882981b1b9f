package filecache

import "fmt"

// Option configures a Cache.
type Option func(*Cache) error

// WithCompression selects the encoding used for stored payloads.
// Defaults to CompressionNone, which stores payloads verbatim.
//
// The setting is not recorded on disk: a cache reads back what it wrote,
// but every cache sharing one root must be configured identically.
func WithCompression(compression Compression) Option {
	return func(c *Cache) error {
		switch compression {
		case CompressionNone, CompressionZstd:
			c.compression = compression
			return nil
		default:
			return fmt.Errorf("unknown compression: %d", compression)
		}
	}
}
