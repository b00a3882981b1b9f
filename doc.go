// Package filecache provides a content-addressed file cache for byte
// payloads keyed by any value with a stable text form.
//
// Entries live under a single root folder at paths derived from the
// SHA-256 digest of the key's text, so the layout is a stable contract:
// any process rooted at the same folder addresses the same files. For
// alternative storage backends, use the [storage] subpackage.
//
// Each entry is one file:
//   - Shard directory: first 4 hex characters of the digest
//   - Entry file: remaining 60 hex characters plus a ".cache" extension
//
// # Quick Start
//
// Store and retrieve a payload:
//
//	c, err := filecache.New("/var/cache/app")
//	if err != nil {
//	    return err
//	}
//	if err := c.Put(filecache.StringKey("config-v1"), data); err != nil {
//	    return err
//	}
//	content, ok, err := c.Get(filecache.StringKey("config-v1"))
//
// # Read-Through Filling
//
// Use [Filler] to compute and store payloads on miss. Concurrent misses
// for one key collapse into a single computation:
//
//	f, err := filecache.NewFiller(c, func(ctx context.Context, key filecache.Key) ([]byte, error) {
//	    return render(ctx, key)
//	})
//	if err != nil {
//	    return err
//	}
//	content, err := f.Get(ctx, filecache.StringKey("report-2024"))
//
// # Compression
//
// Payloads are stored verbatim by default. [WithCompression] selects zstd
// encoding for stored entries; all readers and writers of one root must
// agree on the setting:
//
//	c, err := filecache.New("/var/cache/app",
//	    filecache.WithCompression(filecache.CompressionZstd),
//	)
package filecache
