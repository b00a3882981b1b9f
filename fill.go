package filecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// FillFunc computes the payload for a key that is not yet cached.
type FillFunc func(ctx context.Context, key Key) ([]byte, error)

// Filler wraps a Cache with read-through filling.
//
// Get returns cached payloads directly and invokes the fill function on a
// miss, storing the result for later calls. Concurrent misses for the same
// key are deduplicated using singleflight, so a cold key is computed once
// even when many goroutines request it simultaneously.
//
// The wrapped Cache stays uncoordinated; Filler is the layer that
// serializes computation per key.
type Filler struct {
	cache     *Cache
	fill      FillFunc
	logger    *slog.Logger
	workers   int
	fillGroup singleflight.Group
}

// NewFiller wraps cache with read-through filling via fill.
func NewFiller(cache *Cache, fill FillFunc, opts ...FillerOption) (*Filler, error) {
	if cache == nil {
		return nil, errors.New("cache is nil")
	}
	if fill == nil {
		return nil, errors.New("fill func is nil")
	}
	f := &Filler{
		cache:  cache,
		fill:   fill,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Get returns the payload for key, computing and caching it on a miss.
//
// A cache write failure after a successful fill is logged and swallowed:
// the computed payload is still returned, and a later miss fills again.
// Cache read errors are returned as-is.
func (f *Filler) Get(ctx context.Context, key Key) ([]byte, error) {
	text := key.String()

	// Check cache first (fast path, avoids singleflight overhead)
	data, ok, err := f.cache.Get(key)
	if err != nil {
		return nil, err
	}
	if ok {
		f.logger.Debug("cache hit", "key", text)
		return data, nil
	}
	f.logger.Debug("cache miss", "key", text)

	result, err, _ := f.fillGroup.Do(text, func() (any, error) {
		// Double-check cache: another goroutine may have just filled this
		// key between our cache check and acquiring the singleflight lock.
		data, ok, err := f.cache.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			return data, nil
		}

		data, err = f.fill(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("fill %q: %w", text, err)
		}
		f.logger.Debug("filled", "key", text, "size", len(data))

		if err := f.cache.Put(key, data); err != nil {
			// Caching is opportunistic; the computed payload still stands.
			f.logger.Warn("cache write failed", "key", text, "error", err)
		}

		return data, nil
	})

	if err != nil {
		return nil, err
	}

	content, _ := result.([]byte) //nolint:errcheck // type assertion always succeeds when err is nil
	return content, nil
}

// Warm computes and caches payloads for the given keys, filling misses in
// parallel. Keys already cached are left untouched.
//
// The first fill error cancels the remaining work and is returned. Warm
// shares the Filler's singleflight group, so overlapping Warm and Get
// calls never compute one key twice concurrently.
func (f *Filler) Warm(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}

	workers := f.workers
	switch {
	case workers < 0:
		workers = 1
	case workers == 0:
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, key := range keys {
		g.Go(func() error {
			_, err := f.Get(ctx, key)
			return err
		})
	}
	return g.Wait()
}
