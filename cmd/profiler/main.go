// Command profiler exercises the cache under CPU, heap, wall-clock, and
// execution-trace profiling.
//
// It provisions a dataset of keys, runs one of several access modes against
// a cache for a fixed duration or iteration count, and reports throughput.
// Profiles are written to files via the -cpuprofile, -memprofile, -fgprofile,
// and -trace flags; -pprof-addr serves live profiles over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible workloads
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"
	"github.com/meigma/filecache"
)

type config struct {
	mode        string
	entries     int
	valueSize   int
	pattern     string
	compression string
	cacheDir    string
	keepCache   bool
	fillLatency time.Duration
	warmWorkers int
	readRandom  bool
	duration    time.Duration
	iterations  int
	pprofAddr   string
	cpuProfile  string
	memProfile  string
	traceFile   string
	fgProfile   string
	randomSeed  int64
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkBytes []byte
	sinkPath  string
)

func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupCacheDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	var stopFG func() error
	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
		}
		stopFG = fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, dir)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops     int
	bytes   int64
	elapsed time.Duration
}

//nolint:gocognit,gocyclo,gocritic // complexity is inherent to multi-mode profiler dispatch; hugeParam acceptable for profiler
func runProfile(cfg config, dir string) (profileStats, error) {
	keys := makeKeys(cfg.entries)
	start := time.Now()
	ops := 0
	var byteCount int64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	switch cfg.mode {
	case "get":
		c, err := newCache(cfg, dir)
		if err != nil {
			return profileStats{}, err
		}
		for i, key := range keys {
			if err := c.Put(key, makePayload(cfg.valueSize, cfg.pattern, int64(i))); err != nil {
				return profileStats{}, err
			}
		}

		start = time.Now()
		rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible workloads
		for shouldContinue() {
			key := pickKey(keys, ops, rng, cfg.readRandom)
			content, ok, err := c.Get(key)
			if err != nil {
				return profileStats{}, err
			}
			if !ok {
				return profileStats{}, fmt.Errorf("missing entry for %q", key)
			}
			sinkBytes = content
			byteCount += int64(len(content))
			ops++
		}

	case "put":
		c, err := newCache(cfg, dir)
		if err != nil {
			return profileStats{}, err
		}
		content := makePayload(cfg.valueSize, cfg.pattern, cfg.randomSeed)
		for shouldContinue() {
			if err := c.Put(keys[ops%len(keys)], content); err != nil {
				return profileStats{}, err
			}
			byteCount += int64(len(content))
			ops++
		}

	case "fill":
		c, err := newCache(cfg, dir)
		if err != nil {
			return profileStats{}, err
		}
		filler, err := filecache.NewFiller(c, makeFillFunc(cfg))
		if err != nil {
			return profileStats{}, err
		}
		rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible workloads
		for shouldContinue() {
			key := pickKey(keys, ops, rng, cfg.readRandom)
			content, err := filler.Get(context.Background(), key)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = content
			byteCount += int64(len(content))
			ops++
		}

	case "warm":
		warmBytes := int64(cfg.entries) * int64(cfg.valueSize)
		for shouldContinue() {
			runDir := filepath.Join(dir, fmt.Sprintf("warm-%d", ops))
			c, err := newCache(cfg, runDir)
			if err != nil {
				return profileStats{}, err
			}
			filler, err := filecache.NewFiller(c, makeFillFunc(cfg),
				filecache.FillerWithConcurrency(cfg.warmWorkers))
			if err != nil {
				return profileStats{}, err
			}
			if err := filler.Warm(context.Background(), keys...); err != nil {
				return profileStats{}, err
			}
			if err := os.RemoveAll(runDir); err != nil {
				return profileStats{}, err
			}
			byteCount += warmBytes
			ops++
		}

	case "filepath":
		c, err := newCache(cfg, dir)
		if err != nil {
			return profileStats{}, err
		}
		for shouldContinue() {
			path, err := c.FilePath(keys[ops%len(keys)])
			if err != nil {
				return profileStats{}, err
			}
			sinkPath = path
			ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.mode, "mode", "get", "mode: get, put, fill, warm, filepath")
	flag.IntVar(&cfg.entries, "entries", 512, "number of cache entries")
	flag.IntVar(&cfg.valueSize, "value-size", 16<<10, "payload size in bytes")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.StringVar(&cfg.compression, "compression", "none", "compression: none or zstd")
	flag.StringVar(&cfg.cacheDir, "cache-dir", "", "cache directory (temp dir if unset)")
	flag.BoolVar(&cfg.keepCache, "keep-cache", false, "keep cache dir after run")
	flag.DurationVar(&cfg.fillLatency, "fill-latency", 0, "simulated source latency for fill and warm modes")
	flag.IntVar(&cfg.warmWorkers, "warm-workers", 0, "warm workers: <0 serial, 0 auto, >0 fixed")
	flag.BoolVar(&cfg.readRandom, "read-random", true, "randomize key selection in get and fill modes")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	return cfg
}

func pickKey(keys []filecache.Key, idx int, rng *rand.Rand, random bool) filecache.Key {
	if random {
		return keys[rng.Intn(len(keys))]
	}
	return keys[idx%len(keys)]
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func setupCacheDir(cfg config) (string, func() error, error) {
	if cfg.cacheDir != "" {
		return cfg.cacheDir, nil, os.MkdirAll(cfg.cacheDir, 0o755) //nolint:gosec // 0o755 is intentional for profiler dirs
	}
	dir, err := os.MkdirTemp("", "filecache-profiler-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepCache {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

func makeKeys(n int) []filecache.Key {
	keys := make([]filecache.Key, n)
	for i := range keys {
		keys[i] = filecache.StringKey(fmt.Sprintf("entry-%05d", i))
	}
	return keys
}

func makePayload(size int, pattern string, seed int64) []byte {
	content := make([]byte, size)
	switch pattern {
	case "random":
		rng := rand.New(rand.NewSource(seed)) //nolint:gosec // intentional use for reproducible workloads
		rng.Read(content)
	default:
		fillByte := byte('a' + seed%26)
		for i := range content {
			content[i] = fillByte
		}
		if size > 0 {
			content[0] = byte(seed)
		}
	}
	return content
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func makeFillFunc(cfg config) filecache.FillFunc {
	return func(_ context.Context, key filecache.Key) ([]byte, error) {
		if cfg.fillLatency > 0 {
			time.Sleep(cfg.fillLatency)
		}
		var seed int64
		for _, ch := range key.String() {
			seed += int64(ch)
		}
		return makePayload(cfg.valueSize, cfg.pattern, seed), nil
	}
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func newCache(cfg config, dir string) (*filecache.Cache, error) {
	var opts []filecache.Option
	if compression := parseCompression(cfg.compression); compression != filecache.CompressionNone {
		opts = append(opts, filecache.WithCompression(compression))
	}
	return filecache.New(dir, opts...)
}

func parseCompression(name string) filecache.Compression {
	switch name {
	case "none":
		return filecache.CompressionNone
	case "zstd":
		return filecache.CompressionZstd
	default:
		log.Fatalf("unknown compression: %s", name)
		return filecache.CompressionNone
	}
}
