package filecache

import "log/slog"

// FillerOption configures a Filler.
type FillerOption func(*Filler) error

// FillerWithLogger sets a logger for fill activity.
// If nil, a discard logger is used (default behavior).
func FillerWithLogger(logger *slog.Logger) FillerOption {
	return func(f *Filler) error {
		if logger != nil {
			f.logger = logger
		}
		return nil
	}
}

// FillerWithConcurrency sets the number of workers used by Warm.
// Values < 0 force serial execution. Zero uses runtime.GOMAXPROCS.
// Values > 0 force a fixed worker count.
func FillerWithConcurrency(workers int) FillerOption {
	return func(f *Filler) error {
		f.workers = workers
		return nil
	}
}
