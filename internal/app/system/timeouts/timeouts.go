// Package timeouts holds the deadlines used with context.WithTimeout around
// database work.
//
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list pages, dashboards
//   - Long: invoice generation, report queries
//   - Batch: CLI runs over a whole organization
package timeouts

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Defaults are used until Configure is called.
var Defaults = Config{
	Ping:   2 * time.Second,
	Short:  5 * time.Second,
	Medium: 10 * time.Second,
	Long:   30 * time.Second,
	Batch:  5 * time.Minute,
}

var current atomic.Pointer[Config]

func init() { Reset() }

func get() Config { return *current.Load() }

// Ping is the health-check deadline.
func Ping() time.Duration { return get().Ping }

// Short is the single-document deadline.
func Short() time.Duration { return get().Short }

// Medium is the list and dashboard deadline.
func Medium() time.Duration { return get().Medium }

// Long is the deadline for multi-collection work such as invoice generation.
func Long() time.Duration { return get().Long }

// Batch is the deadline for CLI batch commands.
func Batch() time.Duration { return get().Batch }

// Configure overrides the non-zero fields of cfg.
func Configure(cfg Config) {
	next := get()
	if cfg.Ping > 0 {
		next.Ping = cfg.Ping
	}
	if cfg.Short > 0 {
		next.Short = cfg.Short
	}
	if cfg.Medium > 0 {
		next.Medium = cfg.Medium
	}
	if cfg.Long > 0 {
		next.Long = cfg.Long
	}
	if cfg.Batch > 0 {
		next.Batch = cfg.Batch
	}
	current.Store(&next)
}

// Reset restores Defaults.
func Reset() {
	d := Defaults
	current.Store(&d)
}

// Current returns the active configuration.
func Current() Config { return get() }

// WithTimeout is context.WithTimeout whose cancel logs when the deadline
// was hit, naming the operation.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
