package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrUnitPanicked wraps a panic recovered from a dispatched unit.
var ErrUnitPanicked = errors.New("unit panicked")

// Pool runs units of work with bounded concurrency.
type Pool struct {
	concurrency int
	logger      *slog.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets a custom logger for the pool.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithConcurrency sets the maximum number of units running at once.
// Non-positive values keep the default.
func WithConcurrency(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPool creates a pool. The default concurrency is the number of CPUs.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		concurrency: max(runtime.NumCPU(), 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Concurrency returns the pool's bound.
func (p *Pool) Concurrency() int {
	return p.concurrency
}

// Run calls unit for every index in [0, n) with at most Concurrency calls
// in flight and returns when all of them have returned. A unit's error or
// panic never stops the others; both are passed to onDone with the index.
func (p *Pool) Run(ctx context.Context, name string, n int, unit func(ctx context.Context, i int) error, onDone func(i int, err error)) {
	p.logger.Debug("starting batch",
		"batch", name,
		"units", n,
		"concurrency", p.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i := range n {
		g.Go(func() error {
			err := protect(func() error { return unit(ctx, i) })
			if onDone != nil {
				onDone(i, err)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // units never return errors to the group

	p.logger.Debug("batch complete",
		"batch", name,
		"units", n,
		"elapsed", time.Since(startTime),
	)
}

// protect runs fn and converts a panic into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnitPanicked, r)
		}
	}()
	return fn()
}
