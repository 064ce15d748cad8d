// Package pool provides the bounded worker pool used for background work
// such as pre-warming analytics caches.
//
// The pool is decoupled from the store lock: tasks read the store through its
// public API and carry no ordering guarantee relative to concurrent mutations.
//
// Usage:
//
//	p := pool.New(pool.Config{Workers: 4})
//
//	err := p.Run(ctx,
//		func(ctx context.Context) error { _ = engine.Metrics(); return nil },
//		func(ctx context.Context) error { _ = engine.DomainSimilarity(); return nil },
//	)
package pool

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Config configures the worker pool.
type Config struct {
	// Workers is the maximum number of tasks running at once across every
	// Run call. If <= 0, defaults to runtime.NumCPU().
	Workers int
}

// Task is one unit of background work.
type Task func(ctx context.Context) error

// Pool bounds concurrent task execution.
type Pool struct {
	workers int64
	sem     *semaphore.Weighted

	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a pool.
func New(cfg Config) *Pool {
	workers := int64(cfg.Workers)
	if workers <= 0 {
		workers = int64(runtime.NumCPU())
	}
	return &Pool{
		workers: workers,
		sem:     semaphore.NewWeighted(workers),
	}
}

// Run executes tasks with at most Workers running at once and waits for all
// of them. The first error cancels the context passed to the remaining tasks
// and is returned. Tasks that have not started when ctx is cancelled are
// skipped.
func (p *Pool) Run(ctx context.Context, tasks ...Task) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	for _, task := range tasks {
		if task == nil {
			continue
		}
		if err := p.sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			if gctx.Err() != nil {
				return nil
			}

			p.running.Add(1)
			err := task(gctx)
			p.running.Add(-1)

			if err != nil {
				p.failed.Add(1)
				// Cancel before the slot is released so queued tasks see it.
				cancel()
				return err
			}
			p.completed.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Stats holds pool counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   int(p.workers),
		Running:   p.running.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}
