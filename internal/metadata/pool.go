// Package metadata loads primary track metadata concurrently.
//
// It holds the bounded worker pools, the process-wide metadata registry and
// the load sessions that feed owning lists in batches.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/metrics"
)

// Task is one unit of work submitted to a pool.
type Task func(ctx context.Context)

// Pool bounds how many units run at once.
//
// The semaphore is shared by every caller of the pool, so two load sessions on
// the same tier never exceed its concurrency together.
type Pool struct {
	name        string
	concurrency int
	sem         *semaphore.Weighted
	logger      *slog.Logger
	metrics     *metrics.Recorder
}

// NewPool creates a pool running at most concurrency units at once.
func NewPool(name string, concurrency int, logger *slog.Logger, rec *metrics.Recorder) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Pool{
		name:        name,
		concurrency: concurrency,
		sem:         semaphore.NewWeighted(int64(concurrency)),
		logger:      logger.With(slog.String("pool", name)),
		metrics:     rec,
	}
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Concurrency returns the maximum number of units running at once.
func (p *Pool) Concurrency() int {
	return p.concurrency
}

// Run submits every task and blocks until all submitted tasks finished.
//
// A task that panics is logged and counted as finished. When ctx is canceled
// the tasks not yet started are skipped and ctx.Err() is returned after the
// running ones drain.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	var g errgroup.Group

	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			_ = g.Wait()
			return err
		}

		g.Go(func() error {
			defer p.sem.Release(1)
			p.runUnit(ctx, task)
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}

func (p *Pool) runUnit(ctx context.Context, task Task) {
	p.metrics.PoolUnitStarted(p.name)
	defer p.metrics.PoolUnitFinished(p.name)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pool unit panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()

	task(ctx)
}

// Pools holds the three priority tiers and the registry pool.
type Pools struct {
	High     *Pool
	Medium   *Pool
	Low      *Pool
	Registry *Pool
}

// PoolsConfig sizes Pools. Zero values fall back to CPU-based defaults.
type PoolsConfig struct {
	High     int
	Medium   int
	Low      int
	Registry int
}

// NewPools creates the four pools.
func NewPools(cfg PoolsConfig, logger *slog.Logger, rec *metrics.Recorder) *Pools {
	cores := runtime.NumCPU()

	return &Pools{
		High:     NewPool("high", orDefault(cfg.High, cores), logger, rec),
		Medium:   NewPool("medium", orDefault(cfg.Medium, max(cores/2, 2)), logger, rec),
		Low:      NewPool("low", orDefault(cfg.Low, max(cores/4, 1)), logger, rec),
		Registry: NewPool("registry", orDefault(cfg.Registry, cores), logger, rec),
	}
}

// ForPriority returns the tier for a load priority.
func (p *Pools) ForPriority(priority domain.LoadPriority) *Pool {
	switch priority {
	case domain.PriorityHigh:
		return p.High
	case domain.PriorityLow:
		return p.Low
	default:
		return p.Medium
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
