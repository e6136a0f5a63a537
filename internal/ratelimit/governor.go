package ratelimit

import (
	"context"
	"errors"
)

// GovernedCall performs one outbound call. The cached result reports
// whether the response was served from a local cache; it is only
// consulted when the governor is cache-aware.
type GovernedCall func(ctx context.Context) (cached bool, err error)

// Governor funnels every outbound call to one external service through a
// shared concurrency gate and token budget. When a response cache sits in
// front of the transport, a cache hit represents zero load on the
// upstream service and is not charged against its quota.
type Governor struct {
	limiter    *Limiter
	sem        *Semaphore
	cost       float64
	cacheAware bool
}

// GovernorOptions configures a Governor.
type GovernorOptions struct {
	Limiter *Limiter
	Sem     *Semaphore
	// Cost is the token price of one call. Zero means 1.
	Cost float64
	// CacheAware defers the limiter charge until after the call and
	// skips it entirely when the call reports a cache hit.
	CacheAware bool
}

// NewGovernor composes a limiter and a semaphore around a transport.
func NewGovernor(opts GovernorOptions) (*Governor, error) {
	if opts.Limiter == nil || opts.Sem == nil {
		return nil, errors.New("ratelimit: governor requires a limiter and a semaphore")
	}
	cost := opts.Cost
	if cost <= 0 {
		cost = 1
	}
	return &Governor{
		limiter:    opts.Limiter,
		sem:        opts.Sem,
		cost:       cost,
		cacheAware: opts.CacheAware,
	}, nil
}

// Do runs fn under the governor's budgets.
//
// Cache-aware: concurrency gate, perform the call, then charge the
// limiter only when the response was not a cache hit. Otherwise:
// concurrency gate, charge the limiter, perform the call. Both limiter
// waits honor ctx; per-call timeouts are the caller's concern and ride
// on the same context.
func (g *Governor) Do(ctx context.Context, fn GovernedCall) error {
	if err := g.sem.Acquire(ctx); err != nil {
		return err
	}
	defer g.sem.Release()

	if !g.cacheAware {
		if err := g.limiter.Acquire(ctx, g.cost); err != nil {
			return err
		}
		_, err := fn(ctx)
		return err
	}

	cached, err := fn(ctx)
	if !cached {
		if acqErr := g.limiter.Acquire(ctx, g.cost); acqErr != nil && err == nil {
			err = acqErr
		}
	}
	return err
}

// Limiter exposes the underlying token bucket, mainly so clients can
// retune it from service-reported quota headers.
func (g *Governor) Limiter() *Limiter {
	return g.limiter
}

// Sem exposes the underlying concurrency gate.
func (g *Governor) Sem() *Semaphore {
	return g.sem
}
