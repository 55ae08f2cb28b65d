package dispatch

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// pool bounds the background tasks running at once and optionally throttles
// how fast new ones start.
type pool struct {
	size    int64
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

func newPool(size int, limit rate.Limit, burst int) *pool {
	if size <= 0 {
		size = DefaultMaxInFlight
	}
	p := &pool{
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}
	if limit != rate.Inf && limit > 0 {
		// a zero burst would make every Wait fail
		p.limiter = rate.NewLimiter(limit, max(burst, 1))
	}
	return p
}

// acquire blocks until a slot is free, the spawn rate allows another task, or
// ctx is done.
func (p *pool) acquire(ctx context.Context) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return p.sem.Acquire(ctx, 1)
}

func (p *pool) release() {
	p.sem.Release(1)
}

// Size - return the maximum number of concurrent tasks
func (p *pool) Size() int {
	return int(p.size)
}
