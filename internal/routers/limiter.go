package routers

import (
	"context"
)

// Limiter bounds how many callers run f at once. Waiters give up when
// their context is canceled.
type Limiter struct {
	limit chan struct{}
}

func NewLimiter(maxConcurrency int) Limiter {
	serializer := make(chan struct{}, maxConcurrency)
	return Limiter{
		limit: serializer,
	}
}

func (c *Limiter) Do(ctx context.Context, f func()) (canceled bool) {
	select {
	case c.limit <- struct{}{}:
		defer func() {
			<-c.limit
		}()
		f()
		canceled = false
	case <-ctx.Done():
		canceled = true
	}
	return
}
