package translator

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces backend calls at least delay apart. The first call is never
// delayed and no wait happens after the last one. A Pacer is safe for
// concurrent use, so languages translated in parallel share one budget.
type Pacer struct {
	delay   time.Duration
	limiter *rate.Limiter
}

// NewPacer returns a pacer; delay <= 0 disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	p := &Pacer{delay: delay}
	if delay > 0 {
		p.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return p
}

func (p *Pacer) Delay() time.Duration {
	if p == nil {
		return 0
	}
	return p.delay
}

// Wait blocks until the next call may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
