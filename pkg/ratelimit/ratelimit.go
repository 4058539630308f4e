// Package ratelimit paces the keeper's transaction submissions so one cycle
// cannot overwhelm the RPC endpoint, and so a misbehaving retry storm stays
// bounded. Records are processed sequentially; the pacer enforces the
// inter-submission delay between them.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer gates transaction submissions to a fixed rate
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing one submission per interval. Burst is 1:
// the first submission of a cycle goes out immediately, every subsequent one
// waits out the interval.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the next submission is allowed or ctx is cancelled
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Allow reports whether a submission may proceed right now without waiting
func (p *Pacer) Allow() bool {
	return p.limiter.Allow()
}
