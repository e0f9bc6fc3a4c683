// Package ratelimit provides the process-wide token bucket shared by all
// RPC Client callers.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Bucket enforces a minimum spacing between acquisitions. It has no
// burst beyond one token: every caller waits out the configured interval
// if another caller consumed the token first.
type Bucket struct {
	limiter *rate.Limiter
}

// New builds a Bucket with the given minimum inter-call interval. An
// interval of zero or less disables spacing (limiter allows bursts
// freely), matching a misconfigured-but-harmless default.
func New(minInterval time.Duration) *Bucket {
	if minInterval <= 0 {
		return &Bucket{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	every := rate.Every(minInterval)
	return &Bucket{limiter: rate.NewLimiter(every, 1)}
}

// Acquire blocks the caller until a token is available or ctx is done.
func (b *Bucket) Acquire(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}
