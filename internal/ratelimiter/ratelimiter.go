// Package ratelimiter paces block I/O against a device.
//
// A filesystem check on a live shared device must not starve other cluster
// nodes, so device reads and writes can be throttled to a configured number
// of blocks per second.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// unlimitedRate stands in for an unthrottled device.
const unlimitedRate = 1_000_000_000

// RateLimiter is a token bucket over block operations.
//
// Every block read or write consumes one token. Burst allows a short run of
// operations above the sustained rate, for example the first blocks of a
// large directory.
//
// Thread safety:
// Wait is safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter.
//
// Parameters:
//   - blocksPerSecond: Sustained block operations per second, 0 means unlimited
//   - burst: Bucket capacity; 0 defaults to blocksPerSecond
//
// Returns a configured RateLimiter.
func New(blocksPerSecond, burst uint) *RateLimiter {
	if blocksPerSecond == 0 {
		blocksPerSecond = unlimitedRate
		burst = unlimitedRate
	}
	if burst == 0 {
		burst = blocksPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(blocksPerSecond), int(burst)),
	}
}

// Wait blocks until a token is available or ctx is done.
//
// Returns:
//   - nil if a token was acquired
//   - the context error, or an error if the wait would outlast ctx's deadline
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
