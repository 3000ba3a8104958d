// Package ratelimiter bounds the rate of inbound requests using a token
// bucket.
//
// The listener consumes one token per request envelope before handing it to
// the dispatcher; when the bucket is empty the envelope is dropped. Tokens
// refill at the configured sustained rate, and the burst size controls how
// many requests can be absorbed at once.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// effectively unlimited; rate.Inf has edge cases around burst handling
const unlimited = 1_000_000_000

// RateLimiter is a token-bucket request limiter. Safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained with the given
// burst capacity. A zero rate disables limiting.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
		burst = unlimited
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow consumes a token if one is available and reports whether the
// request may proceed. It never blocks.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the current number of available tokens. The value may be
// stale immediately; it exists for monitoring.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
