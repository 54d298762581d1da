// Package ratelimit provides per-endpoint token-bucket rate limiting shared
// by every caller of the external data sources, so the on-demand valuation
// path and the batch refresh driver cannot jointly exceed the upstream quota.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter maintains one token bucket per endpoint.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter creates a limiter that allows rps requests per second with the
// given burst capacity, per endpoint.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *Limiter) endpointLimiter(endpoint string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[endpoint]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists := l.limiters[endpoint]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[endpoint] = limiter
	return limiter
}

// Allow reports whether a request to the endpoint may proceed immediately.
func (l *Limiter) Allow(endpoint string) bool {
	return l.endpointLimiter(endpoint).Allow()
}

// Wait blocks until a request to the endpoint is allowed or the context is
// cancelled.
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	return l.endpointLimiter(endpoint).Wait(ctx)
}

// Tokens returns the tokens currently available for an endpoint.
func (l *Limiter) Tokens(endpoint string) float64 {
	return l.endpointLimiter(endpoint).Tokens()
}

// SetRPS updates the request rate across all endpoint buckets.
func (l *Limiter) SetRPS(rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rps = rps
	for _, limiter := range l.limiters {
		limiter.SetLimit(rate.Limit(rps))
	}
}
