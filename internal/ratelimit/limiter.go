// Package ratelimit paces outgoing gateway requests so a burst of one-shot
// calls cannot trip the venue's per-connection limits.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter applies a global request budget plus on-demand per-endpoint
// buckets sharing the same rate.
type Limiter struct {
	global   *rate.Limiter
	buckets  sync.Map
	mu       sync.Mutex
	requests int
	period   time.Duration
}

// New creates a Limiter allowing the given number of requests per period.
func New(requests int, period time.Duration) *Limiter {
	rps := float64(requests) / period.Seconds()
	return &Limiter{
		global:   rate.NewLimiter(rate.Limit(rps), requests),
		requests: requests,
		period:   period,
	}
}

// Wait blocks until the global budget allows a request or the context is
// cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.global.Wait(ctx)
}

// WaitEndpoint blocks until both the global budget and the endpoint's own
// bucket allow a request.
func (l *Limiter) WaitEndpoint(ctx context.Context, endpoint string) error {
	if err := l.global.Wait(ctx); err != nil {
		return err
	}
	return l.bucket(endpoint).Wait(ctx)
}

// Allow reports whether the global budget permits a request immediately.
func (l *Limiter) Allow() bool {
	return l.global.Allow()
}

// SetLimit replaces the request budget.
func (l *Limiter) SetLimit(requests int, period time.Duration) {
	l.mu.Lock()
	l.requests = requests
	l.period = period
	l.mu.Unlock()

	rps := float64(requests) / period.Seconds()
	l.global.SetLimit(rate.Limit(rps))
}

func (l *Limiter) bucket(endpoint string) *rate.Limiter {
	if v, ok := l.buckets.Load(endpoint); ok {
		return v.(*rate.Limiter)
	}

	l.mu.Lock()
	requests, period := l.requests, l.period
	l.mu.Unlock()

	rps := float64(requests) / period.Seconds()
	limiter := rate.NewLimiter(rate.Limit(rps), requests)
	actual, _ := l.buckets.LoadOrStore(endpoint, limiter)
	return actual.(*rate.Limiter)
}
