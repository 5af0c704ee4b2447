package dispatch

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound sends. Tokens refill continuously at
// sendsPerMinute; burst bounds how many sends can go out back to back
// after an idle stretch.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter creates a limiter. Non-positive arguments fall back to a
// conservative 60 sends per minute with a burst of 10.
func NewLimiter(sendsPerMinute, burst int) *Limiter {
	if sendsPerMinute <= 0 {
		sendsPerMinute = 60
	}
	if burst <= 0 {
		burst = 10
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(float64(sendsPerMinute)/60.0), burst),
	}
}

// Wait blocks until a send token is available or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Allow reports whether a send token is available right now, consuming one
// when it is.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}
