// Package ratelimit provides a blocking sliding-window call limiter for
// quota-sensitive upstream APIs.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxCalls and DefaultWindow match the Awin publisher API quota
	// with a small safety margin.
	DefaultMaxCalls = 18
	DefaultWindow   = 60 * time.Second
)

// Limiter bounds outbound calls to maxCalls per window. Acquire blocks the
// caller until a slot is available. Callers are expected to be serialized by
// the single processing goroutine; the mutex only guards against concurrent
// use from the ops surface.
type Limiter struct {
	mu          sync.Mutex
	maxCalls    int
	window      time.Duration
	windowStart time.Time
	calls       int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a limiter allowing maxCalls per window. Non-positive arguments
// fall back to the defaults.
func New(maxCalls int, window time.Duration) *Limiter {
	if maxCalls <= 0 {
		maxCalls = DefaultMaxCalls
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		maxCalls: maxCalls,
		window:   window,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Acquire blocks until a call slot is available or ctx is done, then records
// the call.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		now := l.now()
		if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
			l.windowStart = now
			l.calls = 0
		}
		if l.calls < l.maxCalls {
			l.calls++
			return nil
		}
		wait := l.window - now.Sub(l.windowStart)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
