// Package ratelimit implements per-provider sliding-window admission control.
// A Limiter admits at most maxRequests calls in any trailing window; callers
// over the limit wait until the oldest admission leaves the window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is the trailing window every provider limit is expressed in.
const DefaultWindow = time.Minute

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Limiter is a sliding-window limiter for a single provider.
type Limiter struct {
	mu          sync.Mutex
	stamps      []time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
	sleep       SleepFunc
	onWait      func(time.Duration)
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow overrides the trailing window.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithClock injects the time source and sleeper, mainly for tests.
func WithClock(now func() time.Time, sleep SleepFunc) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// WithWaitHook registers a callback invoked before every wait.
func WithWaitHook(fn func(time.Duration)) Option {
	return func(l *Limiter) { l.onWait = fn }
}

// New creates a limiter admitting maxRequests per window. Values below 1 are clamped to 1.
func New(maxRequests int, opts ...Option) *Limiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	l := &Limiter{
		maxRequests: maxRequests,
		window:      DefaultWindow,
		now:         time.Now,
		sleep:       Sleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until a request can be admitted without exceeding the limit,
// then records it. The check is repeated after every wait because concurrent
// callers may take the freed slot first.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := l.tryAdmit()
		if ok {
			return nil
		}
		if l.onWait != nil {
			l.onWait(wait)
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *Limiter) tryAdmit() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)
	if len(l.stamps) < l.maxRequests {
		l.stamps = append(l.stamps, now)
		return 0, true
	}
	wait := l.window - now.Sub(l.stamps[0])
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, false
}

func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	drop := 0
	for drop < len(l.stamps) && !l.stamps[drop].After(cutoff) {
		drop++
	}
	if drop > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[drop:]...)
	}
}

// InWindow returns the number of admissions inside the current window.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.now())
	return len(l.stamps)
}

// Max returns the configured limit.
func (l *Limiter) Max() int { return l.maxRequests }

// Sleep waits for d, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
