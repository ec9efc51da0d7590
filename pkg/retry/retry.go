// Package retry wraps a single provider call with bounded exponential backoff
// for transient failures.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"btcmetrics/pkg/httpx"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 30 * time.Second
	DefaultMultiplier     = 2.0
)

// Config encapsulates exponential backoff settings. MaxRetries 0 selects the
// default; a negative value disables retries.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// Hook observes every scheduled retry: retry is 1-based, wait is the delay
// about to be slept and err the failure that triggered it.
type Hook func(retry int, wait time.Duration, err error)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier executes transient-failure retries with backoff.
type Retrier struct {
	cfg   Config
	sleep SleepFunc
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleep replaces the backoff sleeper, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(r *Retrier) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// NewRetrier constructs a retrier, filling unset fields with defaults.
func NewRetrier(cfg Config, opts ...Option) *Retrier {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = DefaultMultiplier
	}
	r := &Retrier{cfg: cfg, sleep: sleep}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the effective settings.
func (r *Retrier) Config() Config { return r.cfg }

// Do executes fn with the configured retry budget.
func (r *Retrier) Do(ctx context.Context, fn func(context.Context) error) error {
	return r.DoWith(ctx, 0, nil, fn)
}

// DoWith executes fn, retrying transient failures up to maxRetries times
// (0 uses the configured budget, negative disables retries). The last error
// is returned unchanged once the budget is spent.
func (r *Retrier) DoWith(ctx context.Context, maxRetries int, hook Hook, fn func(context.Context) error) error {
	switch {
	case maxRetries == 0:
		maxRetries = r.cfg.MaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}
	schedule := r.schedule()

	for retries := 0; ; retries++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if retries >= maxRetries || !IsTransient(err) {
			return err
		}
		wait := schedule.NextBackOff()
		if hook != nil {
			hook(retries+1, wait, err)
		}
		if sleepErr := r.sleep(ctx, wait); sleepErr != nil {
			return sleepErr
		}
	}
}

// Intervals returns the waits that precede each of n retries.
func (r *Retrier) Intervals(n int) []time.Duration {
	schedule := r.schedule()
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, schedule.NextBackOff())
	}
	return out
}

func (r *Retrier) schedule() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     r.cfg.InitialBackoff,
		RandomizationFactor: 0,
		Multiplier:          r.cfg.Multiplier,
		MaxInterval:         r.cfg.MaxBackoff,
	}
	b.Reset()
	return b
}

// IsTransient reports whether err is worth retrying against the same provider:
// HTTP 429/500/502/503/504, or a connection reset, abort or timeout.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch httpx.StatusCode(err) {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	case 0:
		return httpx.IsNetworkError(err)
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
