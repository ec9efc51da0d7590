// Package fallback turns one canonical request into a normalized response by
// walking the provider chain in priority order. Each candidate is rate limited,
// transformed, called with transient retries and normalized; the first success
// wins and later providers are never contacted.
package fallback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"btcmetrics/pkg/httpx"
	"btcmetrics/pkg/provider"
	"btcmetrics/pkg/ratelimit"
	"btcmetrics/pkg/retry"
)

const tracerName = "btcmetrics/fallback"

// Request is one canonical request.
type Request struct {
	Endpoint string
	Params   provider.Params
	// Providers restricts the chain; empty uses the client defaults.
	Providers []string
	Skip      []string
	// MaxRetriesPerProvider overrides the retry budget; 0 keeps the default.
	MaxRetriesPerProvider int
}

// Result is a normalized response and where it came from.
type Result struct {
	Provider  string
	Endpoint  string
	Data      any
	Attempted []string
}

// Fetcher is implemented by Client.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// Caller performs one provider HTTP request.
type Caller interface {
	Get(ctx context.Context, desc provider.Descriptor, endpoint string, params provider.Params) ([]byte, error)
}

// Limiter admits requests per provider.
type Limiter interface {
	Acquire(ctx context.Context, name string) error
}

// HealthObserver receives every attempt outcome.
type HealthObserver interface {
	Observe(id string, err error) bool
}

// Client is the fallback orchestrator for one provider family.
type Client struct {
	registry *provider.Registry
	limiters Limiter
	retrier  *retry.Retrier
	caller   Caller
	health   HealthObserver
	metrics  *Metrics
	tracer   trace.Tracer
	defaults []string
	newID    func() string
}

// Option configures a Client.
type Option func(*Client)

// WithLimiters injects the rate limiters; by default one is built per registered provider.
func WithLimiters(l Limiter) Option {
	return func(c *Client) { c.limiters = l }
}

// WithRetrier injects the retrier.
func WithRetrier(r *retry.Retrier) Option {
	return func(c *Client) {
		if r != nil {
			c.retrier = r
		}
	}
}

// WithCaller injects the HTTP caller.
func WithCaller(caller Caller) Option {
	return func(c *Client) {
		if caller != nil {
			c.caller = caller
		}
	}
}

// WithHealth feeds attempt outcomes into a health tracker.
func WithHealth(h HealthObserver) Option {
	return func(c *Client) { c.health = h }
}

// WithMetrics records attempts on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithDefaultProviders sets the chain used when a request names no providers.
func WithDefaultProviders(names ...string) Option {
	return func(c *Client) { c.defaults = append([]string(nil), names...) }
}

// WithRequestID overrides the request id generator.
func WithRequestID(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New constructs a Client over registry.
func New(registry *provider.Registry, opts ...Option) *Client {
	c := &Client{
		registry: registry,
		retrier:  retry.NewRetrier(retry.Config{}),
		caller:   httpx.NewCaller(),
		tracer:   otel.Tracer(tracerName),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiters == nil {
		c.limiters = NewLimiterSet(registry, c.metrics)
	}
	return c
}

// NewLimiterSet registers one sliding-window limiter per provider in registry,
// counting waits on m.
func NewLimiterSet(registry *provider.Registry, m *Metrics, opts ...ratelimit.Option) *ratelimit.Set {
	set := ratelimit.NewSet(opts...)
	if registry == nil {
		return set
	}
	for _, name := range registry.Names() {
		desc, _ := registry.Get(name)
		set.Register(name, desc.RateLimitPerMinute, ratelimit.WithWaitHook(func(wait time.Duration) {
			logx.Debugf("ratelimit: provider=%s waiting %s", name, wait)
			m.observeRateLimitWait(name)
		}))
	}
	return set
}

// Registry returns the provider catalog the client walks.
func (c *Client) Registry() *provider.Registry { return c.registry }

// Fetch runs req through the provider chain.
func (c *Client) Fetch(ctx context.Context, req Request) (*Result, error) {
	ctx = logx.ContextWithFields(ctx,
		logx.Field("request_id", c.newID()),
		logx.Field("endpoint", req.Endpoint),
	)
	ctx, span := c.tracer.Start(ctx, "fallback.fetch",
		trace.WithAttributes(attribute.String("fallback.endpoint", req.Endpoint)))
	defer span.End()

	candidates := req.Providers
	if len(candidates) == 0 {
		candidates = c.defaults
	}
	chain := c.registry.Resolve(candidates, req.Skip)
	if len(chain) == 0 {
		err := &AllProvidersFailedError{Endpoint: req.Endpoint, Last: ErrNoProviders}
		c.metrics.observeExhausted(req.Endpoint)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	attempted := make([]string, 0, len(chain))
	var lastErr error
	var lastProvider string
	for _, name := range chain {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("fallback: %s: %w", req.Endpoint, err)
		}
		attempted = append(attempted, name)

		data, err := c.attempt(ctx, name, req)
		if err == nil {
			c.observeHealth(name, nil)
			if len(attempted) > 1 {
				logx.WithContext(ctx).Infof("fallback: served by provider=%s after %d attempts", name, len(attempted))
			}
			span.SetAttributes(attribute.String("fallback.provider", name))
			return &Result{Provider: name, Endpoint: req.Endpoint, Data: data, Attempted: attempted}, nil
		}

		lastErr, lastProvider = err, name
		if ctx.Err() == nil {
			c.observeHealth(name, err)
		}
		logx.WithContext(ctx).Infof("fallback: provider failed provider=%s outcome=%s err=%v", name, Classify(err), err)
	}

	failed := &AllProvidersFailedError{
		Endpoint:     req.Endpoint,
		Attempted:    attempted,
		LastProvider: lastProvider,
		Last:         lastErr,
	}
	c.metrics.observeExhausted(req.Endpoint)
	span.RecordError(failed)
	span.SetStatus(codes.Error, failed.Error())
	logx.WithContext(ctx).Infof("fallback: exhausted providers=%v err=%v", attempted, lastErr)
	return nil, failed
}

func (c *Client) attempt(ctx context.Context, name string, req Request) (data any, err error) {
	ctx, span := c.tracer.Start(ctx, "fallback.attempt",
		trace.WithAttributes(attribute.String("fallback.provider", name)))
	start := time.Now()
	defer func() {
		outcome := Classify(err)
		c.metrics.observeAttempt(name, outcome, time.Since(start))
		span.SetAttributes(attribute.String("fallback.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	desc, ok := c.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%s: provider not registered", name)
	}
	adapter, _ := c.registry.Adapter(name)

	if err := c.limiters.Acquire(ctx, name); err != nil {
		return nil, &rateLimitError{err: err}
	}

	endpoint, params := adapter.TransformRequest(req.Endpoint, req.Params.Clone())
	var body []byte
	err = c.retrier.DoWith(ctx, req.MaxRetriesPerProvider, func(n int, wait time.Duration, cause error) {
		c.metrics.observeRetry(name)
		logx.WithContext(ctx).Debugf("fallback: retry provider=%s retry=%d wait=%s err=%v", name, n, wait, cause)
	}, func(ctx context.Context) error {
		b, callErr := c.caller.Get(ctx, desc, endpoint, params)
		if callErr != nil {
			return callErr
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adapter.TransformResponse(body, req.Endpoint, req.Params)
}

func (c *Client) observeHealth(name string, err error) {
	if c.health == nil {
		return
	}
	if c.health.Observe(name, err) {
		logx.Debugf("health: provider=%s healthy=%t", name, err == nil)
	}
}

// Fetch runs req through f and asserts the normalized data to T.
func Fetch[T any](ctx context.Context, f Fetcher, req Request) (T, error) {
	var zero T
	res, err := f.Fetch(ctx, req)
	if err != nil {
		return zero, err
	}
	v, ok := res.Data.(T)
	if !ok {
		return zero, fmt.Errorf("fallback: %s from %s: unexpected result type %T", req.Endpoint, res.Provider, res.Data)
	}
	return v, nil
}
