// Package service implements the CLI commands on top of the fallback
// clients: it builds canonical requests, caches results and shapes reports.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"btcmetrics/internal/cache"
	"btcmetrics/internal/svc"
	"btcmetrics/pkg/fallback"
	"btcmetrics/pkg/provider"
)

// Service answers metric queries.
type Service struct {
	market fallback.Fetcher
	chain  fallback.Fetcher
	cache  *cache.Store
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache memoizes results in store.
func WithCache(store *cache.Store) Option {
	return func(s *Service) { s.cache = store }
}

// WithClock overrides the wall clock used for timestamps and estimates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Service over the market and chain fetchers.
func New(market, chain fallback.Fetcher, opts ...Option) *Service {
	s := &Service{market: market, chain: chain, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromContext wires a Service to the clients held by svcCtx.
func NewFromContext(svcCtx *svc.ServiceContext) *Service {
	return New(svcCtx.Market.Client, svcCtx.Chain.Client, WithCache(svcCtx.Cache))
}

// Query holds the options shared by every command.
type Query struct {
	Currency string
	Skip     []string
}

func (q Query) currency() string {
	if c := strings.ToLower(strings.TrimSpace(q.Currency)); c != "" {
		return c
	}
	return "usd"
}

// Source records which provider served a report and when.
type Source struct {
	Provider  string    `json:"provider"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// fetch runs one canonical request through f, caching the shaped report.
func fetch[T any](ctx context.Context, s *Service, f fallback.Fetcher, key string, class cache.TTLClass,
	req fallback.Request, shape func(res *fallback.Result, src Source) (T, error)) (T, error) {
	return cache.Take(s.cache, key, class, func() (T, error) {
		res, err := f.Fetch(ctx, req)
		if err != nil {
			var zero T
			return zero, err
		}
		logx.WithContext(ctx).Debugf("service: %s served by %s", req.Endpoint, res.Provider)
		return shape(res, Source{Provider: res.Provider, FetchedAt: s.now().UTC()})
	})
}

// params builds canonical parameters from key/value pairs.
func params(kv ...any) provider.Params {
	p := make(provider.Params, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		p[kv[i].(string)] = kv[i+1]
	}
	return p
}
