package svc

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"btcmetrics/internal/cache"
	"btcmetrics/internal/config"
	"btcmetrics/pkg/fallback"
	"btcmetrics/pkg/health"
	"btcmetrics/pkg/httpx"
	"btcmetrics/pkg/provider"
	"btcmetrics/pkg/retry"

	_ "btcmetrics/pkg/chain/explorers/blockstream"
	_ "btcmetrics/pkg/chain/explorers/mempoolspace"
	_ "btcmetrics/pkg/market/exchanges/binance"
	_ "btcmetrics/pkg/market/exchanges/coinapi"
	_ "btcmetrics/pkg/market/exchanges/coinbase"
	_ "btcmetrics/pkg/market/exchanges/coingecko"
	_ "btcmetrics/pkg/market/exchanges/coinmarketcap"
	_ "btcmetrics/pkg/market/exchanges/kraken"
)

// Family is one provider catalog with its orchestrator and health map.
type Family struct {
	Registry *provider.Registry
	Health   *health.Tracker
	Client   *fallback.Client
}

type ServiceContext struct {
	Config config.Config

	Caller          *httpx.Caller
	Retrier         *retry.Retrier
	Metrics         *fallback.Metrics
	MetricsRegistry *prometheus.Registry
	Cache           *cache.Store

	Market Family
	Chain  Family
}

// Option customises construction, mostly for tests.
type Option func(*options)

type options struct {
	httpClient   *http.Client
	retryOptions []retry.Option
}

// WithHTTPClient replaces the HTTP client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRetryOptions passes options to the shared retrier.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(o *options) { o.retryOptions = append(o.retryOptions, opts...) }
}

func NewServiceContext(c *config.Config, opts ...Option) (*ServiceContext, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	callerOpts := []httpx.Option{
		httpx.WithTimeout(c.HTTP.Timeout),
		httpx.WithUserAgent(c.HTTP.UserAgent),
	}
	if o.httpClient != nil {
		callerOpts = append(callerOpts, httpx.WithHTTPClient(o.httpClient))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ttl := cache.NewTTLSet(c.TTL)
	store, err := cache.NewStore(ttl)
	if err != nil {
		return nil, err
	}

	retrier := retry.NewRetrier(retry.Config{
		MaxRetries:     c.Retry.MaxRetries,
		InitialBackoff: c.Retry.InitialBackoff,
		MaxBackoff:     c.Retry.MaxBackoff,
	}, o.retryOptions...)

	svc := &ServiceContext{
		Config:          *c,
		Caller:          httpx.NewCaller(callerOpts...),
		Retrier:         retrier,
		Metrics:         fallback.NewMetrics(reg),
		MetricsRegistry: reg,
		Cache:           store,
	}

	policy, err := c.HealthPolicy()
	if err != nil {
		return nil, err
	}

	marketCfg, err := c.MarketProviders()
	if err != nil {
		return nil, err
	}
	if svc.Market, err = svc.newFamily("market", marketCfg, policy); err != nil {
		return nil, err
	}

	chainCfg, err := c.ChainProviders()
	if err != nil {
		return nil, err
	}
	if svc.Chain, err = svc.newFamily("chain", chainCfg, policy); err != nil {
		return nil, err
	}
	return svc, nil
}

func MustNewServiceContext(c *config.Config, opts ...Option) *ServiceContext {
	svc, err := NewServiceContext(c, opts...)
	if err != nil {
		panic(err)
	}
	return svc
}

func (s *ServiceContext) newFamily(name string, cfg *provider.Config, policy health.Policy) (Family, error) {
	registry, err := provider.NewRegistry(cfg)
	if err != nil {
		return Family{}, fmt.Errorf("build %s registry: %w", name, err)
	}
	if registry.Len() == 0 {
		return Family{}, fmt.Errorf("build %s registry: no usable providers", name)
	}
	tracker := health.NewTracker(registry, s.Caller,
		health.WithPolicy(policy),
		health.WithProbeTimeout(s.Config.Health.Timeout),
	)
	client := fallback.New(registry,
		fallback.WithCaller(s.Caller),
		fallback.WithRetrier(s.Retrier),
		fallback.WithHealth(tracker),
		fallback.WithMetrics(s.Metrics),
	)
	return Family{Registry: registry, Health: tracker, Client: client}, nil
}
