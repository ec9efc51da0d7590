package fallback_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcmetrics/pkg/fallback"
	"btcmetrics/pkg/health"
	"btcmetrics/pkg/market"
	"btcmetrics/pkg/market/exchanges/binance"
	"btcmetrics/pkg/market/exchanges/coingecko"
	"btcmetrics/pkg/provider"
	"btcmetrics/pkg/retry"
)

// CoinGecko is throttled on every attempt; Binance answers the same canonical
// request after the retry budget on CoinGecko is spent.
func TestPriceFallsBackFromThrottledCoinGecko(t *testing.T) {
	var geckoCalls, binanceCalls atomic.Int32
	gecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geckoCalls.Add(1)
		assert.Equal(t, "/simple/price", r.URL.Path)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer gecko.Close()

	var gotPath, gotSymbol atomic.Value
	bin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		binanceCalls.Add(1)
		gotPath.Store(r.URL.Path)
		gotSymbol.Store(r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"43250.10"}`))
	}))
	defer bin.Close()

	reg, err := provider.NewRegistry(&provider.Config{Providers: map[string]*provider.ProviderConfig{
		"coingecko": {Type: coingecko.TypeName, BaseURL: gecko.URL, Priority: 1, RateLimitPerMinute: 30},
		"binance":   {Type: binance.TypeName, BaseURL: bin.URL, Priority: 4, RateLimitPerMinute: 1200},
	}})
	require.NoError(t, err)

	s := &sleeper{}
	tracker := health.NewTracker(reg, nil)
	client := fallback.New(reg,
		fallback.WithRetrier(retry.NewRetrier(retry.Config{}, retry.WithSleep(s.Sleep))),
		fallback.WithHealth(tracker),
	)

	price, err := fallback.Fetch[market.SimplePrice](context.Background(), client, fallback.Request{
		Endpoint: market.EndpointSimplePrice,
		Params:   provider.Params{market.ParamIDs: "bitcoin", market.ParamVsCurrencies: "usd"},
	})
	require.NoError(t, err)
	assert.Equal(t, market.SimplePrice{"bitcoin": {"usd": 43250.10}}, price)

	assert.EqualValues(t, 4, geckoCalls.Load())
	assert.EqualValues(t, 1, binanceCalls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, s.waits)
	assert.Equal(t, "/ticker/price", gotPath.Load())
	assert.Equal(t, "BTCUSDT", gotSymbol.Load())

	// 429 is a throttle, not an outage
	assert.True(t, tracker.IsHealthy("coingecko"))
	assert.True(t, tracker.IsHealthy("binance"))
}
