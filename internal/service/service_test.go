package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcmetrics/internal/cache"
	"btcmetrics/internal/config"
	"btcmetrics/pkg/chain"
	"btcmetrics/pkg/fallback"
	"btcmetrics/pkg/market"
)

type fakeFetcher struct {
	mu       sync.Mutex
	provider string
	data     map[string]any
	err      error
	requests []fallback.Request
}

func newFake(provider string) *fakeFetcher {
	return &fakeFetcher{provider: provider, data: map[string]any{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, req fallback.Request) (*fallback.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.data[req.Endpoint]
	if !ok {
		return nil, &fallback.AllProvidersFailedError{Endpoint: req.Endpoint, Last: fallback.ErrNoProviders}
	}
	return &fallback.Result{Provider: f.provider, Endpoint: req.Endpoint, Data: data, Attempted: []string{f.provider}}, nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

var fixedNow = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, mkt, ch *fakeFetcher, cached bool) *Service {
	t.Helper()
	opts := []Option{WithClock(func() time.Time { return fixedNow })}
	if cached {
		store, err := cache.NewStore(cache.NewTTLSet(config.CacheTTL{}))
		require.NoError(t, err)
		opts = append(opts, WithCache(store))
	}
	return New(mkt, ch, opts...)
}

func TestPrice(t *testing.T) {
	mkt := newFake("binance")
	mkt.data[market.EndpointSimplePrice] = market.SimplePrice{"bitcoin": {"usd": 43250.10}}
	s := newService(t, mkt, newFake("mempoolspace"), true)

	for i := 0; i < 2; i++ {
		report, err := s.Price(context.Background(), Query{Currency: "USD", Skip: []string{"coingecko"}})
		require.NoError(t, err)
		assert.Equal(t, PriceReport{
			Currency: "usd",
			Price:    43250.10,
			Source:   Source{Provider: "binance", FetchedAt: fixedNow},
		}, report)
	}
	require.Equal(t, 1, mkt.calls())

	req := mkt.requests[0]
	assert.Equal(t, market.EndpointSimplePrice, req.Endpoint)
	assert.Equal(t, "usd", req.Params[market.ParamVsCurrencies])
	assert.NotContains(t, req.Params, market.ParamInclude24hVol)
	assert.Equal(t, []string{"coingecko"}, req.Skip)
}

func TestPriceMissingQuote(t *testing.T) {
	mkt := newFake("coingecko")
	mkt.data[market.EndpointSimplePrice] = market.SimplePrice{"bitcoin": {}}
	_, err := newService(t, mkt, newFake("x"), false).Price(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usd quote")
}

func TestVolume(t *testing.T) {
	mkt := newFake("kraken")
	mkt.data[market.EndpointSimplePrice] = market.SimplePrice{"bitcoin": {"eur": 59000, "eur_24h_vol": 1.5e9}}
	s := newService(t, mkt, newFake("x"), false)

	report, err := s.Volume(context.Background(), Query{Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, 1.5e9, report.Volume24h)
	assert.Equal(t, 59000.0, report.Price)
	assert.Equal(t, "true", mkt.requests[0].Params[market.ParamInclude24hVol])

	mkt.data[market.EndpointSimplePrice] = market.SimplePrice{"bitcoin": {"eur": 59000}}
	_, err = s.Volume(context.Background(), Query{Currency: "eur"})
	require.Error(t, err)
}

func TestHistory(t *testing.T) {
	mkt := newFake("coingecko")
	mkt.data[market.EndpointMarketChart] = market.MarketChart{Prices: []market.Point{
		{1, 100}, {2, 120}, {3, 90}, {4, 110},
	}}
	s := newService(t, mkt, newFake("x"), false)

	report, err := s.History(context.Background(), Query{}, 0)
	require.NoError(t, err)
	assert.Equal(t, market.DefaultHistoryDays, report.Days)
	assert.Equal(t, 100.0, report.Open)
	assert.Equal(t, 110.0, report.Close)
	assert.Equal(t, 120.0, report.High)
	assert.Equal(t, 90.0, report.Low)
	assert.Equal(t, 10.0, report.ChangePercent)
	assert.Equal(t, market.DefaultHistoryDays, mkt.requests[0].Params[market.ParamDays])
	assert.Nil(t, report.Indicators.RSI)

	mkt.data[market.EndpointMarketChart] = market.MarketChart{}
	_, err = s.History(context.Background(), Query{}, 30)
	require.Error(t, err)
}

func TestBlocksLimitDoesNotTouchCache(t *testing.T) {
	ch := newFake("mempoolspace")
	ch.data[chain.EndpointBlocks] = []chain.Block{{ID: "c", Height: 3}, {ID: "b", Height: 2}, {ID: "a", Height: 1}}
	s := newService(t, newFake("x"), ch, true)

	report, err := s.Blocks(context.Background(), Query{}, 2)
	require.NoError(t, err)
	require.Len(t, report.Blocks, 2)
	assert.Equal(t, int64(3), report.Blocks[0].Height)

	report, err = s.Blocks(context.Background(), Query{}, 0)
	require.NoError(t, err)
	assert.Len(t, report.Blocks, 3)
	assert.Equal(t, 1, ch.calls())
}

func TestMempool(t *testing.T) {
	ch := newFake("blockstream")
	ch.data[chain.EndpointMempool] = chain.MempoolStats{Count: 40000, VSize: 24_000_000}
	report, err := newService(t, newFake("x"), ch, false).Mempool(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, chain.CongestionMedium, report.Congestion)
	assert.Equal(t, "blockstream", report.Provider)
}

func TestFeesAndDifficulty(t *testing.T) {
	ch := newFake("mempoolspace")
	ch.data[chain.EndpointFees] = chain.RecommendedFees{FastestFee: 20, MinimumFee: 1}
	ch.data[chain.EndpointDifficulty] = chain.DifficultyAdjustment{ProgressPercent: 50, RemainingBlocks: 1008}
	s := newService(t, newFake("x"), ch, false)

	fees, err := s.Fees(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, 20.0, fees.FastestFee)

	diff, err := s.Difficulty(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(1008), diff.RemainingBlocks)
}

func TestHashrate(t *testing.T) {
	ch := newFake("mempoolspace")
	ch.data[chain.EndpointHashrate] = chain.Hashrate{CurrentHashrate: 6.3e20, CurrentDifficulty: 8.6e13}
	report, err := newService(t, newFake("x"), ch, false).Hashrate(context.Background(), Query{Skip: []string{"blockstream"}})
	require.NoError(t, err)
	assert.Equal(t, 6.3e20, report.CurrentHashrate)
	assert.Equal(t, "mempoolspace", report.Provider)
	assert.Equal(t, []string{"blockstream"}, ch.requests[0].Skip)
}

func TestHalving(t *testing.T) {
	ch := newFake("mempoolspace")
	ch.data[chain.EndpointTipHeight] = int64(839_856)
	report, err := newService(t, newFake("x"), ch, false).Halving(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(144), report.BlocksRemaining)
	assert.Equal(t, fixedNow.Add(24*time.Hour), report.EstimatedAt)
	assert.Equal(t, "3.125", report.NextSubsidy.String())
}

func TestErrorsAreNotCached(t *testing.T) {
	ch := newFake("mempoolspace")
	ch.err = &fallback.AllProvidersFailedError{Endpoint: chain.EndpointFees, Attempted: []string{"mempoolspace", "blockstream"},
		LastProvider: "blockstream", Last: errors.New("blockstream: http status 503")}
	s := newService(t, newFake("x"), ch, true)

	_, err := s.Fees(context.Background(), Query{})
	var failed *fallback.AllProvidersFailedError
	require.ErrorAs(t, err, &failed)

	ch.err = nil
	ch.data[chain.EndpointFees] = chain.RecommendedFees{FastestFee: 9}
	fees, err := s.Fees(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, 9.0, fees.FastestFee)
	assert.Equal(t, 2, ch.calls())
}

func TestUnexpectedResultType(t *testing.T) {
	ch := newFake("mempoolspace")
	ch.data[chain.EndpointTipHeight] = "840000"
	_, err := newService(t, newFake("x"), ch, false).Halving(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected result type string")
}
