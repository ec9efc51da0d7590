package market_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcmetrics/pkg/market"
	"btcmetrics/pkg/provider"

	_ "btcmetrics/pkg/market/exchanges/binance"
	_ "btcmetrics/pkg/market/exchanges/coinapi"
	_ "btcmetrics/pkg/market/exchanges/coinbase"
	_ "btcmetrics/pkg/market/exchanges/coingecko"
	_ "btcmetrics/pkg/market/exchanges/coinmarketcap"
	_ "btcmetrics/pkg/market/exchanges/kraken"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		cfg, err := market.LoadConfig(path)
		require.NoError(t, err)
		require.Len(t, cfg.Providers, 6)
		assert.Equal(t, 1, cfg.Providers["coingecko"].Priority)
		assert.Equal(t, 6, cfg.Providers["kraken"].Priority)
		assert.True(t, cfg.Providers["coinapi"].RequiresAuth)
	}
}

func TestLoadConfigFileWithEnv(t *testing.T) {
	t.Setenv("TEST_CMC_KEY", "k-123")
	path := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  cmc:
    type: coinmarketcap
    base_url: https://pro-api.coinmarketcap.com/v1
    priority: 1
    rate_limit_per_minute: 333
    requires_auth: true
    timeout: 4s
    auth_headers:
      X-CMC_PRO_API_KEY: ${TEST_CMC_KEY}
`), 0o600))

	cfg, err := market.LoadConfig(path)
	require.NoError(t, err)
	p := cfg.Providers["cmc"]
	require.NotNil(t, p)
	assert.Equal(t, "k-123", p.AuthHeaders["X-CMC_PRO_API_KEY"])
	assert.Equal(t, "4s", p.Timeout.String())
}

func TestLoadConfigUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  x:
    type: bitstamp
    base_url: https://www.bitstamp.net/api/v2
    priority: 1
    rate_limit_per_minute: 60
`), 0o600))
	_, err := market.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market config")
}

func TestParamHelpers(t *testing.T) {
	p := provider.Params{market.ParamIDs: " Bitcoin ,ethereum", market.ParamVsCurrencies: "EUR, usd"}
	assert.Equal(t, "bitcoin", market.CoinID(p))
	assert.Equal(t, []string{"eur", "usd"}, market.Currencies(p))
	assert.Equal(t, "eur", market.Currency(p))

	assert.Equal(t, "bitcoin", market.CoinID(nil))
	assert.Equal(t, "usd", market.Currency(provider.Params{market.ParamVsCurrencies: " , "}))
	assert.Equal(t, "gbp", market.Currency(provider.Params{market.ParamVsCurrency: "GBP"}))
	assert.Equal(t, market.DefaultHistoryDays, market.Days(nil))
	assert.Equal(t, 1, market.Days(provider.Params{market.ParamDays: 0}))
}

func TestLookupCurrencyFallsBackToUSD(t *testing.T) {
	values := map[string]float64{"USD": 43000, "eur": 40000}
	v, ok := market.LookupCurrency(values, "EUR")
	require.True(t, ok)
	assert.Equal(t, 40000.0, v)

	v, ok = market.LookupCurrency(values, "jpy")
	require.True(t, ok)
	assert.Equal(t, 43000.0, v)

	_, ok = market.LookupCurrency(map[string]float64{}, "usd")
	assert.False(t, ok)
}

func TestSimplePriceAccessors(t *testing.T) {
	sp := market.NewSimplePrice("bitcoin")
	sp.Set("bitcoin", "usd", 43250.1)
	sp.Set("bitcoin", market.VolumeKey("USD"), 1e9)

	price, ok := sp.Price("bitcoin", "usd")
	require.True(t, ok)
	assert.Equal(t, 43250.1, price)
	vol, ok := sp.Volume("bitcoin", "usd")
	require.True(t, ok)
	assert.Equal(t, 1e9, vol)
	_, ok = sp.Change("bitcoin", "usd")
	assert.False(t, ok)
}

func TestSortByTime(t *testing.T) {
	chart := market.MarketChart{Prices: []market.Point{{3, 30}, {1, 10}, {2, 20}}}
	chart.SortByTime()
	assert.Equal(t, []market.Point{{1, 10}, {2, 20}, {3, 30}}, chart.Prices)
}
