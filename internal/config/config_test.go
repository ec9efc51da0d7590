package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "btcmetrics/pkg/chain/explorers/blockstream"
	_ "btcmetrics/pkg/chain/explorers/mempoolspace"
	_ "btcmetrics/pkg/market/exchanges/binance"
	_ "btcmetrics/pkg/market/exchanges/coinapi"
	_ "btcmetrics/pkg/market/exchanges/coinbase"
	_ "btcmetrics/pkg/market/exchanges/coingecko"
	_ "btcmetrics/pkg/market/exchanges/coinmarketcap"
	_ "btcmetrics/pkg/market/exchanges/kraken"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "btcmetrics/1.0", cfg.HTTP.UserAgent)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.InitialBackoff)
	assert.Equal(t, 5*time.Second, cfg.Health.Timeout)
	assert.Equal(t, CacheTTL{Price: 10 * time.Second, Chain: 30 * time.Second, History: 5 * time.Minute}, cfg.TTL)
	assert.Empty(t, cfg.MainPath())

	mkt, err := cfg.MarketProviders()
	require.NoError(t, err)
	assert.Len(t, mkt.Providers, 6)
	ch, err := cfg.ChainProviders()
	require.NoError(t, err)
	assert.Len(t, ch.Providers, 2)
}

func TestLoadWithSections(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "btcmetrics.yaml", `
Env: dev
HTTP:
  Timeout: 3s
Health:
  Policy: legacy
Market:
  File: market.yaml
`)
	write(t, dir, "market.yaml", `
providers:
  gecko:
    type: coingecko
    base_url: ${GECKO_BASE}
    priority: 1
    rate_limit_per_minute: 10
    timeout: 2s
`)
	t.Setenv("GECKO_BASE", "https://gecko.example/api/v3/")

	cfg, err := Load(filepath.Join(dir, "btcmetrics.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.IsDevEnv())
	assert.Equal(t, 3*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, filepath.Join(dir, "btcmetrics.yaml"), cfg.MainPath())

	policy, err := cfg.HealthPolicy()
	require.NoError(t, err)
	assert.Contains(t, policy.UnhealthyStatuses, 404)

	mkt, err := cfg.MarketProviders()
	require.NoError(t, err)
	require.Len(t, mkt.Providers, 1)
	gecko := mkt.Providers["gecko"]
	assert.Equal(t, "https://gecko.example/api/v3", gecko.BaseURL)
	assert.Equal(t, 2*time.Second, gecko.Timeout)
	assert.Equal(t, filepath.Join(dir, "market.yaml"), cfg.Market.File)

	// chain section not configured: built-in catalog
	ch, err := cfg.ChainProviders()
	require.NoError(t, err)
	assert.Contains(t, ch.Providers, "mempoolspace")
}

func TestLoadRejectsBadSection(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "btcmetrics.yaml", "Chain:\n  File: chain.yaml\n")
	write(t, dir, "chain.yaml", "providers:\n  x:\n    type: nosuchexplorer\n    base_url: https://x\n    rate_limit_per_minute: 1\n")

	_, err := Load(filepath.Join(dir, "btcmetrics.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load chain config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "bad env", mutate: func(c *Config) { c.Env = "staging" }, want: "env must be one of"},
		{name: "zero timeout", mutate: func(c *Config) { c.HTTP.Timeout = 0 }, want: "http.timeout"},
		{name: "backoff order", mutate: func(c *Config) { c.Retry.MaxBackoff = time.Millisecond }, want: "retry backoff"},
		{name: "unknown policy", mutate: func(c *Config) { c.Health.Policy = "strict" }, want: "unknown policy"},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL.History = 0 }, want: "ttl.history"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := Default()
	cfg.Env = " DEV "
	cfg.TTL.Price = -time.Second
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "dev", cfg.Env)
}

func TestProjectCatalogs(t *testing.T) {
	mkt := MustLoadMarket()
	assert.Len(t, mkt.Providers, 6)
	assert.Equal(t, 1, mkt.Providers["coingecko"].Priority)
	assert.Equal(t, 6, mkt.Providers["kraken"].Priority)

	ch := MustLoadChain()
	assert.Len(t, ch.Providers, 2)
	assert.Equal(t, "/blocks/tip/height", ch.Providers["blockstream"].HealthEndpoint)
}

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}
