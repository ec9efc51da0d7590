package market

import (
	"errors"
	"fmt"
	"os"

	"btcmetrics/pkg/confkit"
	"btcmetrics/pkg/provider"
)

// Environment variables holding provider API keys.
const (
	EnvCoinMarketCapKey = "COINMARKETCAP_API_KEY"
	EnvCoinAPIKey       = "COINAPI_API_KEY"
)

// DefaultConfig returns the built-in six-provider catalog.
func DefaultConfig() *provider.Config {
	return &provider.Config{
		Providers: map[string]*provider.ProviderConfig{
			"coingecko": {
				Type:               "coingecko",
				BaseURL:            "https://api.coingecko.com/api/v3",
				Priority:           1,
				RateLimitPerMinute: 30,
				HealthEndpoint:     "/ping",
			},
			"coinmarketcap": {
				Type:               "coinmarketcap",
				BaseURL:            "https://pro-api.coinmarketcap.com/v1",
				Priority:           2,
				RateLimitPerMinute: 333,
				RequiresAuth:       true,
				AuthHeaders:        map[string]string{"X-CMC_PRO_API_KEY": "${" + EnvCoinMarketCapKey + "}"},
				HealthEndpoint:     "/cryptocurrency/listings/latest",
			},
			"coinapi": {
				Type:               "coinapi",
				BaseURL:            "https://rest.coinapi.io/v1",
				Priority:           3,
				RateLimitPerMinute: 100,
				RequiresAuth:       true,
				AuthHeaders:        map[string]string{"X-CoinAPI-Key": "${" + EnvCoinAPIKey + "}"},
				HealthEndpoint:     "/exchangerate/BTC/USD",
			},
			"binance": {
				Type:               "binance",
				BaseURL:            "https://api.binance.com/api/v3",
				Priority:           4,
				RateLimitPerMinute: 1200,
				HealthEndpoint:     "/ping",
			},
			"coinbase": {
				Type:               "coinbase",
				BaseURL:            "https://api.coinbase.com/v2",
				Priority:           5,
				RateLimitPerMinute: 10000,
				HealthEndpoint:     "/exchange-rates",
			},
			"kraken": {
				Type:               "kraken",
				BaseURL:            "https://api.kraken.com/0/public",
				Priority:           6,
				RateLimitPerMinute: 60,
				HealthEndpoint:     "/SystemStatus",
			},
		},
	}
}

// LoadConfig reads the market catalog from path, or returns the built-in
// catalog when path is empty or does not exist. Adapter packages must be
// imported before calling it.
func LoadConfig(path string) (*provider.Config, error) {
	if path != "" {
		cfg, err := provider.LoadConfig(path)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("market config: %w", err)
		}
	}
	confkit.LoadDotenvOnce()
	cfg := DefaultConfig()
	if err := cfg.Normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("market config: %w", err)
	}
	return cfg, nil
}
