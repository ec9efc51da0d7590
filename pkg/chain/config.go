package chain

import (
	"errors"
	"fmt"
	"os"

	"btcmetrics/pkg/confkit"
	"btcmetrics/pkg/provider"
)

// DefaultConfig returns the built-in two-provider explorer catalog.
func DefaultConfig() *provider.Config {
	return &provider.Config{
		Providers: map[string]*provider.ProviderConfig{
			"mempoolspace": {
				Type:               "mempoolspace",
				BaseURL:            "https://mempool.space/api",
				Priority:           1,
				RateLimitPerMinute: 60,
				HealthEndpoint:     EndpointTipHeight,
			},
			"blockstream": {
				Type:               "blockstream",
				BaseURL:            "https://blockstream.info/api",
				Priority:           2,
				RateLimitPerMinute: 60,
				HealthEndpoint:     EndpointTipHeight,
			},
		},
	}
}

// LoadConfig reads the explorer catalog from path, or returns the built-in
// catalog when path is empty or missing.
func LoadConfig(path string) (*provider.Config, error) {
	if path != "" {
		cfg, err := provider.LoadConfig(path)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("chain config: %w", err)
		}
	}
	confkit.LoadDotenvOnce()
	cfg := DefaultConfig()
	if err := cfg.Normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("chain config: %w", err)
	}
	return cfg, nil
}
