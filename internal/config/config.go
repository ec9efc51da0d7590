package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/conf"

	"btcmetrics/pkg/chain"
	"btcmetrics/pkg/confkit"
	"btcmetrics/pkg/health"
	"btcmetrics/pkg/market"
	"btcmetrics/pkg/provider"
)

// DefaultPath is where the CLI looks for its config when --config is not given.
const DefaultPath = "etc/btcmetrics.yaml"

type HTTPConf struct {
	Timeout   time.Duration `json:",default=10s"`
	UserAgent string        `json:",default=btcmetrics/1.0"`
}

type RetryConf struct {
	// MaxRetries per provider; negative disables retries.
	MaxRetries     int           `json:",default=3"`
	InitialBackoff time.Duration `json:",default=1s"`
	MaxBackoff     time.Duration `json:",default=30s"`
}

type HealthConf struct {
	// Policy selects which failures mark a provider unhealthy: default | legacy.
	Policy            string        `json:",default=default"`
	UnhealthyStatuses []int         `json:",optional"`
	Timeout           time.Duration `json:",default=5s"`
}

type CacheTTL struct {
	Price   time.Duration `json:",default=10s"`
	Chain   time.Duration `json:",default=30s"`
	History time.Duration `json:",default=5m"`
}

type Config struct {
	// Env is the running environment: dev | prod. dev turns on debug logs.
	Env    string     `json:",default=prod"`
	HTTP   HTTPConf
	Retry  RetryConf
	Health HealthConf
	TTL    CacheTTL

	Market confkit.Section[provider.Config] `json:",optional"`
	Chain  confkit.Section[provider.Config] `json:",optional"`

	mainPath string
	baseDir  string
}

func (c *Config) IsDevEnv() bool {
	return c.Env == "dev"
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	var cfg Config
	// every field carries a default, so an empty document cannot fail
	if err := conf.LoadFromYamlBytes([]byte("{}"), &cfg); err != nil {
		panic(fmt.Sprintf("config: defaults: %v", err))
	}
	wd, _ := os.Getwd()
	cfg.baseDir = wd
	return &cfg
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the application config at path. A missing file yields the
// built-in defaults; provider sections then fall back to built-in catalogs.
func Load(path string) (*Config, error) {
	confkit.LoadDotenvOnce()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	cfg, err := confkit.LoadFileOr[Config](absPath, true, Default)
	if err != nil {
		return nil, err
	}
	if cfg.mainPath == "" && fileExists(absPath) {
		cfg.mainPath = absPath
		cfg.baseDir = filepath.Dir(absPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.hydrateSections(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "":
		c.Env = "prod"
	case "dev", "prod":
		c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	default:
		return errors.New("config: env must be one of dev|prod")
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("config: http.timeout must be positive")
	}
	if c.Retry.InitialBackoff <= 0 || c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		return errors.New("config: retry backoff must be positive and maxBackoff >= initialBackoff")
	}
	if c.Health.Timeout <= 0 {
		return errors.New("config: health.timeout must be positive")
	}
	if _, err := c.HealthPolicy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return c.validateTTL()
}

// validateTTL rejects zero TTLs; a negative TTL turns caching off for that class.
func (c *Config) validateTTL() error {
	for _, ttl := range []struct {
		name string
		d    time.Duration
	}{{"price", c.TTL.Price}, {"chain", c.TTL.Chain}, {"history", c.TTL.History}} {
		if ttl.d == 0 {
			return fmt.Errorf("config: ttl.%s must be non-zero", ttl.name)
		}
	}
	return nil
}

// HealthPolicy resolves the configured marking policy.
func (c *Config) HealthPolicy() (health.Policy, error) {
	return health.PolicyByName(c.Health.Policy, c.Health.UnhealthyStatuses)
}

func (c *Config) hydrateSections() error {
	base := c.baseDir

	if err := c.Market.Hydrate(base, market.LoadConfig); err != nil {
		return fmt.Errorf("load market config: %w", err)
	}
	if err := c.Chain.Hydrate(base, chain.LoadConfig); err != nil {
		return fmt.Errorf("load chain config: %w", err)
	}
	return nil
}

// MarketProviders returns the market catalog, built-in when unconfigured.
func (c *Config) MarketProviders() (*provider.Config, error) {
	if c.Market.Value != nil {
		return c.Market.Value, nil
	}
	return market.LoadConfig("")
}

// ChainProviders returns the explorer catalog, built-in when unconfigured.
func (c *Config) ChainProviders() (*provider.Config, error) {
	if c.Chain.Value != nil {
		return c.Chain.Value, nil
	}
	return chain.LoadConfig("")
}

func (c *Config) MainPath() string {
	return c.mainPath
}

func (c *Config) BaseDir() string {
	return c.baseDir
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
