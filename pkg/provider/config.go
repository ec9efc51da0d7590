package provider

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"btcmetrics/pkg/confkit"
)

// Config describes a catalog of upstream providers for one endpoint family.
type Config struct {
	// Default lists the providers tried when a request names none. Empty means all.
	Default   []string                   `yaml:"default"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig represents configuration for a single provider.
type ProviderConfig struct {
	Type               string            `yaml:"type"`
	BaseURL            string            `yaml:"base_url"`
	Priority           int               `yaml:"priority"`
	RateLimitPerMinute int               `yaml:"rate_limit_per_minute"`
	RequiresAuth       bool              `yaml:"requires_auth"`
	AuthHeaders        map[string]string `yaml:"auth_headers"`
	HealthEndpoint     string            `yaml:"health_endpoint"`
	Disabled           bool              `yaml:"disabled"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// AdapterBuilder constructs an Adapter for a configured provider.
type AdapterBuilder func(desc Descriptor) (Adapter, error)

var (
	adapterRegistry   = make(map[string]AdapterBuilder)
	adapterRegistryMu sync.RWMutex
)

// RegisterAdapter registers an adapter constructor under a provider type.
func RegisterAdapter(typeName string, builder AdapterBuilder) {
	adapterRegistryMu.Lock()
	defer adapterRegistryMu.Unlock()
	adapterRegistry[normalizeType(typeName)] = builder
}

func lookupAdapterBuilder(typeName string) (AdapterBuilder, bool) {
	adapterRegistryMu.RLock()
	defer adapterRegistryMu.RUnlock()
	builder, ok := adapterRegistry[normalizeType(typeName)]
	return builder, ok
}

func normalizeType(typeName string) string {
	return strings.ToLower(strings.TrimSpace(typeName))
}

// LoadConfig reads a provider catalog from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open provider config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read provider config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal provider config: %w", err)
	}
	if err := cfg.Normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalise expands environment references and parses durations.
func (c *Config) Normalise() error {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	for name, p := range c.Providers {
		if p == nil {
			p = &ProviderConfig{}
			c.Providers[name] = p
		}
		p.expandEnv()
		if p.Type == "" {
			p.Type = name
		}
		if err := p.parseDurations(name); err != nil {
			return err
		}
	}
	for i, name := range c.Default {
		c.Default[i] = strings.TrimSpace(name)
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(os.ExpandEnv(p.Type))
	p.BaseURL = strings.TrimRight(strings.TrimSpace(os.ExpandEnv(p.BaseURL)), "/")
	p.HealthEndpoint = strings.TrimSpace(os.ExpandEnv(p.HealthEndpoint))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
	for k, v := range p.AuthHeaders {
		p.AuthHeaders[k] = strings.TrimSpace(os.ExpandEnv(v))
	}
}

func (p *ProviderConfig) parseDurations(name string) error {
	if p.TimeoutRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(p.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("provider %s: invalid timeout %q: %w", name, p.TimeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("provider %s: timeout must be positive, got %s", name, d)
	}
	p.Timeout = d
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("provider config: providers cannot be empty")
	}
	for _, name := range c.Default {
		if _, ok := c.Providers[name]; !ok {
			return fmt.Errorf("provider config: default provider %q not defined", name)
		}
	}
	for name, p := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("provider config: provider name cannot be empty")
		}
		if err := p.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) validate(name string) error {
	if p == nil {
		return fmt.Errorf("provider config: provider %s is nil", name)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("provider config: provider %s must specify type", name)
	}
	if _, ok := lookupAdapterBuilder(p.Type); !ok {
		return fmt.Errorf("provider config: provider %s has unsupported type %q", name, p.Type)
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("provider config: provider %s base_url %q must be an absolute URL", name, p.BaseURL)
	}
	if p.RateLimitPerMinute <= 0 {
		return fmt.Errorf("provider config: provider %s rate_limit_per_minute must be positive", name)
	}
	return nil
}

func (p *ProviderConfig) descriptor(name string) Descriptor {
	desc := Descriptor{
		Name:               name,
		Type:               normalizeType(p.Type),
		BaseURL:            p.BaseURL,
		Priority:           p.Priority,
		RateLimitPerMinute: p.RateLimitPerMinute,
		RequiresAuth:       p.RequiresAuth,
		HealthEndpoint:     p.HealthEndpoint,
		Timeout:            p.Timeout,
	}
	if len(p.AuthHeaders) > 0 {
		desc.AuthHeaders = make(map[string]string, len(p.AuthHeaders))
		for k, v := range p.AuthHeaders {
			desc.AuthHeaders[k] = v
		}
	}
	return desc
}

// credentialsPresent reports whether every auth header resolved to a value.
func (p *ProviderConfig) credentialsPresent() bool {
	if !p.RequiresAuth {
		return true
	}
	if len(p.AuthHeaders) == 0 {
		return false
	}
	for _, v := range p.AuthHeaders {
		if v == "" {
			return false
		}
	}
	return true
}
