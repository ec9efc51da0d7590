package provider

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func init() {
	RegisterAdapter("stub", func(desc Descriptor) (Adapter, error) {
		return AdapterFunc{}, nil
	})
}

func TestLoadProviderConfig(t *testing.T) {
	t.Setenv("STUB_API_KEY", "secret")
	dir := t.TempDir()
	configYAML := `
default: [alpha, beta]
providers:
  alpha:
    type: stub
    base_url: https://alpha.example.com/api/
    priority: 2
    rate_limit_per_minute: 30
    health_endpoint: /ping
    timeout: 4s
  beta:
    type: stub
    base_url: https://beta.example.com
    priority: 1
    rate_limit_per_minute: 100
    requires_auth: true
    auth_headers:
      X-API-Key: ${STUB_API_KEY}
`
	path := filepath.Join(dir, "market.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, cfg.Default)

	alpha := cfg.Providers["alpha"]
	require.Equal(t, "https://alpha.example.com/api", alpha.BaseURL)
	require.Equal(t, 4*time.Second, alpha.Timeout)
	require.Equal(t, "secret", cfg.Providers["beta"].AuthHeaders["X-API-Key"])

	reg, err := NewRegistry(cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"beta", "alpha"}, reg.Names())
}

func TestProviderConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		errContains string
	}{
		{
			name:        "empty providers",
			yaml:        "providers: {}\n",
			errContains: "providers cannot be empty",
		},
		{
			name: "unsupported type",
			yaml: `
providers:
  demo:
    type: foobar
    base_url: https://demo.example.com
    rate_limit_per_minute: 10
`,
			errContains: "unsupported",
		},
		{
			name: "relative base url",
			yaml: `
providers:
  demo:
    type: stub
    base_url: /api
    rate_limit_per_minute: 10
`,
			errContains: "absolute URL",
		},
		{
			name: "zero rate limit",
			yaml: `
providers:
  demo:
    type: stub
    base_url: https://demo.example.com
`,
			errContains: "rate_limit_per_minute",
		},
		{
			name: "bad timeout",
			yaml: `
providers:
  demo:
    type: stub
    base_url: https://demo.example.com
    rate_limit_per_minute: 10
    timeout: soon
`,
			errContains: "invalid timeout",
		},
		{
			name: "unknown default",
			yaml: `
default: [ghost]
providers:
  demo:
    type: stub
    base_url: https://demo.example.com
    rate_limit_per_minute: 10
`,
			errContains: "not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromReader(strings.NewReader(tt.yaml))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestProviderTypeDefaultsToName(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(`
providers:
  stub:
    base_url: https://stub.example.com
    rate_limit_per_minute: 5
`))
	require.NoError(t, err)
	require.Equal(t, "stub", cfg.Providers["stub"].Type)
}
