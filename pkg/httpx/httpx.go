// Package httpx issues the single GET request behind every provider attempt and
// classifies the failures the retry and health layers act on.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"btcmetrics/pkg/provider"
)

const (
	// DefaultTimeout bounds a single attempt when the descriptor sets none.
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "btcmetrics/1.0"
	maxErrorBody     = 512
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: http status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsNetworkError reports connection resets, aborts and timeouts.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Caller performs provider GET requests.
type Caller struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

// Option configures a Caller.
type Option func(*Caller)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Caller) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Caller) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-attempt timeout used when a descriptor has none.
func WithTimeout(d time.Duration) Option {
	return func(c *Caller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCaller constructs a Caller.
func NewCaller(opts ...Option) *Caller {
	c := &Caller{
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get requests desc.BaseURL+endpoint with params as the query string and returns
// the body of a 2xx response.
func (c *Caller) Get(ctx context.Context, desc provider.Descriptor, endpoint string, params provider.Params) ([]byte, error) {
	target, err := BuildURL(desc.BaseURL, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("%s: build url: %w", desc.Name, err)
	}
	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", desc.Name, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range desc.AuthHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request %s: %w", desc.Name, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", desc.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Provider: desc.Name, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

// BuildURL joins base and endpoint and encodes params as the query string.
func BuildURL(base, endpoint string, params provider.Params) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return "", err
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params.Values() {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
