package provider

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedEndpoint indicates that an adapter has no mapping for a canonical endpoint.
var ErrUnsupportedEndpoint = errors.New("provider: unsupported endpoint")

// Descriptor is the static description of one upstream provider.
type Descriptor struct {
	Name               string
	Type               string
	BaseURL            string
	Priority           int
	RateLimitPerMinute int
	RequiresAuth       bool
	AuthHeaders        map[string]string
	HealthEndpoint     string
	Timeout            time.Duration
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (d Descriptor) Clone() Descriptor {
	out := d
	if d.AuthHeaders != nil {
		out.AuthHeaders = make(map[string]string, len(d.AuthHeaders))
		for k, v := range d.AuthHeaders {
			out.AuthHeaders[k] = v
		}
	}
	return out
}

// Adapter maps canonical requests onto one provider's API and normalises its responses.
type Adapter interface {
	// TransformRequest returns the provider endpoint and parameters for a canonical request.
	// Endpoints without a known mapping are returned unchanged.
	TransformRequest(endpoint string, params Params) (string, Params)
	// TransformResponse converts a raw provider body into the canonical shape for endpoint.
	TransformResponse(body []byte, endpoint string, params Params) (any, error)
}

// AdapterFunc bundles two plain functions into an Adapter.
type AdapterFunc struct {
	Request  func(endpoint string, params Params) (string, Params)
	Response func(body []byte, endpoint string, params Params) (any, error)
}

func (f AdapterFunc) TransformRequest(endpoint string, params Params) (string, Params) {
	if f.Request == nil {
		return endpoint, params
	}
	return f.Request(endpoint, params)
}

func (f AdapterFunc) TransformResponse(body []byte, endpoint string, params Params) (any, error) {
	if f.Response == nil {
		return nil, Unsupported("", endpoint)
	}
	return f.Response(body, endpoint, params)
}

// NormalizeError reports a provider response that could not be mapped to the canonical shape.
type NormalizeError struct {
	Provider string
	Endpoint string
	Err      error
}

func (e *NormalizeError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("normalize %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: normalize %s: %v", e.Provider, e.Endpoint, e.Err)
}

func (e *NormalizeError) Unwrap() error { return e.Err }

// Unsupported builds the NormalizeError adapters return for endpoints they do not map.
func Unsupported(provider, endpoint string) error {
	return &NormalizeError{Provider: provider, Endpoint: endpoint, Err: ErrUnsupportedEndpoint}
}

// Malformed builds a NormalizeError for a payload missing the expected fields.
func Malformed(provider, endpoint, format string, args ...any) error {
	return &NormalizeError{Provider: provider, Endpoint: endpoint, Err: fmt.Errorf(format, args...)}
}
