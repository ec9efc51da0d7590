// Package mempoolspace adapts the mempool.space REST API, whose shapes are
// the canonical chain shapes.
package mempoolspace

import (
	"errors"

	"btcmetrics/pkg/chain"
	"btcmetrics/pkg/provider"
)

// TypeName is the provider type this adapter registers under.
const TypeName = "mempoolspace"

func init() {
	provider.RegisterAdapter(TypeName, New)
}

// Adapter maps canonical requests onto mempool.space.
type Adapter struct {
	name string
}

// New builds the adapter for desc.
func New(desc provider.Descriptor) (provider.Adapter, error) {
	return &Adapter{name: desc.Name}, nil
}

// TransformRequest passes every endpoint through unchanged.
func (a *Adapter) TransformRequest(endpoint string, params provider.Params) (string, provider.Params) {
	return endpoint, params
}

// TransformResponse validates and decodes the body.
func (a *Adapter) TransformResponse(body []byte, endpoint string, _ provider.Params) (any, error) {
	out, err := chain.Decode(endpoint, body)
	if errors.Is(err, chain.ErrUnknownEndpoint) {
		return nil, provider.Unsupported(a.name, endpoint)
	}
	if err != nil {
		return nil, provider.Malformed(a.name, endpoint, "%v", err)
	}
	return out, nil
}
