// Package blockstream adapts the Blockstream Esplora API.
package blockstream

import (
	"errors"

	json "github.com/goccy/go-json"

	"btcmetrics/pkg/chain"
	"btcmetrics/pkg/provider"
)

// TypeName is the provider type this adapter registers under.
const TypeName = "blockstream"

// EndpointFeeEstimates is Esplora's confirmation-target fee table.
const EndpointFeeEstimates = "/fee-estimates"

// Confirmation targets, in blocks, behind each recommended fee.
const (
	targetFastest  = "1"
	targetHalfHour = "3"
	targetHour     = "6"
	targetEconomy  = "144"
)

func init() {
	provider.RegisterAdapter(TypeName, New)
}

// Adapter maps canonical requests onto Esplora.
type Adapter struct {
	name string
}

// New builds the adapter for desc.
func New(desc provider.Descriptor) (provider.Adapter, error) {
	return &Adapter{name: desc.Name}, nil
}

// TransformRequest maps recommended fees onto /fee-estimates; blocks, mempool
// and tip height share the canonical paths.
func (a *Adapter) TransformRequest(endpoint string, params provider.Params) (string, provider.Params) {
	if endpoint == chain.EndpointFees {
		return EndpointFeeEstimates, nil
	}
	return endpoint, params
}

// TransformResponse normalizes Esplora bodies. Difficulty adjustment and
// mining hashrate have no Esplora equivalent.
func (a *Adapter) TransformResponse(body []byte, endpoint string, _ provider.Params) (any, error) {
	switch endpoint {
	case chain.EndpointFees:
		return a.fees(body, endpoint)
	case chain.EndpointDifficulty, chain.EndpointHashrate:
		return nil, provider.Unsupported(a.name, endpoint)
	}
	out, err := chain.Decode(endpoint, body)
	if errors.Is(err, chain.ErrUnknownEndpoint) {
		return nil, provider.Unsupported(a.name, endpoint)
	}
	if err != nil {
		return nil, provider.Malformed(a.name, endpoint, "%v", err)
	}
	return out, nil
}

func (a *Adapter) fees(body []byte, endpoint string) (any, error) {
	var estimates map[string]float64
	if err := json.Unmarshal(body, &estimates); err != nil {
		return nil, provider.Malformed(a.name, endpoint, "decode: %v", err)
	}
	fees := chain.RecommendedFees{}
	for _, t := range []struct {
		target string
		dst    *float64
	}{
		{targetFastest, &fees.FastestFee},
		{targetHalfHour, &fees.HalfHourFee},
		{targetHour, &fees.HourFee},
		{targetEconomy, &fees.EconomyFee},
	} {
		v, ok := estimates[t.target]
		if !ok {
			return nil, provider.Malformed(a.name, endpoint, "target %s missing", t.target)
		}
		*t.dst = v
	}
	fees.MinimumFee = fees.EconomyFee
	for _, v := range estimates {
		if v < fees.MinimumFee {
			fees.MinimumFee = v
		}
	}
	return fees, nil
}
