// Package coinbase adapts the Coinbase v2 exchange-rates API. Only spot price
// is available; every other request is reported unsupported so the chain moves on.
package coinbase

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"btcmetrics/pkg/market"
	"btcmetrics/pkg/provider"
)

// TypeName is the provider type this adapter registers under.
const TypeName = "coinbase"

func init() {
	provider.RegisterAdapter(TypeName, New)
}

// Adapter maps canonical requests onto Coinbase.
type Adapter struct {
	name string
}

// New builds the adapter for desc.
func New(desc provider.Descriptor) (provider.Adapter, error) {
	return &Adapter{name: desc.Name}, nil
}

// TransformRequest maps price requests to /exchange-rates?currency=BTC.
func (a *Adapter) TransformRequest(endpoint string, params provider.Params) (string, provider.Params) {
	if endpoint == market.EndpointSimplePrice {
		return "/exchange-rates", provider.Params{"currency": "BTC"}
	}
	return endpoint, params
}

// TransformResponse reads data.rates.<CUR>, which Coinbase encodes as a string.
func (a *Adapter) TransformResponse(body []byte, endpoint string, params provider.Params) (any, error) {
	if endpoint != market.EndpointSimplePrice {
		return nil, provider.Unsupported(a.name, endpoint)
	}
	if market.WantsVolume(params) {
		return nil, provider.Malformed(a.name, endpoint, "24h volume not available")
	}
	rates := gjson.GetBytes(body, "data.rates")
	if !rates.IsObject() {
		return nil, provider.Malformed(a.name, endpoint, "data.rates missing")
	}

	id := market.CoinID(params)
	out := market.NewSimplePrice(id)
	for _, cur := range market.Currencies(params) {
		raw := rates.Get(strings.ToUpper(cur))
		if !raw.Exists() {
			raw = rates.Get("USD")
		}
		if !raw.Exists() {
			return nil, provider.Malformed(a.name, endpoint, "no %s or USD rate", strings.ToUpper(cur))
		}
		v, err := decimal.NewFromString(raw.String())
		if err != nil {
			return nil, provider.Malformed(a.name, endpoint, "rate %q: %v", raw.String(), err)
		}
		out.Set(id, cur, v.InexactFloat64())
	}
	return out, nil
}
