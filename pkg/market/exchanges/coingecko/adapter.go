// Package coingecko adapts the CoinGecko v3 API. The canonical shapes are
// CoinGecko's own, so requests pass through and responses are only validated
// and completed with the usd fallback.
package coingecko

import (
	json "github.com/goccy/go-json"

	"btcmetrics/pkg/market"
	"btcmetrics/pkg/provider"
)

// TypeName is the provider type this adapter registers under.
const TypeName = "coingecko"

func init() {
	provider.RegisterAdapter(TypeName, New)
}

// Adapter maps canonical requests onto CoinGecko.
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

// TransformResponse validates and decodes the body for endpoint.
func (a *Adapter) TransformResponse(body []byte, endpoint string, params provider.Params) (any, error) {
	switch endpoint {
	case market.EndpointSimplePrice:
		return a.simplePrice(body, endpoint, params)
	case market.EndpointCoin:
		var coin market.CoinData
		if err := json.Unmarshal(body, &coin); err != nil {
			return nil, provider.Malformed(a.name, endpoint, "decode: %v", err)
		}
		if len(coin.MarketData.CurrentPrice) == 0 {
			return nil, provider.Malformed(a.name, endpoint, "market_data.current_price missing")
		}
		return coin, nil
	case market.EndpointMarketChart:
		var chart market.MarketChart
		if err := json.Unmarshal(body, &chart); err != nil {
			return nil, provider.Malformed(a.name, endpoint, "decode: %v", err)
		}
		if len(chart.Prices) == 0 {
			return nil, provider.Malformed(a.name, endpoint, "prices missing")
		}
		chart.SortByTime()
		return chart, nil
	case market.EndpointTickers:
		var tickers market.Tickers
		if err := json.Unmarshal(body, &tickers); err != nil {
			return nil, provider.Malformed(a.name, endpoint, "decode: %v", err)
		}
		return tickers, nil
	default:
		return nil, provider.Unsupported(a.name, endpoint)
	}
}

func (a *Adapter) simplePrice(body []byte, endpoint string, params provider.Params) (any, error) {
	var raw market.SimplePrice
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, provider.Malformed(a.name, endpoint, "decode: %v", err)
	}
	id := market.CoinID(params)
	quotes, ok := raw[id]
	if !ok {
		return nil, provider.Malformed(a.name, endpoint, "coin %q missing", id)
	}

	out := market.NewSimplePrice(id)
	for _, cur := range market.Currencies(params) {
		price, ok := market.LookupCurrency(quotes, cur)
		if !ok {
			return nil, provider.Malformed(a.name, endpoint, "no %s or usd quote", cur)
		}
		out.Set(id, cur, price)
		if v, ok := lookupSuffixed(quotes, cur, market.VolumeKey); ok {
			out.Set(id, market.VolumeKey(cur), v)
		}
		if v, ok := lookupSuffixed(quotes, cur, market.ChangeKey); ok {
			out.Set(id, market.ChangeKey(cur), v)
		}
		if v, ok := lookupSuffixed(quotes, cur, market.MarketCapKey); ok {
			out.Set(id, market.MarketCapKey(cur), v)
		}
	}
	if market.WantsVolume(params) {
		if _, ok := out.Volume(id, market.Currency(params)); !ok {
			return nil, provider.Malformed(a.name, endpoint, "24h volume missing")
		}
	}
	return out, nil
}

func lookupSuffixed(quotes map[string]float64, cur string, key func(string) string) (float64, bool) {
	if v, ok := quotes[key(cur)]; ok {
		return v, true
	}
	v, ok := quotes[key(market.DefaultCurrency)]
	return v, ok
}
