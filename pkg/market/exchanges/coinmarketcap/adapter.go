// Package coinmarketcap adapts the CoinMarketCap Pro v1 API.
package coinmarketcap

import (
	"strings"

	"github.com/tidwall/gjson"

	"btcmetrics/pkg/market"
	"btcmetrics/pkg/provider"
)

const (
	// TypeName is the provider type this adapter registers under.
	TypeName = "coinmarketcap"

	quotesEndpoint = "/cryptocurrency/quotes/latest"
	symbol         = "BTC"
)

func init() {
	provider.RegisterAdapter(TypeName, New)
}

// Adapter maps canonical requests onto CoinMarketCap.
type Adapter struct {
	name string
}

// New builds the adapter for desc.
func New(desc provider.Descriptor) (provider.Adapter, error) {
	return &Adapter{name: desc.Name}, nil
}

// TransformRequest maps price and coin requests to the quotes endpoint.
func (a *Adapter) TransformRequest(endpoint string, params provider.Params) (string, provider.Params) {
	switch endpoint {
	case market.EndpointSimplePrice, market.EndpointCoin:
		return quotesEndpoint, provider.Params{
			"symbol":  symbol,
			"convert": strings.ToUpper(market.Currency(params)),
		}
	default:
		return endpoint, params
	}
}

// TransformResponse reads data.BTC.quote.<CUR> from the quotes payload.
func (a *Adapter) TransformResponse(body []byte, endpoint string, params provider.Params) (any, error) {
	if endpoint != market.EndpointSimplePrice && endpoint != market.EndpointCoin {
		return nil, provider.Unsupported(a.name, endpoint)
	}
	if !gjson.ValidBytes(body) {
		return nil, provider.Malformed(a.name, endpoint, "invalid json")
	}
	if code := gjson.GetBytes(body, "status.error_code").Int(); code != 0 {
		return nil, provider.Malformed(a.name, endpoint, "error_code %d: %s", code,
			gjson.GetBytes(body, "status.error_message").String())
	}

	cur := market.Currency(params)
	quote := a.quote(body, cur)
	price := quote.Get("price")
	if !price.Exists() {
		return nil, provider.Malformed(a.name, endpoint, "data.BTC.quote.%s.price missing", strings.ToUpper(cur))
	}

	if endpoint == market.EndpointCoin {
		coin := market.NewCoinData()
		coin.MarketData.CurrentPrice[cur] = price.Float()
		coin.MarketData.TotalVolume[cur] = quote.Get("volume_24h").Float()
		coin.MarketData.MarketCap[cur] = quote.Get("market_cap").Float()
		coin.MarketData.PriceChangePercentage24h = quote.Get("percent_change_24h").Float()
		coin.MarketData.CirculatingSupply = gjson.GetBytes(body, "data.BTC.circulating_supply").Float()
		coin.MarketData.MaxSupply = gjson.GetBytes(body, "data.BTC.max_supply").Float()
		coin.MarketData.LastUpdated = quote.Get("last_updated").String()
		return coin, nil
	}

	id := market.CoinID(params)
	out := market.NewSimplePrice(id)
	out.Set(id, cur, price.Float())
	if v := quote.Get("volume_24h"); v.Exists() {
		out.Set(id, market.VolumeKey(cur), v.Float())
	} else if market.WantsVolume(params) {
		return nil, provider.Malformed(a.name, endpoint, "volume_24h missing")
	}
	if v := quote.Get("percent_change_24h"); v.Exists() {
		out.Set(id, market.ChangeKey(cur), v.Float())
	}
	if v := quote.Get("market_cap"); v.Exists() {
		out.Set(id, market.MarketCapKey(cur), v.Float())
	}
	return out, nil
}

// quote returns the quote object for cur, falling back to USD.
func (a *Adapter) quote(body []byte, cur string) gjson.Result {
	q := gjson.GetBytes(body, "data."+symbol+".quote."+strings.ToUpper(cur))
	if q.Exists() {
		return q
	}
	return gjson.GetBytes(body, "data."+symbol+".quote.USD")
}
