// Package binance adapts the Binance spot v3 public API.
package binance

import (
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"btcmetrics/pkg/market"
	"btcmetrics/pkg/provider"
)

// TypeName is the provider type this adapter registers under.
const TypeName = "binance"

func init() {
	provider.RegisterAdapter(TypeName, New)
}

// Adapter maps canonical requests onto Binance.
type Adapter struct {
	name string
}

// New builds the adapter for desc.
func New(desc provider.Descriptor) (provider.Adapter, error) {
	return &Adapter{name: desc.Name}, nil
}

type tickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type ticker24h struct {
	Symbol             string          `json:"symbol"`
	LastPrice          decimal.Decimal `json:"lastPrice"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	HighPrice          decimal.Decimal `json:"highPrice"`
	LowPrice           decimal.Decimal `json:"lowPrice"`
	QuoteVolume        decimal.Decimal `json:"quoteVolume"`
}

// Symbol returns the BTC trading pair for a quote currency; USD maps to USDT.
func Symbol(currency string) string {
	switch strings.ToLower(currency) {
	case "eur", "gbp", "try", "brl", "jpy":
		return "BTC" + strings.ToUpper(currency)
	default:
		return "BTCUSDT"
	}
}

// TransformRequest maps price, coin and history requests to ticker and kline endpoints.
func (a *Adapter) TransformRequest(endpoint string, params provider.Params) (string, provider.Params) {
	symbol := Symbol(market.Currency(params))
	switch endpoint {
	case market.EndpointSimplePrice:
		if market.WantsVolume(params) || market.WantsChange(params) {
			return "/ticker/24hr", provider.Params{"symbol": symbol}
		}
		return "/ticker/price", provider.Params{"symbol": symbol}
	case market.EndpointCoin:
		return "/ticker/24hr", provider.Params{"symbol": symbol}
	case market.EndpointMarketChart:
		interval, limit := klineWindow(market.Days(params))
		return "/klines", provider.Params{"symbol": symbol, "interval": interval, "limit": limit}
	default:
		return endpoint, params
	}
}

// TransformResponse decodes string-encoded Binance numbers into canonical shapes.
func (a *Adapter) TransformResponse(body []byte, endpoint string, params provider.Params) (any, error) {
	id, cur := market.CoinID(params), market.Currency(params)
	switch endpoint {
	case market.EndpointSimplePrice:
		if market.WantsVolume(params) || market.WantsChange(params) {
			t, err := a.decode24h(body, endpoint)
			if err != nil {
				return nil, err
			}
			out := market.NewSimplePrice(id)
			out.Set(id, cur, t.LastPrice.InexactFloat64())
			out.Set(id, market.VolumeKey(cur), t.QuoteVolume.InexactFloat64())
			out.Set(id, market.ChangeKey(cur), t.PriceChangePercent.InexactFloat64())
			return out, nil
		}
		var tp tickerPrice
		if err := json.Unmarshal(body, &tp); err != nil {
			return nil, provider.Malformed(a.name, endpoint, "decode ticker price: %v", err)
		}
		if tp.Symbol == "" && tp.Price.IsZero() {
			return nil, provider.Malformed(a.name, endpoint, "price missing")
		}
		out := market.NewSimplePrice(id)
		out.Set(id, cur, tp.Price.InexactFloat64())
		return out, nil
	case market.EndpointCoin:
		t, err := a.decode24h(body, endpoint)
		if err != nil {
			return nil, err
		}
		coin := market.NewCoinData()
		coin.MarketData.CurrentPrice[cur] = t.LastPrice.InexactFloat64()
		coin.MarketData.TotalVolume[cur] = t.QuoteVolume.InexactFloat64()
		coin.MarketData.High24h[cur] = t.HighPrice.InexactFloat64()
		coin.MarketData.Low24h[cur] = t.LowPrice.InexactFloat64()
		coin.MarketData.PriceChangePercentage24h = t.PriceChangePercent.InexactFloat64()
		return coin, nil
	case market.EndpointMarketChart:
		return a.klines(body, endpoint)
	default:
		return nil, provider.Unsupported(a.name, endpoint)
	}
}

func (a *Adapter) decode24h(body []byte, endpoint string) (ticker24h, error) {
	var t ticker24h
	if err := json.Unmarshal(body, &t); err != nil {
		return t, provider.Malformed(a.name, endpoint, "decode 24h ticker: %v", err)
	}
	if t.Symbol == "" {
		return t, provider.Malformed(a.name, endpoint, "24h ticker missing symbol")
	}
	return t, nil
}

// klines maps [openTime, open, high, low, close, volume, closeTime, quoteVolume, ...] rows.
func (a *Adapter) klines(body []byte, endpoint string) (any, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, provider.Malformed(a.name, endpoint, "decode klines: %v", err)
	}
	if len(rows) == 0 {
		return nil, provider.Malformed(a.name, endpoint, "no klines")
	}
	chart := market.MarketChart{}
	for i, row := range rows {
		if len(row) < 8 {
			return nil, provider.Malformed(a.name, endpoint, "kline %d has %d fields", i, len(row))
		}
		var openTime int64
		var closePrice, quoteVolume decimal.Decimal
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, provider.Malformed(a.name, endpoint, "kline %d open time: %v", i, err)
		}
		if err := json.Unmarshal(row[4], &closePrice); err != nil {
			return nil, provider.Malformed(a.name, endpoint, "kline %d close: %v", i, err)
		}
		if err := json.Unmarshal(row[7], &quoteVolume); err != nil {
			return nil, provider.Malformed(a.name, endpoint, "kline %d quote volume: %v", i, err)
		}
		ts := float64(openTime)
		chart.Prices = append(chart.Prices, market.Point{ts, closePrice.InexactFloat64()})
		chart.TotalVolumes = append(chart.TotalVolumes, market.Point{ts, quoteVolume.InexactFloat64()})
	}
	chart.SortByTime()
	return chart, nil
}

func klineWindow(days int) (string, int) {
	if days <= 1 {
		return "1h", 24
	}
	if days > 1000 {
		days = 1000
	}
	return "1d", days
}
