// Package kraken adapts the Kraken public REST API.
package kraken

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"btcmetrics/pkg/market"
	"btcmetrics/pkg/provider"
)

// TypeName is the provider type this adapter registers under.
const TypeName = "kraken"

func init() {
	provider.RegisterAdapter(TypeName, New)
}

// Adapter maps canonical requests onto Kraken.
type Adapter struct {
	name string
}

// New builds the adapter for desc.
func New(desc provider.Descriptor) (provider.Adapter, error) {
	return &Adapter{name: desc.Name}, nil
}

// Pair returns the Kraken pair name for a quote currency.
func Pair(currency string) string {
	switch strings.ToLower(currency) {
	case "eur", "gbp", "cad", "jpy":
		return "XXBTZ" + strings.ToUpper(currency)
	default:
		return "XXBTZUSD"
	}
}

// TransformRequest maps price and coin requests to /Ticker and history to /OHLC.
func (a *Adapter) TransformRequest(endpoint string, params provider.Params) (string, provider.Params) {
	pair := Pair(market.Currency(params))
	switch endpoint {
	case market.EndpointSimplePrice, market.EndpointCoin:
		return "/Ticker", provider.Params{"pair": pair}
	case market.EndpointMarketChart:
		interval, _ := ohlcWindow(market.Days(params))
		return "/OHLC", provider.Params{"pair": pair, "interval": interval}
	default:
		return endpoint, params
	}
}

// TransformResponse normalizes Ticker and OHLC payloads.
func (a *Adapter) TransformResponse(body []byte, endpoint string, params provider.Params) (any, error) {
	switch endpoint {
	case market.EndpointSimplePrice, market.EndpointCoin, market.EndpointMarketChart:
	default:
		return nil, provider.Unsupported(a.name, endpoint)
	}
	pairData, err := a.result(body, endpoint)
	if err != nil {
		return nil, err
	}
	if endpoint == market.EndpointMarketChart {
		return a.ohlc(pairData, endpoint, market.Days(params))
	}

	last, err := a.decimalAt(pairData, "c.0", endpoint)
	if err != nil {
		return nil, err
	}
	volume, volErr := a.volume24h(pairData, endpoint)
	open, _ := a.decimalAt(pairData, "o", endpoint)
	change := 0.0
	if !open.IsZero() {
		change = last.Sub(open).Div(open).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
	}

	id, cur := market.CoinID(params), market.Currency(params)
	if endpoint == market.EndpointCoin {
		coin := market.NewCoinData()
		coin.MarketData.CurrentPrice[cur] = last.InexactFloat64()
		if volErr == nil {
			coin.MarketData.TotalVolume[cur] = volume.InexactFloat64()
		}
		if high, err := a.decimalAt(pairData, "h.1", endpoint); err == nil {
			coin.MarketData.High24h[cur] = high.InexactFloat64()
		}
		if low, err := a.decimalAt(pairData, "l.1", endpoint); err == nil {
			coin.MarketData.Low24h[cur] = low.InexactFloat64()
		}
		coin.MarketData.PriceChangePercentage24h = change
		return coin, nil
	}

	out := market.NewSimplePrice(id)
	out.Set(id, cur, last.InexactFloat64())
	if market.WantsVolume(params) {
		if volErr != nil {
			return nil, volErr
		}
		out.Set(id, market.VolumeKey(cur), volume.InexactFloat64())
	}
	if market.WantsChange(params) && !open.IsZero() {
		out.Set(id, market.ChangeKey(cur), change)
	}
	return out, nil
}

// result returns the single pair object under "result", whatever Kraken named it.
func (a *Adapter) result(body []byte, endpoint string) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, provider.Malformed(a.name, endpoint, "invalid json")
	}
	if errs := gjson.GetBytes(body, "error"); errs.IsArray() && len(errs.Array()) > 0 {
		return gjson.Result{}, provider.Malformed(a.name, endpoint, "api error: %s", errs.Array()[0].String())
	}
	var pair gjson.Result
	gjson.GetBytes(body, "result").ForEach(func(key, value gjson.Result) bool {
		if key.String() == "last" {
			return true
		}
		pair = value
		return false
	})
	if !pair.Exists() {
		return gjson.Result{}, provider.Malformed(a.name, endpoint, "result pair missing")
	}
	return pair, nil
}

// volume24h is the rolling 24h base volume times the 24h VWAP.
func (a *Adapter) volume24h(pair gjson.Result, endpoint string) (decimal.Decimal, error) {
	v, err := a.decimalAt(pair, "v.1", endpoint)
	if err != nil {
		return decimal.Zero, err
	}
	p, err := a.decimalAt(pair, "p.1", endpoint)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Mul(p), nil
}

// ohlc maps [time, open, high, low, close, vwap, volume, count] rows, keeping
// the most recent window.
func (a *Adapter) ohlc(pair gjson.Result, endpoint string, days int) (any, error) {
	rows := pair.Array()
	if len(rows) == 0 {
		return nil, provider.Malformed(a.name, endpoint, "no ohlc rows")
	}
	_, keep := ohlcWindow(days)
	if len(rows) > keep {
		rows = rows[len(rows)-keep:]
	}
	chart := market.MarketChart{}
	for i, row := range rows {
		fields := row.Array()
		if len(fields) < 7 {
			return nil, provider.Malformed(a.name, endpoint, "ohlc row %d has %d fields", i, len(fields))
		}
		closePrice, err := decimal.NewFromString(fields[4].String())
		if err != nil {
			return nil, provider.Malformed(a.name, endpoint, "ohlc row %d close: %v", i, err)
		}
		vwap, err := decimal.NewFromString(fields[5].String())
		if err != nil {
			return nil, provider.Malformed(a.name, endpoint, "ohlc row %d vwap: %v", i, err)
		}
		vol, err := decimal.NewFromString(fields[6].String())
		if err != nil {
			return nil, provider.Malformed(a.name, endpoint, "ohlc row %d volume: %v", i, err)
		}
		ts := float64(fields[0].Int() * 1000)
		chart.Prices = append(chart.Prices, market.Point{ts, closePrice.InexactFloat64()})
		chart.TotalVolumes = append(chart.TotalVolumes, market.Point{ts, vol.Mul(vwap).InexactFloat64()})
	}
	chart.SortByTime()
	return chart, nil
}

func (a *Adapter) decimalAt(obj gjson.Result, path, endpoint string) (decimal.Decimal, error) {
	raw := obj.Get(path)
	if !raw.Exists() {
		return decimal.Zero, provider.Malformed(a.name, endpoint, "%s missing", path)
	}
	d, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, provider.Malformed(a.name, endpoint, "%s: %v", path, err)
	}
	return d, nil
}

// ohlcWindow returns the interval in minutes and the number of rows to keep.
func ohlcWindow(days int) (int, int) {
	if days <= 1 {
		return 60, 24
	}
	return 1440, days
}
