// Package coinapi adapts the CoinAPI REST v1 API. Spot price comes from the
// exchange-rate endpoint; volume and history come from daily Bitstamp OHLCV.
package coinapi

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"btcmetrics/pkg/market"
	"btcmetrics/pkg/provider"
)

const (
	// TypeName is the provider type this adapter registers under.
	TypeName = "coinapi"

	symbolID       = "BITSTAMP_SPOT_BTC_USD"
	ohlcvLatest    = "/ohlcv/" + symbolID + "/latest"
	exchangeRateEP = "/exchangerate/BTC/"
)

func init() {
	provider.RegisterAdapter(TypeName, New)
}

// Adapter maps canonical requests onto CoinAPI.
type Adapter struct {
	name string
}

// New builds the adapter for desc.
func New(desc provider.Descriptor) (provider.Adapter, error) {
	return &Adapter{name: desc.Name}, nil
}

type candle struct {
	TimePeriodStart string          `json:"time_period_start"`
	PriceClose      decimal.Decimal `json:"price_close"`
	VolumeTraded    decimal.Decimal `json:"volume_traded"`
}

// TransformRequest maps price, volume and history requests.
func (a *Adapter) TransformRequest(endpoint string, params provider.Params) (string, provider.Params) {
	switch endpoint {
	case market.EndpointSimplePrice:
		if market.WantsVolume(params) {
			return ohlcvLatest, provider.Params{"period_id": "1DAY", "limit": 1}
		}
		return exchangeRateEP + strings.ToUpper(market.Currency(params)), provider.Params{}
	case market.EndpointMarketChart:
		period, limit := historyWindow(market.Days(params))
		return ohlcvLatest, provider.Params{"period_id": period, "limit": limit}
	default:
		return endpoint, params
	}
}

// TransformResponse normalizes exchange-rate and OHLCV payloads.
func (a *Adapter) TransformResponse(body []byte, endpoint string, params provider.Params) (any, error) {
	switch endpoint {
	case market.EndpointSimplePrice:
		if market.WantsVolume(params) {
			return a.volume(body, endpoint, params)
		}
		return a.rate(body, endpoint, params)
	case market.EndpointMarketChart:
		return a.history(body, endpoint)
	default:
		return nil, provider.Unsupported(a.name, endpoint)
	}
}

func (a *Adapter) rate(body []byte, endpoint string, params provider.Params) (any, error) {
	rate := gjson.GetBytes(body, "rate")
	if !rate.Exists() {
		return nil, provider.Malformed(a.name, endpoint, "rate missing")
	}
	id, cur := market.CoinID(params), market.Currency(params)
	out := market.NewSimplePrice(id)
	out.Set(id, cur, rate.Float())
	return out, nil
}

// volume reports the latest daily candle: close as price and base volume
// converted to quote volume at the close.
func (a *Adapter) volume(body []byte, endpoint string, params provider.Params) (any, error) {
	candles, err := a.decode(body, endpoint)
	if err != nil {
		return nil, err
	}
	latest := candles[0]
	id, cur := market.CoinID(params), market.Currency(params)
	out := market.NewSimplePrice(id)
	out.Set(id, cur, latest.PriceClose.InexactFloat64())
	out.Set(id, market.VolumeKey(cur), latest.VolumeTraded.Mul(latest.PriceClose).InexactFloat64())
	return out, nil
}

func (a *Adapter) history(body []byte, endpoint string) (any, error) {
	candles, err := a.decode(body, endpoint)
	if err != nil {
		return nil, err
	}
	chart := market.MarketChart{}
	for _, c := range candles {
		ts, err := time.Parse(time.RFC3339, c.TimePeriodStart)
		if err != nil {
			return nil, provider.Malformed(a.name, endpoint, "time_period_start %q: %v", c.TimePeriodStart, err)
		}
		ms := float64(ts.UnixMilli())
		chart.Prices = append(chart.Prices, market.Point{ms, c.PriceClose.InexactFloat64()})
		chart.TotalVolumes = append(chart.TotalVolumes, market.Point{ms, c.VolumeTraded.Mul(c.PriceClose).InexactFloat64()})
	}
	chart.SortByTime()
	return chart, nil
}

func (a *Adapter) decode(body []byte, endpoint string) ([]candle, error) {
	var candles []candle
	if err := json.Unmarshal(body, &candles); err != nil {
		return nil, provider.Malformed(a.name, endpoint, "decode ohlcv: %v", err)
	}
	if len(candles) == 0 {
		return nil, provider.Malformed(a.name, endpoint, "no ohlcv periods")
	}
	return candles, nil
}

func historyWindow(days int) (string, int) {
	if days <= 1 {
		return "1HRS", 24
	}
	return "1DAY", days
}
