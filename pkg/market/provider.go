// Package market defines the canonical market-data endpoints and response
// shapes every exchange adapter normalizes to. The shapes follow the
// CoinGecko API so that pass-through providers need no remapping.
package market

import (
	"sort"
	"strings"

	"btcmetrics/pkg/provider"
)

// Canonical logical endpoints.
const (
	EndpointSimplePrice = "/simple/price"
	EndpointCoin        = "/coins/bitcoin"
	EndpointMarketChart = "/coins/bitcoin/market_chart"
	EndpointTickers     = "/coins/bitcoin/tickers"
)

// Canonical parameter names and defaults.
const (
	ParamIDs            = "ids"
	ParamVsCurrencies   = "vs_currencies"
	ParamInclude24hVol  = "include_24hr_vol"
	ParamInclude24hChg  = "include_24hr_change"
	ParamIncludeMktCap  = "include_market_cap"
	ParamVsCurrency     = "vs_currency"
	ParamDays           = "days"
	DefaultCoinID       = "bitcoin"
	DefaultCurrency     = "usd"
	DefaultHistoryDays  = 7
	volumeSuffix        = "_24h_vol"
	changeSuffix        = "_24h_change"
	marketCapSuffix     = "_market_cap"
)

// SimplePrice is the /simple/price shape: coin id -> field -> value, e.g.
// {"bitcoin": {"usd": 43250.1, "usd_24h_vol": 2.1e10}}.
type SimplePrice map[string]map[string]float64

// NewSimplePrice returns a SimplePrice holding one quote.
func NewSimplePrice(id string) SimplePrice {
	return SimplePrice{id: map[string]float64{}}
}

// Set stores value under id/key.
func (s SimplePrice) Set(id, key string, value float64) {
	if s[id] == nil {
		s[id] = map[string]float64{}
	}
	s[id][key] = value
}

// Price returns the price of id in currency.
func (s SimplePrice) Price(id, currency string) (float64, bool) {
	v, ok := s[id][strings.ToLower(currency)]
	return v, ok
}

// Volume returns the 24h volume of id in currency.
func (s SimplePrice) Volume(id, currency string) (float64, bool) {
	v, ok := s[id][strings.ToLower(currency)+volumeSuffix]
	return v, ok
}

// Change returns the 24h percentage change of id in currency.
func (s SimplePrice) Change(id, currency string) (float64, bool) {
	v, ok := s[id][strings.ToLower(currency)+changeSuffix]
	return v, ok
}

// MarketCap returns the market capitalisation of id in currency.
func (s SimplePrice) MarketCap(id, currency string) (float64, bool) {
	v, ok := s[id][strings.ToLower(currency)+marketCapSuffix]
	return v, ok
}

// VolumeKey, ChangeKey and MarketCapKey name the auxiliary fields for currency.
func VolumeKey(currency string) string    { return strings.ToLower(currency) + volumeSuffix }
func ChangeKey(currency string) string    { return strings.ToLower(currency) + changeSuffix }
func MarketCapKey(currency string) string { return strings.ToLower(currency) + marketCapSuffix }

// CoinData is the /coins/bitcoin shape, reduced to the market block.
type CoinData struct {
	ID         string         `json:"id"`
	Symbol     string         `json:"symbol"`
	Name       string         `json:"name"`
	MarketData CoinMarketData `json:"market_data"`
}

// CoinMarketData holds per-currency market figures.
type CoinMarketData struct {
	CurrentPrice             map[string]float64 `json:"current_price"`
	MarketCap                map[string]float64 `json:"market_cap"`
	TotalVolume              map[string]float64 `json:"total_volume"`
	High24h                  map[string]float64 `json:"high_24h"`
	Low24h                   map[string]float64 `json:"low_24h"`
	PriceChangePercentage24h float64            `json:"price_change_percentage_24h"`
	CirculatingSupply        float64            `json:"circulating_supply"`
	MaxSupply                float64            `json:"max_supply"`
	LastUpdated              string             `json:"last_updated,omitempty"`
}

// NewCoinData returns an empty bitcoin CoinData with allocated maps.
func NewCoinData() CoinData {
	return CoinData{
		ID:     DefaultCoinID,
		Symbol: "btc",
		Name:   "Bitcoin",
		MarketData: CoinMarketData{
			CurrentPrice: map[string]float64{},
			MarketCap:    map[string]float64{},
			TotalVolume:  map[string]float64{},
			High24h:      map[string]float64{},
			Low24h:       map[string]float64{},
		},
	}
}

// Point is a [timestamp_ms, value] pair.
type Point [2]float64

// MarketChart is the /coins/bitcoin/market_chart shape.
type MarketChart struct {
	Prices       []Point `json:"prices"`
	MarketCaps   []Point `json:"market_caps"`
	TotalVolumes []Point `json:"total_volumes"`
}

// SortByTime orders every series by timestamp ascending.
func (m *MarketChart) SortByTime() {
	for _, series := range [][]Point{m.Prices, m.MarketCaps, m.TotalVolumes} {
		sort.SliceStable(series, func(i, j int) bool { return series[i][0] < series[j][0] })
	}
}

// Tickers is the /coins/bitcoin/tickers shape.
type Tickers struct {
	Name    string   `json:"name"`
	Tickers []Ticker `json:"tickers"`
}

// Ticker is one exchange market quoting bitcoin.
type Ticker struct {
	Base            string             `json:"base"`
	Target          string             `json:"target"`
	Market          TickerMarket       `json:"market"`
	Last            float64            `json:"last"`
	Volume          float64            `json:"volume"`
	ConvertedLast   map[string]float64 `json:"converted_last,omitempty"`
	ConvertedVolume map[string]float64 `json:"converted_volume,omitempty"`
}

// TickerMarket names the exchange of a ticker.
type TickerMarket struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

// CoinID returns the requested coin id, defaulting to bitcoin.
func CoinID(params provider.Params) string {
	return firstOf(params.String(ParamIDs, DefaultCoinID), DefaultCoinID)
}

// Currencies returns the requested quote currencies, lower-cased, defaulting to usd.
func Currencies(params provider.Params) []string {
	raw := params.String(ParamVsCurrencies, params.String(ParamVsCurrency, DefaultCurrency))
	var out []string
	for _, c := range strings.Split(raw, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{DefaultCurrency}
	}
	return out
}

// Currency returns the first requested quote currency.
func Currency(params provider.Params) string {
	return Currencies(params)[0]
}

// WantsVolume reports whether the request asks for 24h volume.
func WantsVolume(params provider.Params) bool { return params.Bool(ParamInclude24hVol) }

// WantsChange reports whether the request asks for the 24h change.
func WantsChange(params provider.Params) bool { return params.Bool(ParamInclude24hChg) }

// Days returns the requested history length in days.
func Days(params provider.Params) int {
	d := params.Int(ParamDays, DefaultHistoryDays)
	if d < 1 {
		return 1
	}
	return d
}

// LookupCurrency returns values[currency], falling back to usd when the exact
// key is absent. Keys are matched case-insensitively.
func LookupCurrency(values map[string]float64, currency string) (float64, bool) {
	if v, ok := values[strings.ToLower(currency)]; ok {
		return v, true
	}
	if v, ok := values[strings.ToUpper(currency)]; ok {
		return v, true
	}
	if v, ok := values[DefaultCurrency]; ok {
		return v, true
	}
	v, ok := values[strings.ToUpper(DefaultCurrency)]
	return v, ok
}

func firstOf(csv, fallback string) string {
	for _, part := range strings.Split(csv, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			return p
		}
	}
	return fallback
}
