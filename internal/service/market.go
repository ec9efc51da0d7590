package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"btcmetrics/internal/cache"
	"btcmetrics/pkg/fallback"
	"btcmetrics/pkg/market"
	"btcmetrics/pkg/market/indicators"
)

// PriceReport is the current BTC price.
type PriceReport struct {
	Currency string  `json:"currency"`
	Price    float64 `json:"price"`
	Source
}

// VolumeReport is the trailing 24h traded volume in the quote currency.
type VolumeReport struct {
	Currency  string  `json:"currency"`
	Volume24h float64 `json:"volume24h"`
	Price     float64 `json:"price"`
	Source
}

// HistoryReport summarises a price series.
type HistoryReport struct {
	Currency      string             `json:"currency"`
	Days          int                `json:"days"`
	Points        []market.Point     `json:"points"`
	Open          float64            `json:"open"`
	Close         float64            `json:"close"`
	High          float64            `json:"high"`
	Low           float64            `json:"low"`
	ChangePercent float64            `json:"changePercent"`
	Indicators    indicators.Summary `json:"indicators"`
	Source
}

// Price fetches the spot price.
func (s *Service) Price(ctx context.Context, q Query) (PriceReport, error) {
	cur := q.currency()
	req := fallback.Request{
		Endpoint: market.EndpointSimplePrice,
		Params:   params(market.ParamIDs, market.DefaultCoinID, market.ParamVsCurrencies, cur),
		Skip:     q.Skip,
	}
	return fetch(ctx, s, s.market, cache.PriceKey(cur, q.Skip), cache.TTLPrice, req,
		func(res *fallback.Result, src Source) (PriceReport, error) {
			quote, err := simplePrice(res)
			if err != nil {
				return PriceReport{}, err
			}
			price, ok := quote.Price(market.DefaultCoinID, cur)
			if !ok {
				return PriceReport{}, fmt.Errorf("price: %s returned no %s quote", res.Provider, cur)
			}
			return PriceReport{Currency: cur, Price: price, Source: src}, nil
		})
}

// Volume fetches the 24h volume.
func (s *Service) Volume(ctx context.Context, q Query) (VolumeReport, error) {
	cur := q.currency()
	req := fallback.Request{
		Endpoint: market.EndpointSimplePrice,
		Params: params(market.ParamIDs, market.DefaultCoinID, market.ParamVsCurrencies, cur,
			market.ParamInclude24hVol, "true"),
		Skip: q.Skip,
	}
	return fetch(ctx, s, s.market, cache.VolumeKey(cur, q.Skip), cache.TTLPrice, req,
		func(res *fallback.Result, src Source) (VolumeReport, error) {
			quote, err := simplePrice(res)
			if err != nil {
				return VolumeReport{}, err
			}
			vol, ok := quote.Volume(market.DefaultCoinID, cur)
			if !ok {
				return VolumeReport{}, fmt.Errorf("volume: %s returned no 24h volume", res.Provider)
			}
			price, _ := quote.Price(market.DefaultCoinID, cur)
			return VolumeReport{Currency: cur, Volume24h: vol, Price: price, Source: src}, nil
		})
}

// History fetches the price series over days and computes its range.
func (s *Service) History(ctx context.Context, q Query, days int) (HistoryReport, error) {
	cur := q.currency()
	if days < 1 {
		days = market.DefaultHistoryDays
	}
	req := fallback.Request{
		Endpoint: market.EndpointMarketChart,
		Params:   params(market.ParamVsCurrency, cur, market.ParamDays, days),
		Skip:     q.Skip,
	}
	return fetch(ctx, s, s.market, cache.HistoryKey(cur, days, q.Skip), cache.TTLHistory, req,
		func(res *fallback.Result, src Source) (HistoryReport, error) {
			chart, ok := res.Data.(market.MarketChart)
			if !ok {
				return HistoryReport{}, fmt.Errorf("history: unexpected result type %T from %s", res.Data, res.Provider)
			}
			if len(chart.Prices) == 0 {
				return HistoryReport{}, fmt.Errorf("history: %s returned no prices", res.Provider)
			}
			return summarise(chart.Prices, cur, days, src), nil
		})
}

func summarise(points []market.Point, cur string, days int, src Source) HistoryReport {
	r := HistoryReport{
		Currency:   cur,
		Days:       days,
		Points:     points,
		Open:       points[0][1],
		Close:      points[len(points)-1][1],
		High:       points[0][1],
		Low:        points[0][1],
		Indicators: indicators.Summarize(points),
		Source:     src,
	}
	for _, p := range points[1:] {
		r.High = max(r.High, p[1])
		r.Low = min(r.Low, p[1])
	}
	if r.Open != 0 {
		open := decimal.NewFromFloat(r.Open)
		r.ChangePercent = decimal.NewFromFloat(r.Close).Sub(open).Div(open).
			Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return r
}

func simplePrice(res *fallback.Result) (market.SimplePrice, error) {
	quote, ok := res.Data.(market.SimplePrice)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T from %s", res.Data, res.Provider)
	}
	return quote, nil
}
