// Package indicators summarises the trend of a price series.
package indicators

import (
	"math"

	"btcmetrics/pkg/market"
)

const (
	MAPeriod  = 20
	RSIPeriod = 14
)

// Summary holds the latest value of each indicator. A nil field means the
// series was too short for that indicator.
type Summary struct {
	SMA *float64 `json:"sma20,omitempty"`
	EMA *float64 `json:"ema20,omitempty"`
	RSI *float64 `json:"rsi14,omitempty"`
}

// Summarize computes SMA(20), EMA(20) and RSI(14) over the point values.
func Summarize(points []market.Point) Summary {
	values := Values(points)
	return Summary{
		SMA: last(SMA(values, MAPeriod)),
		EMA: last(EMA(values, MAPeriod)),
		RSI: last(RSI(values, RSIPeriod)),
	}
}

// Values drops the timestamps.
func Values(points []market.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p[1]
	}
	return out
}

// SMA is the simple moving average; entries before the first full window are NaN.
func SMA(values []float64, period int) []float64 {
	out := nans(len(values))
	if period <= 0 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA is the exponential moving average seeded with the SMA of the first window.
func EMA(values []float64, period int) []float64 {
	out := nans(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	out[period-1] = seed / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// RSI is Wilder's relative strength index.
func RSI(values []float64, period int) []float64 {
	out := nans(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		gain += math.Max(d, 0)
		loss += math.Max(-d, 0)
	}
	n := float64(period)
	gain /= n
	loss /= n
	out[period] = strength(gain, loss)

	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		gain = (gain*(n-1) + math.Max(d, 0)) / n
		loss = (loss*(n-1) + math.Max(-d, 0)) / n
		out[i] = strength(gain, loss)
	}
	return out
}

func strength(gain, loss float64) float64 {
	switch {
	case gain == 0 && loss == 0:
		return 50
	case loss == 0:
		return 100
	default:
		return 100 - 100/(1+gain/loss)
	}
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func last(series []float64) *float64 {
	if len(series) == 0 || math.IsNaN(series[len(series)-1]) {
		return nil
	}
	v := series[len(series)-1]
	return &v
}
