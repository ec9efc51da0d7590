package chain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBlocksSortsByHeight(t *testing.T) {
	body := []byte(`[
		{"id":"a","height":839998,"timestamp":1713560000,"tx_count":3000},
		{"id":"c","height":840000,"timestamp":1713571767,"tx_count":3050},
		{"id":"b","height":839999,"timestamp":1713570000,"tx_count":2900}
	]`)
	blocks, err := DecodeBlocks(body)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, []int64{840000, 839999, 839998}, []int64{blocks[0].Height, blocks[1].Height, blocks[2].Height})
	assert.Equal(t, time.Date(2024, 4, 20, 0, 9, 27, 0, time.UTC), blocks[0].Time())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		body     string
	}{
		{name: "empty blocks", endpoint: EndpointBlocks, body: `[]`},
		{name: "block without id", endpoint: EndpointBlocks, body: `[{"height":1}]`},
		{name: "mempool array", endpoint: EndpointMempool, body: `[]`},
		{name: "mempool missing vsize", endpoint: EndpointMempool, body: `{"count":1}`},
		{name: "fees invalid", endpoint: EndpointFees, body: `{`},
		{name: "difficulty empty", endpoint: EndpointDifficulty, body: `{}`},
		{name: "tip not a number", endpoint: EndpointTipHeight, body: `<html>`},
		{name: "tip zero", endpoint: EndpointTipHeight, body: `0`},
		{name: "hashrate missing current", endpoint: EndpointHashrate, body: `{"hashrates":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.endpoint, []byte(tt.body))
			require.Error(t, err)
		})
	}

	_, err := Decode("/address/x", []byte(`{}`))
	require.True(t, errors.Is(err, ErrUnknownEndpoint))
}

func TestDecodeShapes(t *testing.T) {
	out, err := Decode(EndpointTipHeight, []byte("840000\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(840000), out)

	out, err = Decode(EndpointFees, []byte(`{"fastestFee":25,"halfHourFee":20,"hourFee":15,"economyFee":8,"minimumFee":4}`))
	require.NoError(t, err)
	assert.Equal(t, RecommendedFees{FastestFee: 25, HalfHourFee: 20, HourFee: 15, EconomyFee: 8, MinimumFee: 4}, out)

	out, err = Decode(EndpointMempool, []byte(`{"count":52000,"vsize":24000000,"total_fee":0.85,"fee_histogram":[[30.5,120000],[12,450000]]}`))
	require.NoError(t, err)
	m := out.(MempoolStats)
	assert.Equal(t, int64(24000000), m.VSize)
	assert.Equal(t, [2]float64{30.5, 120000}, m.FeeHistogram[0])
}

func TestDecodeHashrate(t *testing.T) {
	out, err := Decode(EndpointHashrate, []byte(`{"hashrates":[{"timestamp":1713484800,"avgHashrate":6.1e20}],"difficulty":[],"currentHashrate":6.3e20,"currentDifficulty":86388558925171.02}`))
	require.NoError(t, err)
	h := out.(Hashrate)
	assert.Equal(t, 6.3e20, h.CurrentHashrate)
	require.Len(t, h.Hashrates, 1)
	assert.Equal(t, int64(1713484800), h.Hashrates[0].Timestamp)
}

func TestCongestion(t *testing.T) {
	tests := []struct {
		vsize int64
		want  string
	}{
		{0, CongestionLow},
		{9_999_999, CongestionLow},
		{10_000_000, CongestionMedium},
		{49_999_999, CongestionMedium},
		{50_000_000, CongestionHigh},
		{300_000_000, CongestionHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MempoolStats{VSize: tt.vsize}.Congestion(), "vsize=%d", tt.vsize)
	}
}

func TestNextHalving(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	h := NextHalving(839_000, now)
	assert.Equal(t, int64(3), h.Epoch)
	assert.Equal(t, int64(840_000), h.NextHeight)
	assert.Equal(t, int64(1_000), h.BlocksRemaining)
	assert.Equal(t, "6.25", h.CurrentSubsidy.String())
	assert.Equal(t, "3.125", h.NextSubsidy.String())
	assert.Equal(t, now.Add(10_000*time.Minute), h.EstimatedAt)
	assert.Equal(t, 99.52, h.ProgressPercent)

	// exactly on a halving block the next epoch has started
	h = NextHalving(840_000, now)
	assert.Equal(t, int64(4), h.Epoch)
	assert.Equal(t, int64(1_050_000), h.NextHeight)
	assert.Equal(t, int64(210_000), h.BlocksRemaining)
	assert.Equal(t, 0.0, h.ProgressPercent)
}

func TestSubsidy(t *testing.T) {
	assert.Equal(t, "50", Subsidy(0).String())
	assert.Equal(t, "0.78125", Subsidy(6).String())
	assert.Equal(t, "0.00000001", Subsidy(32).String())
	assert.True(t, Subsidy(33).IsZero())
	assert.True(t, Subsidy(64).IsZero())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, 1, cfg.Providers["mempoolspace"].Priority)
	assert.Equal(t, 2, cfg.Providers["blockstream"].Priority)
	assert.Equal(t, "https://blockstream.info/api", cfg.Providers["blockstream"].BaseURL)
}
