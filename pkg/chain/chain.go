// Package chain defines the canonical blockchain endpoints and response
// shapes. The shapes follow the mempool.space REST API; other explorers
// normalize to them.
package chain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Canonical logical endpoints.
const (
	EndpointBlocks     = "/blocks"
	EndpointMempool    = "/mempool"
	EndpointFees       = "/v1/fees/recommended"
	EndpointDifficulty = "/v1/difficulty-adjustment"
	EndpointTipHeight  = "/blocks/tip/height"
	EndpointHashrate   = "/v1/mining/hashrate/3d"
)

// ErrUnknownEndpoint is returned by Decode for endpoints outside the canonical set.
var ErrUnknownEndpoint = errors.New("chain: unknown endpoint")

// Block is one entry of /blocks.
type Block struct {
	ID                string  `json:"id"`
	Height            int64   `json:"height"`
	Version           int64   `json:"version"`
	Timestamp         int64   `json:"timestamp"`
	TxCount           int     `json:"tx_count"`
	Size              int64   `json:"size"`
	Weight            int64   `json:"weight"`
	MerkleRoot        string  `json:"merkle_root"`
	PreviousBlockHash string  `json:"previousblockhash"`
	MedianTime        int64   `json:"mediantime"`
	Nonce             uint32  `json:"nonce"`
	Bits              uint32  `json:"bits"`
	Difficulty        float64 `json:"difficulty"`
}

// Time returns the block header timestamp.
func (b Block) Time() time.Time { return time.Unix(b.Timestamp, 0).UTC() }

// MempoolStats is the /mempool shape. FeeHistogram rows are [feerate, vsize].
type MempoolStats struct {
	Count        int64        `json:"count"`
	VSize        int64        `json:"vsize"`
	TotalFee     float64      `json:"total_fee"`
	FeeHistogram [][2]float64 `json:"fee_histogram"`
}

// Congestion levels by mempool virtual size.
const (
	CongestionLow    = "low"
	CongestionMedium = "medium"
	CongestionHigh   = "high"

	mediumVSize = 10_000_000
	highVSize   = 50_000_000
)

// Congestion classifies the mempool: low under 10 MvB, medium under 50 MvB.
func (m MempoolStats) Congestion() string {
	switch {
	case m.VSize < mediumVSize:
		return CongestionLow
	case m.VSize < highVSize:
		return CongestionMedium
	default:
		return CongestionHigh
	}
}

// RecommendedFees are fee rates in sat/vB.
type RecommendedFees struct {
	FastestFee  float64 `json:"fastestFee"`
	HalfHourFee float64 `json:"halfHourFee"`
	HourFee     float64 `json:"hourFee"`
	EconomyFee  float64 `json:"economyFee"`
	MinimumFee  float64 `json:"minimumFee"`
}

// DifficultyAdjustment describes progress towards the next retarget.
// Millisecond fields follow the upstream encoding.
type DifficultyAdjustment struct {
	ProgressPercent       float64 `json:"progressPercent"`
	DifficultyChange      float64 `json:"difficultyChange"`
	EstimatedRetargetDate int64   `json:"estimatedRetargetDate"`
	RemainingBlocks       int64   `json:"remainingBlocks"`
	RemainingTime         int64   `json:"remainingTime"`
	PreviousRetarget      float64 `json:"previousRetarget"`
	NextRetargetHeight    int64   `json:"nextRetargetHeight"`
	TimeAvg               int64   `json:"timeAvg"`
}

// Hashrate is network hashrate in H/s with a short trailing series.
type Hashrate struct {
	CurrentHashrate   float64         `json:"currentHashrate"`
	CurrentDifficulty float64         `json:"currentDifficulty"`
	Hashrates         []HashratePoint `json:"hashrates"`
}

// HashratePoint is one daily average; Timestamp is in seconds.
type HashratePoint struct {
	Timestamp   int64   `json:"timestamp"`
	AvgHashrate float64 `json:"avgHashrate"`
}

// RetargetAt returns the estimated retarget time.
func (d DifficultyAdjustment) RetargetAt() time.Time {
	return time.UnixMilli(d.EstimatedRetargetDate).UTC()
}

// Decode parses a canonical-shaped body for endpoint. Blocks come back
// newest first; the tip height is returned as int64.
func Decode(endpoint string, body []byte) (any, error) {
	switch endpoint {
	case EndpointBlocks:
		return DecodeBlocks(body)
	case EndpointMempool:
		var m MempoolStats
		if err := decodeObject(body, &m, "count", "vsize"); err != nil {
			return nil, err
		}
		return m, nil
	case EndpointFees:
		var f RecommendedFees
		if err := decodeObject(body, &f, "fastestFee", "hourFee"); err != nil {
			return nil, err
		}
		return f, nil
	case EndpointDifficulty:
		var d DifficultyAdjustment
		if err := decodeObject(body, &d, "progressPercent", "remainingBlocks"); err != nil {
			return nil, err
		}
		return d, nil
	case EndpointTipHeight:
		return ParseTipHeight(body)
	case EndpointHashrate:
		var h Hashrate
		if err := decodeObject(body, &h, "currentHashrate"); err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, endpoint)
	}
}

// DecodeBlocks parses a block list and orders it by descending height.
func DecodeBlocks(body []byte) ([]Block, error) {
	var blocks []Block
	if err := json.Unmarshal(body, &blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	if len(blocks) == 0 {
		return nil, errors.New("no blocks")
	}
	for i, b := range blocks {
		if b.ID == "" || b.Height <= 0 {
			return nil, fmt.Errorf("block %d missing id or height", i)
		}
	}
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Height > blocks[j].Height })
	return blocks, nil
}

// ParseTipHeight parses the plain-text tip height body.
func ParseTipHeight(body []byte) (int64, error) {
	h, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse tip height: %w", err)
	}
	if h <= 0 {
		return 0, fmt.Errorf("tip height %d out of range", h)
	}
	return h, nil
}

func decodeObject(body []byte, v any, required ...string) error {
	if !gjson.ValidBytes(body) {
		return errors.New("invalid json")
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return errors.New("expected json object")
	}
	for _, key := range required {
		if !parsed.Get(key).Exists() {
			return fmt.Errorf("%s missing", key)
		}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
