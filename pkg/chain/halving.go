package chain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Consensus constants for the subsidy schedule.
const (
	HalvingInterval    = 210_000
	TargetBlockSpacing = 10 * time.Minute
	InitialSubsidy     = 50
)

// Halving describes the subsidy epoch at a given height.
type Halving struct {
	CurrentHeight   int64           `json:"currentHeight"`
	Epoch           int64           `json:"epoch"`
	NextHeight      int64           `json:"nextHalvingHeight"`
	BlocksRemaining int64           `json:"blocksRemaining"`
	CurrentSubsidy  decimal.Decimal `json:"currentSubsidy"`
	NextSubsidy     decimal.Decimal `json:"nextSubsidy"`
	EstimatedAt     time.Time       `json:"estimatedDate"`
	ProgressPercent float64         `json:"progressPercent"`
}

// NextHalving computes the halving countdown from height, estimating the
// date from now at the target block spacing.
func NextHalving(height int64, now time.Time) Halving {
	if height < 0 {
		height = 0
	}
	epoch := height / HalvingInterval
	next := (epoch + 1) * HalvingInterval
	remaining := next - height
	done := height - epoch*HalvingInterval
	return Halving{
		CurrentHeight:   height,
		Epoch:           epoch,
		NextHeight:      next,
		BlocksRemaining: remaining,
		CurrentSubsidy:  Subsidy(epoch),
		NextSubsidy:     Subsidy(epoch + 1),
		EstimatedAt:     now.Add(time.Duration(remaining) * TargetBlockSpacing).UTC(),
		ProgressPercent: decimal.NewFromInt(done).Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(HalvingInterval)).Round(2).InexactFloat64(),
	}
}

// Subsidy returns the block reward in BTC for epoch, exact to the satoshi.
func Subsidy(epoch int64) decimal.Decimal {
	if epoch >= 64 {
		return decimal.Zero
	}
	sats := int64(InitialSubsidy*100_000_000) >> uint(epoch)
	return decimal.New(sats, -8)
}
