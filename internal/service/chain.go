package service

import (
	"context"
	"fmt"

	"btcmetrics/internal/cache"
	"btcmetrics/pkg/chain"
	"btcmetrics/pkg/fallback"
)

// DefaultBlockLimit is how many recent blocks the blocks command shows.
const DefaultBlockLimit = 10

// BlocksReport lists recent blocks, newest first.
type BlocksReport struct {
	Blocks []chain.Block `json:"blocks"`
	Source
}

// MempoolReport is mempool size with a congestion level.
type MempoolReport struct {
	chain.MempoolStats
	Congestion string `json:"congestion"`
	Source
}

// FeesReport holds recommended fee rates in sat/vB.
type FeesReport struct {
	chain.RecommendedFees
	Source
}

// DifficultyReport describes progress to the next retarget.
type DifficultyReport struct {
	chain.DifficultyAdjustment
	Source
}

// HalvingReport is the countdown to the next subsidy halving.
type HalvingReport struct {
	chain.Halving
	Source
}

// HashrateReport is the current network hashrate in H/s.
type HashrateReport struct {
	chain.Hashrate
	Source
}

// Blocks fetches the most recent blocks, at most limit of them.
func (s *Service) Blocks(ctx context.Context, q Query, limit int) (BlocksReport, error) {
	if limit < 1 {
		limit = DefaultBlockLimit
	}
	req := fallback.Request{Endpoint: chain.EndpointBlocks, Skip: q.Skip}
	report, err := fetch(ctx, s, s.chain, cache.ChainKey(chain.EndpointBlocks, q.Skip), cache.TTLChain, req,
		func(res *fallback.Result, src Source) (BlocksReport, error) {
			blocks, ok := res.Data.([]chain.Block)
			if !ok {
				return BlocksReport{}, unexpected("blocks", res)
			}
			return BlocksReport{Blocks: blocks, Source: src}, nil
		})
	if err != nil {
		return BlocksReport{}, err
	}
	if len(report.Blocks) > limit {
		// the cached slice is shared; copy before trimming
		report.Blocks = append([]chain.Block(nil), report.Blocks[:limit]...)
	}
	return report, nil
}

// Mempool fetches mempool statistics.
func (s *Service) Mempool(ctx context.Context, q Query) (MempoolReport, error) {
	req := fallback.Request{Endpoint: chain.EndpointMempool, Skip: q.Skip}
	return fetch(ctx, s, s.chain, cache.ChainKey(chain.EndpointMempool, q.Skip), cache.TTLChain, req,
		func(res *fallback.Result, src Source) (MempoolReport, error) {
			stats, ok := res.Data.(chain.MempoolStats)
			if !ok {
				return MempoolReport{}, unexpected("mempool", res)
			}
			return MempoolReport{MempoolStats: stats, Congestion: stats.Congestion(), Source: src}, nil
		})
}

// Fees fetches recommended fee rates.
func (s *Service) Fees(ctx context.Context, q Query) (FeesReport, error) {
	req := fallback.Request{Endpoint: chain.EndpointFees, Skip: q.Skip}
	return fetch(ctx, s, s.chain, cache.ChainKey(chain.EndpointFees, q.Skip), cache.TTLChain, req,
		func(res *fallback.Result, src Source) (FeesReport, error) {
			fees, ok := res.Data.(chain.RecommendedFees)
			if !ok {
				return FeesReport{}, unexpected("fees", res)
			}
			return FeesReport{RecommendedFees: fees, Source: src}, nil
		})
}

// Difficulty fetches the difficulty adjustment estimate.
func (s *Service) Difficulty(ctx context.Context, q Query) (DifficultyReport, error) {
	req := fallback.Request{Endpoint: chain.EndpointDifficulty, Skip: q.Skip}
	return fetch(ctx, s, s.chain, cache.ChainKey(chain.EndpointDifficulty, q.Skip), cache.TTLChain, req,
		func(res *fallback.Result, src Source) (DifficultyReport, error) {
			d, ok := res.Data.(chain.DifficultyAdjustment)
			if !ok {
				return DifficultyReport{}, unexpected("difficulty", res)
			}
			return DifficultyReport{DifficultyAdjustment: d, Source: src}, nil
		})
}

// Halving fetches the tip height and computes the halving countdown.
func (s *Service) Halving(ctx context.Context, q Query) (HalvingReport, error) {
	req := fallback.Request{Endpoint: chain.EndpointTipHeight, Skip: q.Skip}
	return fetch(ctx, s, s.chain, cache.ChainKey(chain.EndpointTipHeight, q.Skip), cache.TTLChain, req,
		func(res *fallback.Result, src Source) (HalvingReport, error) {
			height, ok := res.Data.(int64)
			if !ok {
				return HalvingReport{}, unexpected("halving", res)
			}
			return HalvingReport{Halving: chain.NextHalving(height, s.now()), Source: src}, nil
		})
}

// Hashrate fetches the network hashrate. Only mempool.space serves it.
func (s *Service) Hashrate(ctx context.Context, q Query) (HashrateReport, error) {
	req := fallback.Request{Endpoint: chain.EndpointHashrate, Skip: q.Skip}
	return fetch(ctx, s, s.chain, cache.ChainKey(chain.EndpointHashrate, q.Skip), cache.TTLChain, req,
		func(res *fallback.Result, src Source) (HashrateReport, error) {
			h, ok := res.Data.(chain.Hashrate)
			if !ok {
				return HashrateReport{}, unexpected("hashrate", res)
			}
			return HashrateReport{Hashrate: h, Source: src}, nil
		})
}

func unexpected(what string, res *fallback.Result) error {
	return fmt.Errorf("%s: unexpected result type %T from %s", what, res.Data, res.Provider)
}
