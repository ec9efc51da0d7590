package main

import (
	"context"

	"github.com/spf13/cobra"

	"btcmetrics/internal/service"
)

func newBlocksCmd(a *app) *cobra.Command {
	var limit int
	cmd := newMetricCmd(a, "blocks", "Most recent blocks", func(ctx context.Context, a *app) (any, error) {
		return a.service.Blocks(ctx, a.query(""), limit)
	})
	cmd.Flags().IntVar(&limit, "limit", service.DefaultBlockLimit, "number of blocks to show")
	return cmd
}

func newMempoolCmd(a *app) *cobra.Command {
	return newMetricCmd(a, "mempool", "Mempool size and congestion", func(ctx context.Context, a *app) (any, error) {
		return a.service.Mempool(ctx, a.query(""))
	})
}

func newFeesCmd(a *app) *cobra.Command {
	return newMetricCmd(a, "fees", "Recommended fee rates in sat/vB", func(ctx context.Context, a *app) (any, error) {
		return a.service.Fees(ctx, a.query(""))
	})
}

func newHashrateCmd(a *app) *cobra.Command {
	return newMetricCmd(a, "hashrate", "Network hashrate", func(ctx context.Context, a *app) (any, error) {
		return a.service.Hashrate(ctx, a.query(""))
	})
}

func newDifficultyCmd(a *app) *cobra.Command {
	return newMetricCmd(a, "difficulty", "Progress to the next difficulty adjustment", func(ctx context.Context, a *app) (any, error) {
		return a.service.Difficulty(ctx, a.query(""))
	})
}

func newHalvingCmd(a *app) *cobra.Command {
	return newMetricCmd(a, "halving", "Countdown to the next subsidy halving", func(ctx context.Context, a *app) (any, error) {
		return a.service.Halving(ctx, a.query(""))
	})
}
