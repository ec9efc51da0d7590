package main

import (
	"context"

	"github.com/spf13/cobra"

	"btcmetrics/internal/cli"
)

func newHealthCmd(a *app) *cobra.Command {
	return newMetricCmd(a, "health", "Probe every configured provider", func(ctx context.Context, a *app) (any, error) {
		market := a.svcCtx.Market.Health
		chain := a.svcCtx.Chain.Health
		rows := cli.HealthRows("market", market.CheckAll(ctx), market.Snapshot())
		rows = append(rows, cli.HealthRows("chain", chain.CheckAll(ctx), chain.Snapshot())...)
		return rows, nil
	})
}
