package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const defaultHistoryDays = 7

func addCurrencyFlag(cmd *cobra.Command, currency *string) {
	cmd.Flags().StringVar(currency, "currency", "usd", "quote currency (usd, eur, gbp, ...)")
}

func newPriceCmd(a *app) *cobra.Command {
	var currency string
	cmd := newMetricCmd(a, "price", "Current BTC price", func(ctx context.Context, a *app) (any, error) {
		return a.service.Price(ctx, a.query(currency))
	})
	addCurrencyFlag(cmd, &currency)
	return cmd
}

func newVolumeCmd(a *app) *cobra.Command {
	var currency string
	cmd := newMetricCmd(a, "volume", "24h BTC trading volume", func(ctx context.Context, a *app) (any, error) {
		return a.service.Volume(ctx, a.query(currency))
	})
	addCurrencyFlag(cmd, &currency)
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		currency string
		days     int
	)
	cmd := newMetricCmd(a, "history", "BTC price history over the last N days", func(ctx context.Context, a *app) (any, error) {
		if days < 1 {
			return nil, fmt.Errorf("--days must be at least 1, got %d", days)
		}
		return a.service.History(ctx, a.query(currency), days)
	})
	addCurrencyFlag(cmd, &currency)
	cmd.Flags().IntVar(&days, "days", defaultHistoryDays, "number of days of history")
	return cmd
}
