package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/logx"

	"btcmetrics/internal/cli"
	"btcmetrics/internal/config"
	"btcmetrics/internal/service"
	"btcmetrics/internal/svc"
	"btcmetrics/pkg/confkit"
	"btcmetrics/pkg/journal"
)

const defaultInterval = 30 * time.Second

type rootOptions struct {
	json        bool
	watch       bool
	interval    time.Duration
	debug       bool
	configPath  string
	skip        []string
	metricsAddr string
	recordDir   string
}

// app holds what every command needs once flags are parsed.
type app struct {
	stdout io.Writer
	stderr io.Writer
	opts   rootOptions

	// svcOpts is appended to the service context options; tests use it to
	// swap the HTTP client or the retry sleep.
	svcOpts []svc.Option

	cfg      *config.Config
	svcCtx   *svc.ServiceContext
	service  *service.Service
	renderer *cli.Renderer
	journal  *journal.Writer
}

// runFunc produces one report.
type runFunc func(ctx context.Context, a *app) (any, error)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "btcmetrics",
		Short: "Bitcoin market and chain metrics from public data providers",
		Long: `btcmetrics queries several market and block explorer APIs, falling back
from one provider to the next on failure, and prints price, volume,
history, blocks, mempool, fees, hashrate, difficulty and halving data.

Exit codes:
  0    success
  1    every provider failed or the configuration is invalid
  130  interrupted`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case versionCmdName, "help":
				return nil
			}
			path := a.opts.configPath
			if !cmd.Flags().Changed("config") {
				path = confkit.FindConfig(path)
			}
			return a.setup(path)
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.BoolVar(&a.opts.json, "json", false, "print JSON instead of formatted text")
	flags.BoolVarP(&a.opts.watch, "watch", "w", false, "refresh the report every --interval until interrupted")
	flags.DurationVar(&a.opts.interval, "interval", defaultInterval, "refresh interval in watch mode")
	flags.BoolVar(&a.opts.debug, "debug", false, "log provider attempts and print the health table")
	flags.StringVarP(&a.opts.configPath, "config", "c", config.DefaultPath, "path to the app config file")
	flags.StringSliceVar(&a.opts.skip, "skip", nil, "providers to leave out, comma separated")
	flags.StringVar(&a.opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address in watch mode")
	flags.StringVar(&a.opts.recordDir, "record", "", "also write every report as a JSON file into this directory")

	root.AddCommand(
		newPriceCmd(a), newVolumeCmd(a), newHistoryCmd(a),
		newBlocksCmd(a), newMempoolCmd(a), newFeesCmd(a), newHashrateCmd(a),
		newDifficultyCmd(a), newHalvingCmd(a),
		newHealthCmd(a), newVersionCmd(a),
	)
	return root
}

// setup loads configuration and builds the shared clients.
func (a *app) setup(path string) error {
	cli.SetupLogging(a.stderr, a.opts.debug)

	if a.opts.watch && a.opts.interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", a.opts.interval)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cli.LogConfigSummary(cfg)

	svcCtx, err := svc.NewServiceContext(cfg, a.svcOpts...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.svcCtx = svcCtx
	a.service = service.NewFromContext(svcCtx)
	a.renderer = cli.NewRenderer(a.stdout, a.opts.json)
	if a.opts.recordDir != "" {
		if a.journal, err = journal.NewWriter(a.opts.recordDir); err != nil {
			return err
		}
	}
	logx.Debugf("btcmetrics: market providers=%v chain providers=%v",
		svcCtx.Market.Registry.Names(), svcCtx.Chain.Registry.Names())
	return nil
}

func (a *app) query(currency string) service.Query {
	return service.Query{Currency: currency, Skip: a.opts.skip}
}

// run renders one report, or keeps refreshing it in watch mode.
func (a *app) run(ctx context.Context, name string, fn runFunc) error {
	if a.opts.watch {
		return a.watch(ctx, name, fn)
	}
	return a.once(ctx, name, fn)
}

func (a *app) once(ctx context.Context, name string, fn runFunc) error {
	report, err := fn(ctx, a)
	a.record(ctx, name, report, err)
	if err != nil {
		return err
	}
	if err := a.renderer.Render(report); err != nil {
		return err
	}
	if a.opts.debug && !a.opts.json {
		if _, isHealth := report.([]cli.HealthRow); !isHealth {
			fmt.Fprintln(a.stdout)
			return a.renderer.Render(a.trackedHealth())
		}
	}
	return nil
}

func (a *app) record(ctx context.Context, name string, report any, err error) {
	if a.journal == nil || errors.Is(err, context.Canceled) {
		return
	}
	if path, jErr := a.journal.Write(name, report, err); jErr != nil {
		logx.WithContext(ctx).Errorf("btcmetrics: record %s: %v", name, jErr)
	} else {
		logx.WithContext(ctx).Debugf("btcmetrics: recorded %s to %s", name, path)
	}
}

// trackedHealth reports what the trackers have observed so far, without probing.
func (a *app) trackedHealth() []cli.HealthRow {
	var rows []cli.HealthRow
	for _, fam := range []struct {
		name string
		f    svc.Family
	}{{"market", a.svcCtx.Market}, {"chain", a.svcCtx.Chain}} {
		seen := make(map[string]bool, fam.f.Registry.Len())
		for _, name := range fam.f.Registry.Names() {
			seen[name] = fam.f.Health.IsHealthy(name)
		}
		rows = append(rows, cli.HealthRows(fam.name, seen, fam.f.Health.Snapshot())...)
	}
	return rows
}

func newMetricCmd(a *app, use, short string, fn runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), cmd.Name(), fn)
		},
	}
}
