package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeromicro/go-zero/core/logx"

	"btcmetrics/internal/cli"
)

const shutdownTimeout = 5 * time.Second

// watch renders fn now and then on every tick until ctx is done. A failed
// tick is reported and the loop carries on.
func (a *app) watch(ctx context.Context, name string, fn runFunc) error {
	stopMetrics, err := a.serveMetrics(ctx)
	if err != nil {
		return err
	}
	defer stopMetrics()

	ticker := time.NewTicker(a.opts.interval)
	defer ticker.Stop()

	a.tick(ctx, name, fn)
	for {
		select {
		case <-ctx.Done():
			logx.Debug("btcmetrics: watch stopped")
			return nil
		case <-ticker.C:
			a.tick(ctx, name, fn)
		}
	}
}

func (a *app) tick(ctx context.Context, name string, fn runFunc) {
	if ctx.Err() != nil {
		return
	}
	if !a.opts.json {
		a.header(time.Now())
	}
	if err := a.once(ctx, name, fn); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logx.WithContext(ctx).Errorf("btcmetrics: watch tick failed: %v", err)
		if a.opts.json {
			cli.WriteError(a.stdout, err, true)
		}
	}
}

func (a *app) header(now time.Time) {
	fmt.Fprintf(a.stdout, "\n== %s (every %s, Ctrl+C to stop)\n", now.Format(time.TimeOnly), a.opts.interval)
}

// serveMetrics exposes the fallback metrics registry when --metrics-addr is set.
func (a *app) serveMetrics(ctx context.Context) (func(), error) {
	if a.opts.metricsAddr == "" {
		return func() {}, nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.svcCtx.MetricsRegistry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              a.opts.metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	// surface bind failures before the first tick
	select {
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("metrics server %s: %w", a.opts.metricsAddr, err)
		}
	case <-time.After(50 * time.Millisecond):
	}
	logx.WithContext(ctx).Infof("btcmetrics: serving metrics addr=%s", a.opts.metricsAddr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logx.Errorf("btcmetrics: metrics server shutdown: %v", err)
		}
	}, nil
}
