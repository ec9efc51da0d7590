// btcmetrics reports Bitcoin market and chain metrics from public data providers.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"btcmetrics/internal/cli"
	"btcmetrics/internal/svc"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...svc.Option) int {
	a := &app{stdout: stdout, stderr: stderr, svcOpts: opts}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return cli.ExitOK
	}
	// JSON consumers read stdout; humans read stderr.
	if a.opts.json {
		return cli.WriteError(stdout, err, true)
	}
	return cli.WriteError(stderr, err, false)
}
