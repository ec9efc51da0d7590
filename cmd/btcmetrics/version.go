package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const versionCmdName = "version"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   versionCmdName,
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "btcmetrics %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
