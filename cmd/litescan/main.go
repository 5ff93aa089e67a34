package main

import (
	"bufio"
	"os"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dashjay/litescan"
)

func main() {
	cmd := NewQueryCommand()
	if err := cmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func NewQueryCommand() *cobra.Command {
	cmd := new(cobra.Command)
	cmd.Use = "litescan <database> <command>"
	cmd.Short = "run a dot-command or a SELECT against a database file"
	cmd.Args = cobra.ExactArgs(2)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cpuProfile := cmd.Flags().Bool("cpu-profile", false, "write a cpu profile to litescan-pprof")
	showMetrics := cmd.Flags().Bool("metrics", false, "dump engine counters to stderr after the query")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *cpuProfile {
			p := profile.Start(profile.CPUProfile,
				profile.ProfilePath("litescan-pprof"),
				profile.NoShutdownHook,
			)
			defer p.Stop()
		}

		db, err := litescan.Open(args[0])
		if err != nil {
			return err
		}
		defer db.Close()

		out := bufio.NewWriter(os.Stdout)
		err = db.Execute(args[1], out)
		if flushErr := out.Flush(); err == nil {
			err = flushErr
		}
		if *showMetrics {
			db.ReportMetrics(os.Stderr)
		}
		return err
	}
	return cmd
}
