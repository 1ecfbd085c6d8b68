package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

// errValidationFailed makes the process exit with status 1 after a run
// whose report has hard failures. The report itself is already printed.
var errValidationFailed = errors.New("validation failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errValidationFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vitaldyn",
		Short: "Vital dynamics simulation and statistical validation",
		Long: `vitaldyn drives a day-stepped population through births and deaths under
a configurable rate model, then validates the resulting event counts
against their theoretical Poisson expectations.

Runs can be stored in a SQLite database and their event logs exported as
JSONL or Arrow IPC streams.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.vitaldyn/config.yaml when present)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database (default: store.path, else ~/.vitaldyn/vitaldyn.db)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newRunsCmd(),
		newEventsCmd(),
		newConfigCmd(),
	)
	return rootCmd
}
