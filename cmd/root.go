// Package cmd wires the CLI commands for the noteharvest executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noteharvest",
		Short: "A keyword-to-notes harvest service.",
		Long: `noteharvest turns a search keyword into a bounded set of extracted
note records (text, images, flattened comments), persists each task's result
as a JSON artifact, and serves status, retrieval, and export endpoints.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// A missing .env is fine; config falls back to real env vars.
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment only)")
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
