// Package main runs the life planner task API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lifeplanner",
	Short: "Recurring task API",
	Long: `lifeplanner serves the task API and its recurrence engine.

Without a subcommand it starts the HTTP server.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(nextCmd)
}
