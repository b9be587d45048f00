package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carta-hq/titan/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "carta",
	Short: "Carta Titan - versioned resource store",
	Long: `Carta Titan is a versioned resource store backed by SQLite.

It keeps every resource type in its own lazily provisioned partition and
provides:
  - Versioned writes with optimistic concurrency control
  - Soft deletes with a complete append-only version history
  - Transparent gzip compression for large payloads
  - Cursor-based pagination within and across resource types
  - A TTL cache tier for reads, searches, and counts`,
	Version: Version,
}

// Execute runs the root command and exits with a code reflecting the
// error kind.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
