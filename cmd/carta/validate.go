package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"carta-hq/titan/pkg/cli"
	"carta-hq/titan/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the store.

The validate command loads the configuration, applies defaults and
environment variable overrides, and reports the effective settings.

Examples:
  # Validate the default config file
  carta validate

  # Validate a specific file
  carta validate --config /etc/carta/config.yaml

  # Print the effective configuration as JSON
  carta validate --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("validation failed: %v", err))
	}

	if validateFlags.format == string(cli.FormatJSON) {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(cmd.OutOrStdout(), cfg)
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  Storage path:       %s\n", cfg.Storage.Path)
	fmt.Printf("  Compression over:   %d bytes\n", cfg.Compression.Threshold)
	fmt.Printf("  Cache max entries:  %d per namespace\n", cfg.Cache.MaxEntries)
	fmt.Printf("  Retention schedule: %s\n", cfg.Retention.Schedule)
	if cfg.Retention.MaxAge == 0 {
		fmt.Println("  Retention max age:  disabled")
	} else {
		fmt.Printf("  Retention max age:  %s\n", cfg.Retention.MaxAge)
	}
	fmt.Printf("  Listen address:     %s\n", cfg.Server.ListenAddress)
	return nil
}
