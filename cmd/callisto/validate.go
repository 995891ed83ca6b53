package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"mercator-hq/callisto/pkg/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration, including environment variable
overrides, without starting the server.

Examples:
  # Validate the default configuration
  callisto validate

  # Validate a specific file
  callisto validate --config /etc/callisto/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	fmt.Println("✓ Configuration valid")
	fmt.Println()
	fmt.Printf("Listen address:  %s\n", cfg.Server.ListenAddress)
	fmt.Printf("Backend:         %s (input format %s, timeout %s)\n",
		cfg.Backend.Path, cfg.Backend.InputFormat, cfg.Backend.Timeout)
	fmt.Printf("Authentication:  %v\n", cfg.Auth.Enabled)
	fmt.Printf("Max concurrent:  %d\n", cfg.Limits.MaxConcurrent)
	if cfg.Usage.Enabled {
		fmt.Printf("Usage store:     %s\n", cfg.Usage.Backend)
	} else {
		fmt.Println("Usage store:     disabled")
	}
	fmt.Printf("Metrics:         %v\n", cfg.Telemetry.Metrics.Enabled)

	return nil
}
