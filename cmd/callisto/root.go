package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/callisto/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - HTTP proxy for a local CLI model runtime",
	Long: `Callisto is an HTTP proxy that fronts a local CLI model runtime.

It exposes OpenAI-style (/v1/chat/completions) and Anthropic-style
(/v1/messages) completion endpoints, buffered or SSE-streaming, and runs
one backend subprocess per request:
  - Request translation between both HTTP dialects and the backend's
    line-delimited JSON protocol
  - Per-request subprocess lifecycle with timeout and graceful
    termination
  - API key authentication and concurrency admission control
  - Usage recording with SQLite persistence and scheduled retention
  - Prometheus metrics and structured logging`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration named by the --config flag, or the
// defaults when no file is given. Environment overrides apply in both
// cases.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.DefaultWithEnvOverrides()
	}
	return config.LoadConfigWithEnvOverrides(cfgFile)
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when omitted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
