// Package config provides configuration management for Callisto.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// When no file exists at all, Default() returns a fully defaulted
// configuration suitable for local development.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CALLISTO_SECTION_FIELD.
// For example:
//
//   - CALLISTO_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - CALLISTO_BACKEND_PATH overrides backend.path
//   - CALLISTO_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides
// earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher observes the configuration file and delivers reloaded
// configurations through a callback:
//
//	w := config.NewWatcher("config.yaml", logger)
//	go w.Watch(ctx, func(cfg *config.Config) {
//	    // apply the new configuration
//	})
//
// A change that fails validation is logged and ignored, so a bad edit never
// takes down a running proxy.
package config
