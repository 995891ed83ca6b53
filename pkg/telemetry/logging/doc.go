// Package logging constructs the structured logger used throughout
// Callisto.
//
// Loggers are built from config.LoggingConfig and emit either JSON or
// plain text via log/slog. Components derive their own loggers with
// logger.With("component", ...) so every line carries its origin.
package logging
