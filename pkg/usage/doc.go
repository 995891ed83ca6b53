// Package usage records per-request accounting data: dialect, model,
// outcome, token counts, and latency.
//
// # Storage Backends
//
// Two Store implementations are provided:
//
//   - SQLiteStore: durable storage with WAL journaling, used in
//     production
//   - MemoryStore: volatile storage for tests and minimal deployments
//
// # Retention
//
// The Pruner deletes records past the configured age or count limits,
// and the Scheduler runs it on a cron schedule (daily at 03:00 by
// default).
package usage
