// Package limits provides admission control for the proxy.
//
// Every completion request holds a backend subprocess for its whole
// duration, so the interesting limit is concurrency, not request rate.
// ConcurrencyLimiter is a semaphore over execution slots; requests
// beyond the cap queue up to the configured timeout and are then
// rejected with 429.
package limits
