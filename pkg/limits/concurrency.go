package limits

import (
	"context"
	"time"
)

// ConcurrencyLimiter caps how many backend subprocesses run at once.
// Requests beyond the cap wait in line for a slot; a request that waits
// longer than the queue timeout is rejected.
//
// The limiter is a buffered-channel semaphore, so waiting requests are
// served roughly in arrival order and waiting costs no spinning.
type ConcurrencyLimiter struct {
	slots        chan struct{}
	queueTimeout time.Duration
}

// NewConcurrencyLimiter creates a limiter allowing max simultaneous
// acquisitions. A max of zero or less disables limiting; Acquire then
// always succeeds immediately.
func NewConcurrencyLimiter(max int, queueTimeout time.Duration) *ConcurrencyLimiter {
	l := &ConcurrencyLimiter{queueTimeout: queueTimeout}
	if max > 0 {
		l.slots = make(chan struct{}, max)
	}
	return l
}

// Acquire blocks until a slot is free, the queue timeout expires, or
// the context is canceled. It returns nil exactly when the caller holds
// a slot and must call Release.
func (l *ConcurrencyLimiter) Acquire(ctx context.Context) error {
	if l.slots == nil {
		return nil
	}

	// Fast path: a slot is free right now.
	select {
	case l.slots <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(l.queueTimeout)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrQueueTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired by Acquire.
func (l *ConcurrencyLimiter) Release() {
	if l.slots == nil {
		return
	}
	<-l.slots
}

// InFlight returns how many slots are currently held.
func (l *ConcurrencyLimiter) InFlight() int {
	if l.slots == nil {
		return 0
	}
	return len(l.slots)
}
