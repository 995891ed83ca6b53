package limits

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestConcurrencyLimiter_Acquire(t *testing.T) {
	t.Run("under the cap", func(t *testing.T) {
		l := NewConcurrencyLimiter(2, 10*time.Millisecond)
		ctx := context.Background()

		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("first Acquire failed: %v", err)
		}
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("second Acquire failed: %v", err)
		}
		if got := l.InFlight(); got != 2 {
			t.Errorf("expected 2 in flight, got %d", got)
		}

		l.Release()
		l.Release()
		if got := l.InFlight(); got != 0 {
			t.Errorf("expected 0 in flight, got %d", got)
		}
	})

	t.Run("queue timeout", func(t *testing.T) {
		l := NewConcurrencyLimiter(1, 50*time.Millisecond)
		ctx := context.Background()

		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}

		start := time.Now()
		err := l.Acquire(ctx)
		if !errors.Is(err, ErrQueueTimeout) {
			t.Fatalf("expected ErrQueueTimeout, got %v", err)
		}
		if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
			t.Errorf("rejection came before the queue timeout: %v", elapsed)
		}
	})

	t.Run("queued request gets freed slot", func(t *testing.T) {
		l := NewConcurrencyLimiter(1, time.Second)
		ctx := context.Background()

		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		var queuedErr error
		go func() {
			defer wg.Done()
			queuedErr = l.Acquire(ctx)
		}()

		time.Sleep(20 * time.Millisecond)
		l.Release()
		wg.Wait()

		if queuedErr != nil {
			t.Errorf("queued Acquire failed: %v", queuedErr)
		}
	})

	t.Run("context cancellation while queued", func(t *testing.T) {
		l := NewConcurrencyLimiter(1, time.Minute)
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		if err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("zero cap disables limiting", func(t *testing.T) {
		l := NewConcurrencyLimiter(0, time.Millisecond)
		for i := 0; i < 100; i++ {
			if err := l.Acquire(context.Background()); err != nil {
				t.Fatalf("Acquire failed with limiting disabled: %v", err)
			}
		}
	})
}

func TestMiddleware_Handle(t *testing.T) {
	t.Run("passes through under the cap", func(t *testing.T) {
		l := NewConcurrencyLimiter(1, 10*time.Millisecond)
		handler := NewMiddleware(l, nil).Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if l.InFlight() != 0 {
			t.Errorf("slot not released, %d in flight", l.InFlight())
		}
	})

	t.Run("rejects with 429 when saturated", func(t *testing.T) {
		l := NewConcurrencyLimiter(1, 10*time.Millisecond)
		rejected := false

		release := make(chan struct{})
		started := make(chan struct{})
		handler := NewMiddleware(l, func() { rejected = true }).Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-release
		}))

		go func() {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))
		}()
		<-started

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))
		close(release)

		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", rec.Code)
		}
		if !rejected {
			t.Error("expected the rejection hook to fire")
		}
	})
}
