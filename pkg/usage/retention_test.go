package usage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPruner_Prune(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("by age", func(t *testing.T) {
		store := NewMemoryStore()
		store.Record(ctx, makeRecord("old", now.AddDate(0, 0, -10), 1, 1))
		store.Record(ctx, makeRecord("new", now, 1, 1))

		pruner := NewPruner(store, &config.RetentionConfig{Days: 7}, discardLogger())
		deleted, err := pruner.Prune(ctx)
		if err != nil {
			t.Fatalf("Prune failed: %v", err)
		}
		if deleted != 1 {
			t.Errorf("expected 1 deletion, got %d", deleted)
		}
	})

	t.Run("by count", func(t *testing.T) {
		store := NewMemoryStore()
		for i := 0; i < 5; i++ {
			store.Record(ctx, makeRecord(fmt.Sprintf("r%d", i), now.Add(time.Duration(i)*time.Second), 1, 1))
		}

		pruner := NewPruner(store, &config.RetentionConfig{MaxRecords: 2}, discardLogger())
		deleted, err := pruner.Prune(ctx)
		if err != nil {
			t.Fatalf("Prune failed: %v", err)
		}
		if deleted != 3 {
			t.Errorf("expected 3 deletions, got %d", deleted)
		}
	})

	t.Run("both phases", func(t *testing.T) {
		store := NewMemoryStore()
		store.Record(ctx, makeRecord("ancient", now.AddDate(0, 0, -30), 1, 1))
		for i := 0; i < 4; i++ {
			store.Record(ctx, makeRecord(fmt.Sprintf("r%d", i), now.Add(time.Duration(i)*time.Second), 1, 1))
		}

		pruner := NewPruner(store, &config.RetentionConfig{Days: 7, MaxRecords: 2}, discardLogger())
		deleted, err := pruner.Prune(ctx)
		if err != nil {
			t.Fatalf("Prune failed: %v", err)
		}
		if deleted != 3 {
			t.Errorf("expected 3 deletions (1 by age, 2 by count), got %d", deleted)
		}

		count, _ := store.Count(ctx)
		if count != 2 {
			t.Errorf("expected 2 remaining, got %d", count)
		}
	})

	t.Run("disabled policy deletes nothing", func(t *testing.T) {
		store := NewMemoryStore()
		store.Record(ctx, makeRecord("ancient", now.AddDate(-1, 0, 0), 1, 1))

		pruner := NewPruner(store, &config.RetentionConfig{}, discardLogger())
		deleted, err := pruner.Prune(ctx)
		if err != nil {
			t.Fatalf("Prune failed: %v", err)
		}
		if deleted != 0 {
			t.Errorf("expected no deletions, got %d", deleted)
		}
	})
}

func TestScheduler_Start(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		pruner := NewPruner(NewMemoryStore(), &config.RetentionConfig{Days: 1, Schedule: "not a cron"}, discardLogger())
		sched := NewScheduler(pruner)

		if err := sched.Start(context.Background()); err == nil {
			t.Error("expected error for invalid cron expression")
		}
	})

	t.Run("empty schedule is a no-op", func(t *testing.T) {
		pruner := NewPruner(NewMemoryStore(), &config.RetentionConfig{Days: 1}, discardLogger())
		sched := NewScheduler(pruner)

		if err := sched.Start(context.Background()); err != nil {
			t.Errorf("expected no error for empty schedule, got %v", err)
		}
	})

	t.Run("starts and stops", func(t *testing.T) {
		pruner := NewPruner(NewMemoryStore(), &config.RetentionConfig{Days: 1, Schedule: "0 3 * * *"}, discardLogger())
		sched := NewScheduler(pruner)

		ctx, cancel := context.WithCancel(context.Background())
		if err := sched.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		cancel()
		// Stop is idempotent.
		sched.Stop()
	})
}
