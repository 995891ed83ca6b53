package usage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory slice. Records do not
// survive a restart; it exists for tests and for deployments that only
// want the live metrics.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryStore creates an empty in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends one usage record.
func (s *MemoryStore) Record(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.records = append(s.records, &cp)
	return nil
}

// Summarize aggregates records created at or after since.
func (s *MemoryStore) Summarize(ctx context.Context, since time.Time) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	for _, rec := range s.records {
		if rec.CreatedAt.Before(since) {
			continue
		}
		sum.Requests++
		sum.PromptTokens += int64(rec.PromptTokens)
		sum.CompletionTokens += int64(rec.CompletionTokens)
		sum.TotalTokens += int64(rec.TotalTokens)
	}
	return &sum, nil
}

// Recent returns the newest records, most recent first.
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	sorted := make([]*Record, len(s.records))
	copy(sorted, s.records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]*Record, len(sorted))
	for i, rec := range sorted {
		cp := *rec
		out[i] = &cp
	}
	return out, nil
}

// Count returns the total number of stored records.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// DeleteOlderThan removes records created before the cutoff.
func (s *MemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return deleted, nil
}

// TrimToCount removes the oldest records beyond max.
func (s *MemoryStore) TrimToCount(ctx context.Context, max int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	excess := int64(len(s.records)) - max
	if excess <= 0 {
		return 0, nil
	}

	sort.Slice(s.records, func(i, j int) bool {
		return s.records[i].CreatedAt.Before(s.records[j].CreatedAt)
	})
	s.records = s.records[excess:]
	return excess, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
