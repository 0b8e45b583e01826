package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/hoopfuse/pkg/logger"
	"github.com/okian/hoopfuse/pkg/metrics"
)

// MemoryStore keeps results in a map guarded by a RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]Result
	log     logger.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	c := newStoreConfig(opts)
	metrics.UpdateStoreRecords(0)
	return &MemoryStore{results: make(map[string]Result), log: c.log}
}

// Save inserts or replaces a result.
func (s *MemoryStore) Save(ctx context.Context, r Result) error {
	if err := ctx.Err(); err != nil {
		metrics.RecordStoreOperation("save", "error")
		return err
	}
	if err := validate(r); err != nil {
		metrics.RecordStoreOperation("save", "error")
		return fmt.Errorf("save %q: %w", r.JobID, err)
	}
	r.Events = slices.Clone(r.Events)

	s.mu.Lock()
	s.results[r.JobID] = r
	n := len(s.results)
	s.mu.Unlock()

	metrics.RecordStoreOperation("save", "ok")
	metrics.UpdateStoreRecords(n)
	s.log.Debug(ctx, "result saved", logger.String("job_id", r.JobID), logger.String("status", string(r.Status)))
	return nil
}

// Get returns a copy of the stored result.
func (s *MemoryStore) Get(ctx context.Context, jobID string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.RLock()
	r, ok := s.results[jobID]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordStoreOperation("get", "not_found")
		return Result{}, ErrNotFound
	}
	metrics.RecordStoreOperation("get", "ok")
	r.Events = slices.Clone(r.Events)
	return r, nil
}

// Count returns the number of stored results.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
