package memory

import (
	"context"
	"sort"
	"sync"

	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunResult // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.RunResult),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.RunResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = cloneRun(r)
	return nil
}

// cloneRun copies a run deeply enough that the store and its callers never
// share panel records or estimates.
func cloneRun(r *domain.RunResult) *domain.RunResult {
	out := *r
	if r.Panel != nil {
		out.Panel = make([]*domain.PeriodRecord, len(r.Panel))
		for i, p := range r.Panel {
			rec := *p
			out.Panel[i] = &rec
		}
	}
	if r.Estimates != nil {
		est := *r.Estimates
		out.Estimates = &est
	}
	return &out
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return cloneRun(r), nil
}

// GetBySeed retrieves all runs executed with a given seed, ordered by run_id ASC.
func (s *RunStore) GetBySeed(_ context.Context, seed int64) ([]*domain.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunResult
	for _, r := range s.data {
		if r.Seed == seed {
			result = append(result, cloneRun(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// GetAll retrieves all runs, ordered by run_id ASC.
func (s *RunStore) GetAll(_ context.Context) ([]*domain.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RunResult, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, cloneRun(r))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

var _ storage.RunStore = (*RunStore)(nil)
