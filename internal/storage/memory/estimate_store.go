package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/storage"
)

// EstimateStore is an in-memory implementation of storage.EstimateStore.
type EstimateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Estimate // keyed by run_id|estimator|censoring
}

// NewEstimateStore creates a new in-memory estimate store.
func NewEstimateStore() *EstimateStore {
	return &EstimateStore{
		data: make(map[string]*domain.Estimate),
	}
}

func estimateKey(runID, estimator, censoring string) string {
	return fmt.Sprintf("%s|%s|%s", runID, estimator, censoring)
}

// Insert adds a new estimate. Returns ErrDuplicateKey if the variant
// already exists for the run.
func (s *EstimateStore) Insert(_ context.Context, e *domain.Estimate) error {
	if e == nil || e.RunID == "" || e.Estimator == "" || e.Censoring == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := estimateKey(e.RunID, e.Estimator, e.Censoring)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[key] = &copy
	return nil
}

// InsertBulk adds multiple estimates atomically. Fails entire batch on any duplicate.
func (s *EstimateStore) InsertBulk(_ context.Context, estimates []*domain.Estimate) error {
	if len(estimates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(estimates))

	for _, e := range estimates {
		if e == nil || e.RunID == "" || e.Estimator == "" || e.Censoring == "" {
			return storage.ErrInvalidInput
		}

		key := estimateKey(e.RunID, e.Estimator, e.Censoring)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range estimates {
		copy := *e
		s.data[estimateKey(e.RunID, e.Estimator, e.Censoring)] = &copy
	}

	return nil
}

// GetByRunID retrieves all estimates for a run in a stable variant order.
func (s *EstimateStore) GetByRunID(_ context.Context, runID string) ([]*domain.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Estimate
	for _, e := range s.data {
		if e.RunID == runID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Estimator != result[j].Estimator {
			return result[i].Estimator < result[j].Estimator
		}
		return result[i].Censoring < result[j].Censoring
	})

	return result, nil
}

// GetByVariant retrieves all estimates for an estimator/censoring combination,
// ordered by run_id ASC.
func (s *EstimateStore) GetByVariant(_ context.Context, estimator, censoring string) ([]*domain.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Estimate
	for _, e := range s.data {
		if e.Estimator == estimator && e.Censoring == censoring {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

var _ storage.EstimateStore = (*EstimateStore)(nil)
