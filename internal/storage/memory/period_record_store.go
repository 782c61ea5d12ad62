package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/storage"
)

// PeriodRecordStore is an in-memory implementation of storage.PeriodRecordStore.
type PeriodRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PeriodRecord // keyed by run_id|period_index
}

// NewPeriodRecordStore creates a new in-memory period record store.
func NewPeriodRecordStore() *PeriodRecordStore {
	return &PeriodRecordStore{
		data: make(map[string]*domain.PeriodRecord),
	}
}

func periodKey(runID string, period int) string {
	return fmt.Sprintf("%s|%d", runID, period)
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *PeriodRecordStore) InsertBulk(_ context.Context, records []*domain.PeriodRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(records))

	// First pass: check for duplicates (existing + intra-batch)
	for _, r := range records {
		if r == nil || r.RunID == "" || r.PeriodIndex < 0 {
			return storage.ErrInvalidInput
		}

		key := periodKey(r.RunID, r.PeriodIndex)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range records {
		copy := *r
		s.data[periodKey(r.RunID, r.PeriodIndex)] = &copy
	}

	return nil
}

// GetByRunID retrieves all records for a run, ordered by period ASC.
func (s *PeriodRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.PeriodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PeriodRecord
	for _, r := range s.data {
		if r.RunID == runID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodIndex < result[j].PeriodIndex
	})

	return result, nil
}

// GetByArm retrieves a run's records under one treatment arm, ordered by period ASC.
func (s *PeriodRecordStore) GetByArm(_ context.Context, runID string, arm domain.Arm) ([]*domain.PeriodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PeriodRecord
	for _, r := range s.data {
		if r.RunID == runID && r.Arm == arm {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodIndex < result[j].PeriodIndex
	})

	return result, nil
}

var _ storage.PeriodRecordStore = (*PeriodRecordStore)(nil)
