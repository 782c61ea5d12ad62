package memory

import (
	"context"
	"errors"
	"testing"

	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/storage"
)

func TestEstimateStore_InsertAndGet(t *testing.T) {
	store := NewEstimateStore()
	ctx := context.Background()

	est := &domain.Estimate{
		RunID:     "run1",
		Estimator: domain.EstimatorSameDay,
		Censoring: domain.CensoringNaive,
		Gradient:  -1.2,
		StdErr:    0.3,
		OK:        true,
	}

	if err := store.Insert(ctx, est); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 1 || got[0].Gradient != -1.2 {
		t.Errorf("estimate mismatch: %+v", got)
	}
}

func TestEstimateStore_DuplicateVariant(t *testing.T) {
	store := NewEstimateStore()
	ctx := context.Background()

	est := &domain.Estimate{
		RunID:     "run1",
		Estimator: domain.EstimatorTotal,
		Censoring: domain.CensoringAdjusted,
	}

	if err := store.Insert(ctx, est); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, est)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same run under a different variant is fine.
	other := &domain.Estimate{
		RunID:     "run1",
		Estimator: domain.EstimatorTotal,
		Censoring: domain.CensoringNaive,
	}
	if err := store.Insert(ctx, other); err != nil {
		t.Errorf("Different variant must insert, got %v", err)
	}
}

func TestEstimateStore_InsertBulkPartialDuplicate(t *testing.T) {
	store := NewEstimateStore()
	ctx := context.Background()

	first := &domain.Estimate{RunID: "run1", Estimator: domain.EstimatorSameDay, Censoring: domain.CensoringNaive}
	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	batch := []*domain.Estimate{
		{RunID: "run1", Estimator: domain.EstimatorSameDay, Censoring: domain.CensoringAdjusted},
		{RunID: "run1", Estimator: domain.EstimatorSameDay, Censoring: domain.CensoringNaive}, // duplicate
	}

	err := store.InsertBulk(ctx, batch)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	all, _ := store.GetByRunID(ctx, "run1")
	if len(all) != 1 {
		t.Errorf("Expected 1 estimate (no partial insert), got %d", len(all))
	}
}

func TestEstimateStore_InvalidInput(t *testing.T) {
	store := NewEstimateStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	missing := &domain.Estimate{RunID: "run1", Estimator: "", Censoring: domain.CensoringNaive}
	if err := store.Insert(ctx, missing); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty estimator, got %v", err)
	}
}

func TestEstimateStore_GetByVariant(t *testing.T) {
	store := NewEstimateStore()
	ctx := context.Background()

	batch := []*domain.Estimate{
		{RunID: "runB", Estimator: domain.EstimatorSameDay, Censoring: domain.CensoringNaive, Gradient: -1},
		{RunID: "runA", Estimator: domain.EstimatorSameDay, Censoring: domain.CensoringNaive, Gradient: -2},
		{RunID: "runA", Estimator: domain.EstimatorTotal, Censoring: domain.CensoringNaive, Gradient: -3},
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByVariant(ctx, domain.EstimatorSameDay, domain.CensoringNaive)
	if err != nil {
		t.Fatalf("GetByVariant failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 estimates, got %d", len(result))
	}
	if result[0].RunID != "runA" || result[1].RunID != "runB" {
		t.Errorf("Results not ordered by run_id: %s, %s", result[0].RunID, result[1].RunID)
	}
}
