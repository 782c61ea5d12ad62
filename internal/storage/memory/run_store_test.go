package memory

import (
	"context"
	"errors"
	"testing"

	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/storage"
)

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunResult{
		RunID:           "run1",
		Seed:            42,
		Horizon:         200,
		ConsumerSurplus: 15.5,
		ProducerSurplus: 120.0,
		UnitsSold:       80,
	}

	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.UnitsSold != 80 || got.Seed != 42 {
		t.Errorf("run mismatch: got units=%d seed=%d", got.UnitsSold, got.Seed)
	}
}

func TestRunStore_DuplicateKey(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunResult{RunID: "run1", Seed: 1, Horizon: 10}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, run)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRunStore_NotFound(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_InvalidInput(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.RunResult{RunID: ""}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty ID, got %v", err)
	}
}

func TestRunStore_GetBySeed(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	runs := []*domain.RunResult{
		{RunID: "runB", Seed: 7, Horizon: 10},
		{RunID: "runA", Seed: 7, Horizon: 10},
		{RunID: "runC", Seed: 8, Horizon: 10},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetBySeed(ctx, 7)
	if err != nil {
		t.Fatalf("GetBySeed failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 runs for seed 7, got %d", len(result))
	}
	if result[0].RunID != "runA" || result[1].RunID != "runB" {
		t.Errorf("Results not ordered by run_id: %s, %s", result[0].RunID, result[1].RunID)
	}
}

func TestRunStore_GetAllOrdered(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := store.Insert(ctx, &domain.RunResult{RunID: id, Horizon: 1}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		if all[i].RunID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, all[i].RunID)
		}
	}
}

func TestRunStore_CopyOnRead(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.RunResult{RunID: "run1", UnitsSold: 5}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "run1")
	got.UnitsSold = 999

	again, _ := store.GetByID(ctx, "run1")
	if again.UnitsSold != 5 {
		t.Errorf("Stored run mutated through a read copy: %d", again.UnitsSold)
	}
}

func TestRunStore_CopyOnReadIsDeep(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunResult{
		RunID: "run1",
		Panel: []*domain.PeriodRecord{
			{RunID: "run1", PeriodIndex: 0, Arm: domain.ArmMid, Price: 8},
		},
		Estimates: &domain.EstimateSet{
			SameDayNaive: domain.Estimate{RunID: "run1", Gradient: -1.2, OK: true},
		},
	}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// The inserted value must also be detached from the caller's pointers.
	run.Panel[0].Price = 99
	run.Estimates.SameDayNaive.Gradient = 99

	got, _ := store.GetByID(ctx, "run1")
	got.Panel[0].Price = 77
	got.Estimates.SameDayNaive.Gradient = 77

	again, _ := store.GetByID(ctx, "run1")
	if again.Panel[0].Price != 8 {
		t.Errorf("Stored panel mutated through a shared pointer: %f", again.Panel[0].Price)
	}
	if again.Estimates.SameDayNaive.Gradient != -1.2 {
		t.Errorf("Stored estimates mutated through a shared pointer: %f",
			again.Estimates.SameDayNaive.Gradient)
	}
}
