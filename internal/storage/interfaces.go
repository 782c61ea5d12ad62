package storage

import (
	"context"

	"switchback-market-lab/internal/domain"
)

// RunStore provides access to runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunResult) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunResult, error)

	// GetBySeed retrieves all runs executed with a given seed.
	GetBySeed(ctx context.Context, seed int64) ([]*domain.RunResult, error)

	// GetAll retrieves all runs.
	GetAll(ctx context.Context) ([]*domain.RunResult, error)
}

// PeriodRecordStore provides access to period_records storage.
type PeriodRecordStore interface {
	// InsertBulk adds multiple records. Fails entire batch on duplicate
	// (run_id, period_index).
	InsertBulk(ctx context.Context, records []*domain.PeriodRecord) error

	// GetByRunID retrieves all records for a run, ordered by period ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.PeriodRecord, error)

	// GetByArm retrieves a run's records under one treatment arm, ordered by period ASC.
	GetByArm(ctx context.Context, runID string, arm domain.Arm) ([]*domain.PeriodRecord, error)
}

// EstimateStore provides access to estimates storage.
type EstimateStore interface {
	// Insert adds a new estimate. Returns ErrDuplicateKey if
	// (run_id, estimator, censoring) exists.
	Insert(ctx context.Context, e *domain.Estimate) error

	// InsertBulk adds multiple estimates atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, estimates []*domain.Estimate) error

	// GetByRunID retrieves all estimates for a run.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Estimate, error)

	// GetByVariant retrieves all estimates for an estimator/censoring combination.
	GetByVariant(ctx context.Context, estimator, censoring string) ([]*domain.Estimate, error)
}
