package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL. Only run-level
// totals live here; the per-period panel is stored separately.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunResult) error {
	query := `
		INSERT INTO runs (
			run_id, seed, horizon,
			consumer_surplus, producer_surplus,
			units_sold, stockout_periods, consumers_served, consumers_departed
		) VALUES (
			$1, $2, $3,
			$4, $5,
			$6, $7, $8, $9
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Seed, r.Horizon,
		r.ConsumerSurplus, r.ProducerSurplus,
		r.UnitsSold, r.StockoutPeriods, r.ConsumersServed, r.ConsumersDeparted,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunResult, error) {
	query := `
		SELECT
			run_id, seed, horizon,
			consumer_surplus, producer_surplus,
			units_sold, stockout_periods, consumers_served, consumers_departed
		FROM runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// GetBySeed retrieves all runs executed with a given seed.
func (s *RunStore) GetBySeed(ctx context.Context, seed int64) ([]*domain.RunResult, error) {
	query := `
		SELECT
			run_id, seed, horizon,
			consumer_surplus, producer_surplus,
			units_sold, stockout_periods, consumers_served, consumers_departed
		FROM runs
		WHERE seed = $1
		ORDER BY run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, seed)
	if err != nil {
		return nil, fmt.Errorf("get runs by seed: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// GetAll retrieves all runs.
func (s *RunStore) GetAll(ctx context.Context) ([]*domain.RunResult, error) {
	query := `
		SELECT
			run_id, seed, horizon,
			consumer_surplus, producer_surplus,
			units_sold, stockout_periods, consumers_served, consumers_departed
		FROM runs
		ORDER BY run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// scanRun scans a single row into a RunResult.
func scanRun(row pgx.Row) (*domain.RunResult, error) {
	var r domain.RunResult

	err := row.Scan(
		&r.RunID, &r.Seed, &r.Horizon,
		&r.ConsumerSurplus, &r.ProducerSurplus,
		&r.UnitsSold, &r.StockoutPeriods, &r.ConsumersServed, &r.ConsumersDeparted,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// scanRuns scans multiple rows into a slice of RunResult.
func scanRuns(rows pgx.Rows) ([]*domain.RunResult, error) {
	var runs []*domain.RunResult

	for rows.Next() {
		var r domain.RunResult

		err := rows.Scan(
			&r.RunID, &r.Seed, &r.Horizon,
			&r.ConsumerSurplus, &r.ProducerSurplus,
			&r.UnitsSold, &r.StockoutPeriods, &r.ConsumersServed, &r.ConsumersDeparted,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		runs = append(runs, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}
