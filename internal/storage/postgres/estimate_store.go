package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/storage"
)

// EstimateStore implements storage.EstimateStore using PostgreSQL.
type EstimateStore struct {
	pool *Pool
}

// NewEstimateStore creates a new EstimateStore.
func NewEstimateStore(pool *Pool) *EstimateStore {
	return &EstimateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EstimateStore = (*EstimateStore)(nil)

const estimateColumns = `
	run_id, estimator, censoring,
	gradient, variance, std_err, ci_low, ci_high,
	periods_used, periods_censored, ok, reason
`

// Insert adds a new estimate. Returns ErrDuplicateKey if the variant
// already exists for the run.
func (s *EstimateStore) Insert(ctx context.Context, e *domain.Estimate) error {
	query := `
		INSERT INTO estimates (` + estimateColumns + `) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10, $11, $12
		)
	`

	_, err := s.pool.Exec(ctx, query,
		e.RunID, e.Estimator, e.Censoring,
		e.Gradient, e.Variance, e.StdErr, e.CILow, e.CIHigh,
		e.PeriodsUsed, e.PeriodsCensored, e.OK, e.Reason,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert estimate: %w", err)
	}
	return nil
}

// InsertBulk adds multiple estimates atomically. Fails entire batch on any duplicate.
func (s *EstimateStore) InsertBulk(ctx context.Context, estimates []*domain.Estimate) error {
	if len(estimates) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO estimates (` + estimateColumns + `) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10, $11, $12
		)
	`

	for _, e := range estimates {
		_, err := tx.Exec(ctx, query,
			e.RunID, e.Estimator, e.Censoring,
			e.Gradient, e.Variance, e.StdErr, e.CILow, e.CIHigh,
			e.PeriodsUsed, e.PeriodsCensored, e.OK, e.Reason,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert estimate in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all estimates for a run in a stable variant order.
func (s *EstimateStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Estimate, error) {
	query := `
		SELECT ` + estimateColumns + `
		FROM estimates
		WHERE run_id = $1
		ORDER BY estimator ASC, censoring ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get estimates by run id: %w", err)
	}
	defer rows.Close()

	return scanEstimates(rows)
}

// GetByVariant retrieves all estimates for an estimator/censoring combination.
func (s *EstimateStore) GetByVariant(ctx context.Context, estimator, censoring string) ([]*domain.Estimate, error) {
	query := `
		SELECT ` + estimateColumns + `
		FROM estimates
		WHERE estimator = $1 AND censoring = $2
		ORDER BY run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, estimator, censoring)
	if err != nil {
		return nil, fmt.Errorf("get estimates by variant: %w", err)
	}
	defer rows.Close()

	return scanEstimates(rows)
}

// scanEstimates scans multiple rows into a slice of Estimate.
func scanEstimates(rows pgx.Rows) ([]*domain.Estimate, error) {
	var estimates []*domain.Estimate

	for rows.Next() {
		var e domain.Estimate

		err := rows.Scan(
			&e.RunID, &e.Estimator, &e.Censoring,
			&e.Gradient, &e.Variance, &e.StdErr, &e.CILow, &e.CIHigh,
			&e.PeriodsUsed, &e.PeriodsCensored, &e.OK, &e.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan estimate row: %w", err)
		}

		estimates = append(estimates, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimate rows: %w", err)
	}

	return estimates, nil
}
