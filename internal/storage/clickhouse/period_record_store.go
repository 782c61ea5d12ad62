package clickhouse

import (
	"context"
	"fmt"

	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/storage"
)

// PeriodRecordStore implements storage.PeriodRecordStore using ClickHouse.
// The panel is write-once analytical data, a natural MergeTree fit.
type PeriodRecordStore struct {
	conn *Conn
}

// NewPeriodRecordStore creates a new PeriodRecordStore.
func NewPeriodRecordStore(conn *Conn) *PeriodRecordStore {
	return &PeriodRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PeriodRecordStore = (*PeriodRecordStore)(nil)

// InsertBulk adds multiple records. Fails entire batch on duplicate
// (run_id, period_index).
func (s *PeriodRecordStore) InsertBulk(ctx context.Context, records []*domain.PeriodRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		runID  string
		period int
	}
	seen := make(map[key]struct{})
	for _, r := range records {
		k := key{r.RunID, r.PeriodIndex}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows. All records of a batch
	// belong to one run in practice, so one existence probe per run suffices.
	probed := make(map[string]struct{})
	for _, r := range records {
		if _, done := probed[r.RunID]; done {
			continue
		}
		probed[r.RunID] = struct{}{}

		exists, err := s.exists(ctx, r.RunID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO period_records (
			run_id, period_index, arm, price,
			units_sold_same_day, units_sold_total, requested_units,
			availability, stockout_flag,
			consumer_surplus_increment, producer_surplus_increment
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.RunID, uint32(r.PeriodIndex), string(r.Arm), r.Price,
			uint32(r.UnitsSoldSameDay), uint32(r.UnitsSoldTotal), uint32(r.RequestedUnits),
			uint32(r.Availability), r.StockoutFlag,
			r.ConsumerSurplusIncrement, r.ProducerSurplusIncrement,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all records for a run, ordered by period ASC.
func (s *PeriodRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.PeriodRecord, error) {
	query := `
		SELECT run_id, period_index, arm, price,
			units_sold_same_day, units_sold_total, requested_units,
			availability, stockout_flag,
			consumer_surplus_increment, producer_surplus_increment
		FROM period_records
		WHERE run_id = ?
		ORDER BY period_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanPeriodRecords(rows)
}

// GetByArm retrieves a run's records under one treatment arm, ordered by period ASC.
func (s *PeriodRecordStore) GetByArm(ctx context.Context, runID string, arm domain.Arm) ([]*domain.PeriodRecord, error) {
	query := `
		SELECT run_id, period_index, arm, price,
			units_sold_same_day, units_sold_total, requested_units,
			availability, stockout_flag,
			consumer_surplus_increment, producer_surplus_increment
		FROM period_records
		WHERE run_id = ? AND arm = ?
		ORDER BY period_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, string(arm))
	if err != nil {
		return nil, fmt.Errorf("query by arm: %w", err)
	}
	defer rows.Close()

	return scanPeriodRecords(rows)
}

// exists checks if any records for the run exist.
func (s *PeriodRecordStore) exists(ctx context.Context, runID string) (bool, error) {
	query := `
		SELECT count(*) FROM period_records
		WHERE run_id = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows abstracts driver.Rows for scan helpers.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// scanPeriodRecords scans multiple rows.
func scanPeriodRecords(rows chRows) ([]*domain.PeriodRecord, error) {
	var records []*domain.PeriodRecord

	for rows.Next() {
		var r domain.PeriodRecord
		var period, sameDay, total, requested, availability uint32
		var arm string

		err := rows.Scan(
			&r.RunID, &period, &arm, &r.Price,
			&sameDay, &total, &requested,
			&availability, &r.StockoutFlag,
			&r.ConsumerSurplusIncrement, &r.ProducerSurplusIncrement,
		)
		if err != nil {
			return nil, fmt.Errorf("scan period record row: %w", err)
		}

		r.PeriodIndex = int(period)
		r.Arm = domain.Arm(arm)
		r.UnitsSoldSameDay = int(sameDay)
		r.UnitsSoldTotal = int(total)
		r.RequestedUnits = int(requested)
		r.Availability = int(availability)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period record rows: %w", err)
	}

	return records, nil
}
