// Package sqlite provides a single-file local archive of sweep output for
// offline analysis. Unlike the server-backed stores it needs no running
// database, which suits laptop experimentation.
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"switchback-market-lab/internal/domain"
)

// Recorder persists runs, panels, and estimates to a SQLite database.
type Recorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewRecorder opens (or creates) the SQLite database and runs migrations.
func NewRecorder(dbPath string) (*Recorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so analysis tools can read while a sweep writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &Recorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return r, nil
}

func (r *Recorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id             TEXT PRIMARY KEY,
			seed               INTEGER NOT NULL,
			horizon            INTEGER NOT NULL,
			consumer_surplus   REAL NOT NULL,
			producer_surplus   REAL NOT NULL,
			units_sold         INTEGER NOT NULL,
			stockout_periods   INTEGER NOT NULL,
			consumers_served   INTEGER NOT NULL,
			consumers_departed INTEGER NOT NULL,
			recorded_at        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed)`,

		`CREATE TABLE IF NOT EXISTS period_records (
			run_id                     TEXT NOT NULL,
			period_index               INTEGER NOT NULL,
			arm                        TEXT NOT NULL,
			price                      REAL NOT NULL,
			units_sold_same_day        INTEGER NOT NULL,
			units_sold_total           INTEGER NOT NULL,
			requested_units            INTEGER NOT NULL,
			availability               INTEGER NOT NULL,
			stockout_flag              INTEGER NOT NULL,
			consumer_surplus_increment REAL NOT NULL,
			producer_surplus_increment REAL NOT NULL,
			PRIMARY KEY (run_id, period_index)
		)`,

		`CREATE TABLE IF NOT EXISTS estimates (
			run_id           TEXT NOT NULL,
			estimator        TEXT NOT NULL,
			censoring        TEXT NOT NULL,
			gradient         REAL NOT NULL,
			variance         REAL NOT NULL,
			std_err          REAL NOT NULL,
			ci_low           REAL NOT NULL,
			ci_high          REAL NOT NULL,
			periods_used     INTEGER NOT NULL,
			periods_censored INTEGER NOT NULL,
			ok               INTEGER NOT NULL,
			reason           TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, estimator, censoring)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun archives one run with its panel and estimates in a single
// transaction. Re-recording the same run_id is an error.
func (r *Recorder) RecordRun(res *domain.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(run_id, seed, horizon, consumer_surplus, producer_surplus,
		 units_sold, stockout_periods, consumers_served, consumers_departed, recorded_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		res.RunID, res.Seed, res.Horizon,
		res.ConsumerSurplus, res.ProducerSurplus,
		res.UnitsSold, res.StockoutPeriods, res.ConsumersServed, res.ConsumersDeparted,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, p := range res.Panel {
		_, err = tx.Exec(`INSERT INTO period_records
			(run_id, period_index, arm, price,
			 units_sold_same_day, units_sold_total, requested_units,
			 availability, stockout_flag,
			 consumer_surplus_increment, producer_surplus_increment)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			p.RunID, p.PeriodIndex, string(p.Arm), p.Price,
			p.UnitsSoldSameDay, p.UnitsSoldTotal, p.RequestedUnits,
			p.Availability, p.StockoutFlag,
			p.ConsumerSurplusIncrement, p.ProducerSurplusIncrement,
		)
		if err != nil {
			return fmt.Errorf("insert period record: %w", err)
		}
	}

	if res.Estimates != nil {
		for _, e := range res.Estimates.All() {
			_, err = tx.Exec(`INSERT INTO estimates
				(run_id, estimator, censoring, gradient, variance, std_err,
				 ci_low, ci_high, periods_used, periods_censored, ok, reason)
				VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
				e.RunID, e.Estimator, e.Censoring,
				e.Gradient, e.Variance, e.StdErr,
				e.CILow, e.CIHigh, e.PeriodsUsed, e.PeriodsCensored, e.OK, e.Reason,
			)
			if err != nil {
				return fmt.Errorf("insert estimate: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}
