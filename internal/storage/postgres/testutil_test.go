package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container for testing and applies the
// embedded migrations. Returns a cleanup function that must be called after
// tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	applySchema(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// applySchema creates the runs and estimates tables. Mirrors the embedded
// migration; kept inline so the store package has no import cycle with the
// migrations package.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id              TEXT PRIMARY KEY,
			seed                BIGINT NOT NULL,
			horizon             INTEGER NOT NULL,
			consumer_surplus    DOUBLE PRECISION NOT NULL,
			producer_surplus    DOUBLE PRECISION NOT NULL,
			units_sold          INTEGER NOT NULL,
			stockout_periods    INTEGER NOT NULL,
			consumers_served    INTEGER NOT NULL,
			consumers_departed  INTEGER NOT NULL,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs (seed);

		CREATE TABLE IF NOT EXISTS estimates (
			run_id            TEXT NOT NULL,
			estimator         TEXT NOT NULL,
			censoring         TEXT NOT NULL,
			gradient          DOUBLE PRECISION NOT NULL,
			variance          DOUBLE PRECISION NOT NULL,
			std_err           DOUBLE PRECISION NOT NULL,
			ci_low            DOUBLE PRECISION NOT NULL,
			ci_high           DOUBLE PRECISION NOT NULL,
			periods_used      INTEGER NOT NULL,
			periods_censored  INTEGER NOT NULL,
			ok                BOOLEAN NOT NULL,
			reason            TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (run_id, estimator, censoring)
		);
		CREATE INDEX IF NOT EXISTS idx_estimates_variant ON estimates (estimator, censoring);
	`

	_, err := pool.Exec(ctx, schema)
	require.NoError(t, err, "failed to apply schema")
}
