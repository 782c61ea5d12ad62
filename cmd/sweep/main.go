package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"switchback-market-lab/internal/config"
	"switchback-market-lab/internal/montecarlo"
	"switchback-market-lab/internal/observability"
	"switchback-market-lab/internal/storage"
	chstore "switchback-market-lab/internal/storage/clickhouse"
	"switchback-market-lab/internal/storage/memory"
	"switchback-market-lab/internal/storage/migrations"
	pgstore "switchback-market-lab/internal/storage/postgres"
	"switchback-market-lab/internal/storage/sqlite"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML run configuration (required)")
	runs := flag.Int("runs", 100, "Number of seeds to sweep")
	baseSeed := flag.Int64("base-seed", 1, "First seed; seeds are consecutive from here")
	workers := flag.Int("workers", 4, "Parallel simulation workers")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (runs, estimates)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (period panel)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	sqlitePath := flag.String("sqlite", "", "Also archive runs to this SQLite database")

	// Observability
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	verbose := flag.Bool("verbose", false, "Log per-seed progress")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[sweep] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}
	if *runs <= 0 {
		logger.Fatal("--runs must be positive")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Metrics endpoint
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Serving metrics on %s/metrics", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	// Create stores
	var runStore storage.RunStore
	var periodStore storage.PeriodRecordStore
	var estimateStore storage.EstimateStore

	switch {
	case *useMemory:
		runStore = memory.NewRunStore()
		periodStore = memory.NewPeriodRecordStore()
		estimateStore = memory.NewEstimateStore()
	case *postgresDSN != "" || *clickhouseDSN != "":
		if *postgresDSN != "" {
			pool, err := pgstore.NewPool(ctx, *postgresDSN)
			if err != nil {
				logger.Fatalf("connect to postgres: %v", err)
			}
			defer pool.Close()

			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				logger.Fatalf("migrate postgres: %v", err)
			}
			runStore = pgstore.NewRunStore(pool)
			estimateStore = pgstore.NewEstimateStore(pool)
		}
		if *clickhouseDSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatalf("migrate clickhouse: %v", err)
			}
			defer conn.Close()

			periodStore = chstore.NewPeriodRecordStore(conn)
		}
	}

	seeds := make([]int64, *runs)
	for i := range seeds {
		seeds[i] = *baseSeed + int64(i)
	}

	runner := montecarlo.New(montecarlo.Options{
		Config:        cfg,
		Seeds:         seeds,
		Workers:       *workers,
		RunStore:      runStore,
		PeriodStore:   periodStore,
		EstimateStore: estimateStore,
		Verbose:       *verbose,
	})

	logger.Printf("Sweeping %d seeds (base %d, %d workers)", *runs, *baseSeed, *workers)
	result, err := runner.Run(ctx)
	if err != nil {
		logger.Fatalf("sweep failed: %v", err)
	}

	if *sqlitePath != "" {
		recorder, err := sqlite.NewRecorder(*sqlitePath)
		if err != nil {
			logger.Fatalf("open sqlite archive: %v", err)
		}
		defer recorder.Close()

		for _, run := range result.Runs {
			if err := recorder.RecordRun(run); err != nil {
				logger.Fatalf("archive run %s: %v", run.RunID, err)
			}
		}
		logger.Printf("Archived %d runs to %s", len(result.Runs), *sqlitePath)
	}

	printSweepResult(result)

	if result.RunsFailed > 0 {
		for _, msg := range result.Errors {
			logger.Printf("error: %s", msg)
		}
		os.Exit(1)
	}
}

// printSweepResult outputs a human-readable sweep summary.
func printSweepResult(r *montecarlo.SweepResult) {
	fmt.Println()
	fmt.Println("=== Sweep Result ===")
	fmt.Printf("Runs:               %d completed, %d failed (%s)\n", len(r.Runs), r.RunsFailed, r.Elapsed)
	fmt.Printf("Mean CS:            %.4f\n", r.MeanConsumerSurplus)
	fmt.Printf("Mean PS:            %.4f\n", r.MeanProducerSurplus)
	fmt.Printf("Stockout Rate:      %.4f\n", r.StockoutRate)
	fmt.Println()

	fmt.Println("Gradient Estimates:")
	for _, s := range r.Summaries {
		line := fmt.Sprintf("  %-9s %-9s runs=%d degenerate=%d mean=%.4f sd=%.4f se=%.4f",
			s.Estimator, s.Censoring, s.Runs, s.Degenerate, s.MeanGradient, s.StdDev, s.MeanStdErr)
		if s.HasTruth {
			line += fmt.Sprintf(" bias=%.4f coverage=%.2f", s.Bias, s.Coverage)
		}
		fmt.Println(line)
	}
}
