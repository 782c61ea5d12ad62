package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"switchback-market-lab/internal/config"
	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/estimator"
	"switchback-market-lab/internal/market"
	"switchback-market-lab/internal/runid"
	"switchback-market-lab/internal/storage/sqlite"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML run configuration (required)")
	seed := flag.Int64("seed", -1, "Override the configured seed")
	sqlitePath := flag.String("sqlite", "", "Archive the run to this SQLite database")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	verbose := flag.Bool("verbose", false, "Log per-period progress")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *seed >= 0 {
		cfg.Seed = *seed
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

	id := runid.Compute(cfg.Fingerprint(), cfg.Seed)
	logger.Printf("Running simulation: run=%s seed=%d horizon=%d", id, cfg.Seed, cfg.Horizon)

	m, err := market.FromConfig(cfg, id)
	if err != nil {
		logger.Fatalf("compose market: %v", err)
	}
	m.SetVerbose(*verbose)

	result, err := m.Run(ctx)
	if err != nil {
		logger.Fatalf("simulation failed: %v", err)
	}
	result.Seed = cfg.Seed

	set := estimator.Compute(id, result.Panel, cfg.Levels(), cfg.ArmProbs())
	result.Estimates = &set

	if *sqlitePath != "" {
		recorder, err := sqlite.NewRecorder(*sqlitePath)
		if err != nil {
			logger.Fatalf("open sqlite archive: %v", err)
		}
		defer recorder.Close()

		if err := recorder.RecordRun(result); err != nil {
			logger.Fatalf("archive run: %v", err)
		}
		logger.Printf("Archived run to %s", *sqlitePath)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		printRunResult(result)
	}
}

// printRunResult outputs a human-readable run summary.
func printRunResult(r *domain.RunResult) {
	fmt.Println()
	fmt.Println("=== Simulation Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Seed:               %d\n", r.Seed)
	fmt.Printf("Horizon:            %d periods\n", r.Horizon)
	fmt.Println()

	fmt.Println("Market:")
	fmt.Printf("  Units Sold:       %d\n", r.UnitsSold)
	fmt.Printf("  Stockout Periods: %d\n", r.StockoutPeriods)
	fmt.Printf("  Served:           %d consumers\n", r.ConsumersServed)
	fmt.Printf("  Departed:         %d consumers\n", r.ConsumersDeparted)
	fmt.Println()

	fmt.Println("Welfare:")
	fmt.Printf("  Consumer Surplus: %.4f\n", r.ConsumerSurplus)
	fmt.Printf("  Producer Surplus: %.4f\n", r.ProducerSurplus)
	fmt.Println()

	if r.Estimates == nil {
		return
	}
	fmt.Println("Demand Gradient Estimates:")
	for _, e := range r.Estimates.All() {
		if !e.OK {
			fmt.Printf("  %-9s %-9s degenerate: %s\n", e.Estimator, e.Censoring, e.Reason)
			continue
		}
		fmt.Printf("  %-9s %-9s %.4f (se %.4f, 95%% CI [%.4f, %.4f], %d periods)\n",
			e.Estimator, e.Censoring, e.Gradient, e.StdErr, e.CILow, e.CIHigh, e.PeriodsUsed)
	}
}
