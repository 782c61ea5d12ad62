package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"switchback-market-lab/internal/observability"
	"switchback-market-lab/internal/reporting"
	pgstore "switchback-market-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	format := flag.String("format", "markdown", "Output format: markdown, csv")
	outPath := flag.String("out", "", "Write report to this file (default stdout)")
	trueGradient := flag.String("true-gradient", "", "Known true demand gradient, enables bias and coverage columns")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	*format = strings.ToLower(*format)
	if *format != "markdown" && *format != "csv" {
		logger.Fatalf("Invalid format: %s. Must be markdown or csv", *format)
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

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	generator := reporting.NewGenerator(pgstore.NewRunStore(pool), pgstore.NewEstimateStore(pool))
	if *trueGradient != "" {
		var truth float64
		if _, err := fmt.Sscanf(*trueGradient, "%f", &truth); err != nil {
			logger.Fatalf("parse --true-gradient: %v", err)
		}
		generator = generator.WithTrueGradient(truth)
	}

	report, err := generator.Generate(ctx)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}
	observability.DefaultMetrics.ReportsGenerated.Inc()

	var output string
	switch *format {
	case "csv":
		output = reporting.RenderEstimatesCSV(report.EstimateSummaries, report.HasTruth) +
			"\n" + reporting.RenderCSV(report.Runs)
	default:
		output = reporting.RenderMarkdown(report)
	}

	if *outPath == "" {
		fmt.Print(output)
		return
	}
	if err := os.WriteFile(*outPath, []byte(output), 0o644); err != nil {
		logger.Fatalf("write report: %v", err)
	}
	logger.Printf("Wrote %s report to %s (%d runs)", *format, *outPath, report.RunCount)
}
