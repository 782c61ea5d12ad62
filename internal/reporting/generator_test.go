package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/storage/memory"
)

func setupTestData(t *testing.T) (*memory.RunStore, *memory.EstimateStore) {
	ctx := context.Background()

	runStore := memory.NewRunStore()
	estimateStore := memory.NewEstimateStore()

	runs := []*domain.RunResult{
		{RunID: "run1", Seed: 1, Horizon: 100, UnitsSold: 40, StockoutPeriods: 10,
			ConsumersServed: 40, ConsumersDeparted: 5, ConsumerSurplus: 20, ProducerSurplus: 300},
		{RunID: "run2", Seed: 2, Horizon: 100, UnitsSold: 60, StockoutPeriods: 0,
			ConsumersServed: 60, ConsumersDeparted: 2, ConsumerSurplus: 40, ProducerSurplus: 500},
	}
	for _, r := range runs {
		if err := runStore.Insert(ctx, r); err != nil {
			t.Fatalf("Insert run failed: %v", err)
		}
	}

	estimates := []*domain.Estimate{
		{RunID: "run1", Estimator: domain.EstimatorSameDay, Censoring: domain.CensoringNaive,
			Gradient: -1.0, StdErr: 0.2, CILow: -1.392, CIHigh: -0.608, OK: true},
		{RunID: "run2", Estimator: domain.EstimatorSameDay, Censoring: domain.CensoringNaive,
			Gradient: -1.4, StdErr: 0.3, CILow: -1.988, CIHigh: -0.812, OK: true},
		{RunID: "run1", Estimator: domain.EstimatorSameDay, Censoring: domain.CensoringAdjusted,
			OK: false, Reason: "no usable periods under arm LOW"},
		{RunID: "run2", Estimator: domain.EstimatorSameDay, Censoring: domain.CensoringAdjusted,
			Gradient: -1.1, StdErr: 0.25, CILow: -1.59, CIHigh: -0.61, OK: true},
		{RunID: "run1", Estimator: domain.EstimatorTotal, Censoring: domain.CensoringNaive,
			Gradient: -0.9, StdErr: 0.4, CILow: -1.684, CIHigh: -0.116, OK: true},
	}
	if err := estimateStore.InsertBulk(ctx, estimates); err != nil {
		t.Fatalf("Insert estimates failed: %v", err)
	}

	return runStore, estimateStore
}

func TestGenerate_WithClock(t *testing.T) {
	ctx := context.Background()
	runStore, estimateStore := setupTestData(t)

	fixedTime := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	generator := NewGenerator(runStore, estimateStore).WithClock(func() time.Time {
		return fixedTime
	})

	report, err := generator.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !report.GeneratedAt.Equal(fixedTime) {
		t.Errorf("Expected GeneratedAt %v, got %v", fixedTime, report.GeneratedAt)
	}
}

func TestGenerate_WelfareAggregates(t *testing.T) {
	ctx := context.Background()
	runStore, estimateStore := setupTestData(t)

	report, err := NewGenerator(runStore, estimateStore).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.RunCount != 2 {
		t.Errorf("Expected 2 runs, got %d", report.RunCount)
	}
	w := report.Welfare
	if w.MeanConsumerSurplus != 30 || w.MeanProducerSurplus != 400 {
		t.Errorf("welfare means wrong: CS=%f PS=%f", w.MeanConsumerSurplus, w.MeanProducerSurplus)
	}
	if w.TotalUnitsSold != 100 || w.TotalPeriods != 200 {
		t.Errorf("totals wrong: sold=%d periods=%d", w.TotalUnitsSold, w.TotalPeriods)
	}
	// 10 stockout periods over 200.
	if w.StockoutRate != 0.05 {
		t.Errorf("Expected stockout rate 0.05, got %f", w.StockoutRate)
	}
}

func TestGenerate_AllVariantsSummarized(t *testing.T) {
	ctx := context.Background()
	runStore, estimateStore := setupTestData(t)

	report, err := NewGenerator(runStore, estimateStore).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(report.EstimateSummaries) != 4 {
		t.Fatalf("Expected 4 variant summaries, got %d", len(report.EstimateSummaries))
	}

	// SAME_DAY/NAIVE has two OK estimates with mean -1.2.
	sdNaive := report.EstimateSummaries[0]
	if sdNaive.Estimator != domain.EstimatorSameDay || sdNaive.Censoring != domain.CensoringNaive {
		t.Fatalf("unexpected variant order: %s/%s", sdNaive.Estimator, sdNaive.Censoring)
	}
	if sdNaive.Runs != 2 || sdNaive.MeanGradient != -1.2 {
		t.Errorf("Expected 2 runs mean -1.2, got %d / %f", sdNaive.Runs, sdNaive.MeanGradient)
	}

	// SAME_DAY/ADJUSTED has one degenerate estimate.
	sdAdj := report.EstimateSummaries[1]
	if sdAdj.Runs != 1 || sdAdj.Degenerate != 1 {
		t.Errorf("Expected 1 run / 1 degenerate, got %d / %d", sdAdj.Runs, sdAdj.Degenerate)
	}

	// TOTAL/ADJUSTED has no estimates at all.
	totalAdj := report.EstimateSummaries[3]
	if totalAdj.Runs != 0 || totalAdj.Degenerate != 0 {
		t.Errorf("Expected empty variant, got %d / %d", totalAdj.Runs, totalAdj.Degenerate)
	}
}

func TestGenerate_BiasAndCoverage(t *testing.T) {
	ctx := context.Background()
	runStore, estimateStore := setupTestData(t)

	// Truth -1.2: bias 0, both SAME_DAY/NAIVE CIs contain it.
	report, err := NewGenerator(runStore, estimateStore).WithTrueGradient(-1.2).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.HasTruth || report.TrueGradient != -1.2 {
		t.Fatalf("truth not carried: %t / %f", report.HasTruth, report.TrueGradient)
	}
	sdNaive := report.EstimateSummaries[0]
	if sdNaive.Bias != 0 {
		t.Errorf("Expected zero bias, got %f", sdNaive.Bias)
	}
	if sdNaive.Coverage != 1.0 {
		t.Errorf("Expected full coverage, got %f", sdNaive.Coverage)
	}
}

func TestGenerate_RunRowsSortedBySeed(t *testing.T) {
	ctx := context.Background()

	runStore := memory.NewRunStore()
	estimateStore := memory.NewEstimateStore()
	for _, r := range []*domain.RunResult{
		{RunID: "zzz", Seed: 1, Horizon: 10},
		{RunID: "aaa", Seed: 3, Horizon: 10},
		{RunID: "mmm", Seed: 2, Horizon: 10},
	} {
		if err := runStore.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	report, err := NewGenerator(runStore, estimateStore).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := []int64{1, 2, 3}
	for i, row := range report.Runs {
		if row.Seed != want[i] {
			t.Errorf("Position %d: expected seed %d, got %d", i, want[i], row.Seed)
		}
	}
}

func TestRenderMarkdown_Format(t *testing.T) {
	ctx := context.Background()
	runStore, estimateStore := setupTestData(t)

	report, err := NewGenerator(runStore, estimateStore).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	requiredSections := []string{
		"# Switchback Sweep Report",
		"## Welfare Summary",
		"## Gradient Estimates",
		"## Runs",
	}
	for _, section := range requiredSections {
		if !strings.Contains(md, section) {
			t.Errorf("Markdown missing section: %s", section)
		}
	}
	if strings.Contains(md, "Bias") {
		t.Error("Bias column must only appear when truth is known")
	}

	withTruth, err := NewGenerator(runStore, estimateStore).WithTrueGradient(-1.2).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(RenderMarkdown(withTruth), "Bias") {
		t.Error("Expected Bias column with known truth")
	}
}

func TestRenderCSV_Format(t *testing.T) {
	runs := []RunRow{
		{RunID: "run1", Seed: 1, Horizon: 100, UnitsSold: 40, ConsumerSurplus: 20, ProducerSurplus: 300},
	}

	csv := RenderCSV(runs)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "run_id,seed,horizon") {
		t.Errorf("CSV header is incorrect: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "run1,1,100,40") {
		t.Errorf("CSV row is incorrect: %s", lines[1])
	}
}

func TestRenderEstimatesCSV_TruthColumns(t *testing.T) {
	summaries := []EstimateSummaryRow{
		{Estimator: domain.EstimatorSameDay, Censoring: domain.CensoringNaive, Runs: 2, MeanGradient: -1.2},
	}

	plain := RenderEstimatesCSV(summaries, false)
	if strings.Contains(plain, "bias") {
		t.Error("bias column must be absent without truth")
	}

	withTruth := RenderEstimatesCSV(summaries, true)
	if !strings.Contains(withTruth, "bias,coverage") {
		t.Error("Expected bias and coverage columns with truth")
	}
}
