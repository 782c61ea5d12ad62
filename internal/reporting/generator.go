package reporting

import (
	"context"
	"math"
	"sort"
	"time"

	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	runStore      storage.RunStore
	estimateStore storage.EstimateStore
	trueGradient  *float64
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.RunStore, estimateStore storage.EstimateStore) *Generator {
	return &Generator{
		runStore:      runStore,
		estimateStore: estimateStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithTrueGradient enables the bias and coverage columns.
func (g *Generator) WithTrueGradient(truth float64) *Generator {
	g.trueGradient = &truth
	return g
}

// Generate produces a complete sweep report from the stores.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		RunCount:    len(runs),
		Welfare:     buildWelfare(runs),
		Runs:        buildRunRows(runs),
	}
	if g.trueGradient != nil {
		report.HasTruth = true
		report.TrueGradient = *g.trueGradient
	}

	variants := []struct{ estimator, censoring string }{
		{domain.EstimatorSameDay, domain.CensoringNaive},
		{domain.EstimatorSameDay, domain.CensoringAdjusted},
		{domain.EstimatorTotal, domain.CensoringNaive},
		{domain.EstimatorTotal, domain.CensoringAdjusted},
	}

	for _, v := range variants {
		estimates, err := g.estimateStore.GetByVariant(ctx, v.estimator, v.censoring)
		if err != nil {
			return nil, err
		}
		report.EstimateSummaries = append(report.EstimateSummaries,
			summarizeVariant(v.estimator, v.censoring, estimates, g.trueGradient))
	}

	return report, nil
}

// buildWelfare computes welfare aggregates across runs.
func buildWelfare(runs []*domain.RunResult) WelfareSummary {
	var w WelfareSummary
	if len(runs) == 0 {
		return w
	}

	for _, r := range runs {
		w.MeanConsumerSurplus += r.ConsumerSurplus
		w.MeanProducerSurplus += r.ProducerSurplus
		w.TotalUnitsSold += r.UnitsSold
		w.TotalPeriods += r.Horizon
		w.StockoutPeriods += r.StockoutPeriods
	}

	n := float64(len(runs))
	w.MeanConsumerSurplus /= n
	w.MeanProducerSurplus /= n
	if w.TotalPeriods > 0 {
		w.StockoutRate = float64(w.StockoutPeriods) / float64(w.TotalPeriods)
	}
	return w
}

// buildRunRows builds the per-run table sorted by seed.
func buildRunRows(runs []*domain.RunResult) []RunRow {
	rows := make([]RunRow, len(runs))
	for i, r := range runs {
		rows[i] = RunRow{
			RunID:             r.RunID,
			Seed:              r.Seed,
			Horizon:           r.Horizon,
			UnitsSold:         r.UnitsSold,
			StockoutPeriods:   r.StockoutPeriods,
			ConsumersServed:   r.ConsumersServed,
			ConsumersDeparted: r.ConsumersDeparted,
			ConsumerSurplus:   r.ConsumerSurplus,
			ProducerSurplus:   r.ProducerSurplus,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Seed != rows[j].Seed {
			return rows[i].Seed < rows[j].Seed
		}
		return rows[i].RunID < rows[j].RunID
	})

	return rows
}

// summarizeVariant aggregates one estimator variant across runs.
func summarizeVariant(estimator, censoring string, estimates []*domain.Estimate, truth *float64) EstimateSummaryRow {
	row := EstimateSummaryRow{Estimator: estimator, Censoring: censoring}

	var gradients, stdErrs []float64
	var covered int
	for _, e := range estimates {
		if !e.OK {
			row.Degenerate++
			continue
		}
		gradients = append(gradients, e.Gradient)
		stdErrs = append(stdErrs, e.StdErr)
		if truth != nil && e.CILow <= *truth && *truth <= e.CIHigh {
			covered++
		}
	}

	row.Runs = len(gradients)
	if row.Runs == 0 {
		return row
	}

	row.MeanGradient = mean(gradients)
	row.StdDev = stdDev(gradients, row.MeanGradient)
	row.MeanStdErr = mean(stdErrs)
	if truth != nil {
		row.Bias = row.MeanGradient - *truth
		row.Coverage = float64(covered) / float64(row.Runs)
	}
	return row
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stdDev(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}
