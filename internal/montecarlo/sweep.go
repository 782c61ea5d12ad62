// Package montecarlo executes seed sweeps: many independent simulation runs
// of one configuration, followed by cross-run aggregation of the gradient
// estimates. Flow: simulate -> estimate -> persist -> aggregate.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"switchback-market-lab/internal/config"
	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/estimator"
	"switchback-market-lab/internal/market"
	"switchback-market-lab/internal/observability"
	"switchback-market-lab/internal/runid"
	"switchback-market-lab/internal/storage"
)

// defaultWorkers bounds sweep parallelism when the caller does not.
const defaultWorkers = 4

// Options for creating a sweep Runner.
type Options struct {
	// Config is the shared run configuration; each seed overrides cfg.Seed.
	Config *config.Config
	Seeds  []int64

	Workers int

	// Optional stores. A nil store skips that persistence step.
	RunStore      storage.RunStore
	PeriodStore   storage.PeriodRecordStore
	EstimateStore storage.EstimateStore

	Verbose bool
}

// Runner executes a Monte Carlo sweep.
type Runner struct {
	opts Options
}

// New creates a new sweep Runner.
func New(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Runner{opts: opts}
}

// VariantSummary aggregates one estimator variant across runs.
type VariantSummary struct {
	Estimator string
	Censoring string

	// Runs counts non-degenerate estimates entering the aggregate;
	// Degenerate counts estimates that produced no usable contrast.
	Runs       int
	Degenerate int

	MeanGradient float64
	StdDev       float64
	MeanStdErr   float64

	// Bias and Coverage are populated only when the configuration carries
	// a known true gradient.
	HasTruth bool
	Bias     float64
	Coverage float64
}

// SweepResult contains results from sweep execution.
type SweepResult struct {
	Runs       []*domain.RunResult
	RunsFailed int
	Errors     []string

	Summaries []VariantSummary

	MeanConsumerSurplus float64
	MeanProducerSurplus float64
	StockoutRate        float64

	Elapsed time.Duration
}

type runOutcome struct {
	seed   int64
	result *domain.RunResult
	err    error
}

// Run executes every seed through a bounded worker pool, persists what the
// configured stores accept, and aggregates the estimates.
func (r *Runner) Run(ctx context.Context) (*SweepResult, error) {
	if r.opts.Config == nil {
		return nil, fmt.Errorf("sweep: nil config")
	}
	if len(r.opts.Seeds) == 0 {
		return nil, fmt.Errorf("sweep: no seeds")
	}

	start := time.Now()
	observability.DefaultMetrics.SweepRunsQueued.Set(float64(len(r.opts.Seeds)))

	jobs := make(chan int64)
	outcomes := make(chan runOutcome)

	var wg sync.WaitGroup
	for w := 0; w < r.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range jobs {
				res, err := r.simulateSeed(ctx, seed)
				outcomes <- runOutcome{seed: seed, result: res, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, seed := range r.opts.Seeds {
			select {
			case jobs <- seed:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := &SweepResult{}
	for out := range outcomes {
		observability.DefaultMetrics.SweepRunsQueued.Dec()
		if out.err != nil {
			result.RunsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("seed %d: %v", out.seed, out.err))
			r.log("seed %d failed: %v", out.seed, out.err)
			continue
		}
		result.Runs = append(result.Runs, out.result)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(result.Runs, func(i, j int) bool {
		return result.Runs[i].Seed < result.Runs[j].Seed
	})

	r.aggregate(result)
	result.Elapsed = time.Since(start)
	observability.DefaultMetrics.SweepDuration.Observe(result.Elapsed.Seconds())

	r.log("sweep completed: %d runs, %d failed, %s", len(result.Runs), result.RunsFailed, result.Elapsed)
	return result, nil
}

// simulateSeed runs one seed end to end: simulate, estimate, persist.
func (r *Runner) simulateSeed(ctx context.Context, seed int64) (*domain.RunResult, error) {
	runStart := time.Now()

	cfg := *r.opts.Config
	cfg.Seed = seed
	id := runid.Compute(cfg.Fingerprint(), seed)

	m, err := market.FromConfig(&cfg, id)
	if err != nil {
		return nil, fmt.Errorf("compose market: %w", err)
	}

	res, err := m.Run(ctx)
	if err != nil {
		observability.RecordRun("failed", 0, 0, time.Since(runStart).Seconds())
		return nil, fmt.Errorf("run market: %w", err)
	}
	res.Seed = seed

	set := estimator.Compute(id, res.Panel, cfg.Levels(), cfg.ArmProbs())
	res.Estimates = &set
	for _, e := range set.All() {
		observability.RecordEstimate(e.Estimator, e.Censoring, e.OK)
	}

	if err := r.persist(ctx, res); err != nil {
		return nil, err
	}

	observability.RecordRun("completed", res.Horizon, res.StockoutPeriods, time.Since(runStart).Seconds())
	return res, nil
}

// persist writes the run to whichever stores are configured. Duplicate keys
// mean the identical configuration and seed were already swept; those are
// skipped, not failed.
func (r *Runner) persist(ctx context.Context, res *domain.RunResult) error {
	if r.opts.RunStore != nil {
		if err := r.opts.RunStore.Insert(ctx, res); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return nil
			}
			return fmt.Errorf("store run %s: %w", res.RunID, err)
		}
	}

	if r.opts.PeriodStore != nil {
		if err := r.opts.PeriodStore.InsertBulk(ctx, res.Panel); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("store panel %s: %w", res.RunID, err)
		}
	}

	if r.opts.EstimateStore != nil && res.Estimates != nil {
		all := res.Estimates.All()
		estimates := make([]*domain.Estimate, 0, len(all))
		for i := range all {
			estimates = append(estimates, &all[i])
		}
		if err := r.opts.EstimateStore.InsertBulk(ctx, estimates); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("store estimates %s: %w", res.RunID, err)
		}
	}

	return nil
}

// aggregate fills cross-run summaries: per-variant gradient moments and,
// when a true gradient is configured, bias and CI coverage.
func (r *Runner) aggregate(result *SweepResult) {
	if len(result.Runs) == 0 {
		return
	}

	var stockouts, periods int
	for _, run := range result.Runs {
		result.MeanConsumerSurplus += run.ConsumerSurplus
		result.MeanProducerSurplus += run.ProducerSurplus
		stockouts += run.StockoutPeriods
		periods += run.Horizon
	}
	n := float64(len(result.Runs))
	result.MeanConsumerSurplus /= n
	result.MeanProducerSurplus /= n
	if periods > 0 {
		result.StockoutRate = float64(stockouts) / float64(periods)
	}

	variants := []struct{ estimator, censoring string }{
		{domain.EstimatorSameDay, domain.CensoringNaive},
		{domain.EstimatorSameDay, domain.CensoringAdjusted},
		{domain.EstimatorTotal, domain.CensoringNaive},
		{domain.EstimatorTotal, domain.CensoringAdjusted},
	}

	for _, v := range variants {
		summary := VariantSummary{Estimator: v.estimator, Censoring: v.censoring}

		var gradients, stdErrs []float64
		var covered int
		for _, run := range result.Runs {
			if run.Estimates == nil {
				continue
			}
			for _, e := range run.Estimates.All() {
				if e.Estimator != v.estimator || e.Censoring != v.censoring {
					continue
				}
				if !e.OK {
					summary.Degenerate++
					continue
				}
				gradients = append(gradients, e.Gradient)
				stdErrs = append(stdErrs, e.StdErr)
				if r.opts.Config.TrueGradient != nil {
					truth := *r.opts.Config.TrueGradient
					if e.CILow <= truth && truth <= e.CIHigh {
						covered++
					}
				}
			}
		}

		summary.Runs = len(gradients)
		if summary.Runs > 0 {
			summary.MeanGradient = mean(gradients)
			summary.StdDev = stdDev(gradients, summary.MeanGradient)
			summary.MeanStdErr = mean(stdErrs)
			if r.opts.Config.TrueGradient != nil {
				summary.HasTruth = true
				summary.Bias = summary.MeanGradient - *r.opts.Config.TrueGradient
				summary.Coverage = float64(covered) / float64(summary.Runs)
			}
		}

		result.Summaries = append(result.Summaries, summary)
	}
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

func (r *Runner) log(format string, args ...interface{}) {
	if r.opts.Verbose {
		log.Printf("[sweep] "+format, args...)
	}
}
