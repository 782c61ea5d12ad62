// Package estimator implements the three-point demand gradient estimators
// for switchback panels. Two variants (same-day sales, unbiased under
// forward-looking demand; total sales, biased) crossed with two censoring
// treatments (naive keeps stockout periods, adjusted drops them).
package estimator

import (
	"fmt"
	"math"

	"switchback-market-lab/internal/domain"
)

// zCritical95 is the two-sided normal critical value for 95% intervals.
const zCritical95 = 1.96

// Compute evaluates all four estimator variants over a run's panel.
// probs is the arm probability vector in reference-first order
// (q_high, q_mid, q_low).
func Compute(runID string, panel []*domain.PeriodRecord, levels domain.PriceLevels, probs [3]float64) domain.EstimateSet {
	return domain.EstimateSet{
		SameDayNaive:    estimate(runID, domain.EstimatorSameDay, domain.CensoringNaive, panel, levels, probs),
		SameDayAdjusted: estimate(runID, domain.EstimatorSameDay, domain.CensoringAdjusted, panel, levels, probs),
		TotalNaive:      estimate(runID, domain.EstimatorTotal, domain.CensoringNaive, panel, levels, probs),
		TotalAdjusted:   estimate(runID, domain.EstimatorTotal, domain.CensoringAdjusted, panel, levels, probs),
	}
}

// estimate computes one variant. The gradient is a linear contrast of the
// three per-arm mean demands; its variance follows by independence of
// periods: sum over arms of c_i^2 * s_i^2 / n_i.
func estimate(runID, kind, censoring string, panel []*domain.PeriodRecord, levels domain.PriceLevels, probs [3]float64) domain.Estimate {
	est := domain.Estimate{
		RunID:     runID,
		Estimator: kind,
		Censoring: censoring,
	}

	samples := make(map[domain.Arm][]float64, len(domain.Arms))
	for _, rec := range panel {
		if censoring == domain.CensoringAdjusted && rec.StockoutFlag {
			est.PeriodsCensored++
			continue
		}
		obs := float64(rec.UnitsSoldTotal)
		if kind == domain.EstimatorSameDay {
			obs = float64(rec.UnitsSoldSameDay)
		}
		samples[rec.Arm] = append(samples[rec.Arm], obs)
		est.PeriodsUsed++
	}

	for _, arm := range domain.Arms {
		if len(samples[arm]) == 0 {
			est.Reason = fmt.Sprintf("no usable periods under arm %s", arm)
			return est
		}
	}

	step := levels.Step()
	if step <= 0 {
		est.Reason = "price levels are not strictly increasing"
		return est
	}

	// Contrast coefficients over (mean_high, mean_mid, mean_low).
	// r = q_low / q_mid appears in both designs because the mid and low
	// arms carry the local price variation around the reference.
	r := probs[2] / probs[1]
	var coef [3]float64
	switch kind {
	case domain.EstimatorSameDay:
		// (N_mid - N_low - r*(N_high - 2*N_mid + N_low)) / step
		coef = [3]float64{-r / step, (1 + 2*r) / step, -(1 + r) / step}
	default:
		// q_low*(1+r) * (2*C_mid - C_high - C_low) / step
		s := probs[2] * (1 + r)
		coef = [3]float64{-s / step, 2 * s / step, -s / step}
	}

	var gradient, variance float64
	for i, arm := range domain.Arms {
		vals := samples[arm]
		m := mean(vals)
		gradient += coef[i] * m
		variance += coef[i] * coef[i] * sampleVariance(vals, m) / float64(len(vals))
	}

	est.Gradient = gradient
	est.Variance = variance
	est.StdErr = math.Sqrt(variance)
	est.CILow = gradient - zCritical95*est.StdErr
	est.CIHigh = gradient + zCritical95*est.StdErr
	est.OK = true
	return est
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleVariance returns the unbiased sample variance, or 0 for a single
// observation.
func sampleVariance(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(vals)-1)
}
