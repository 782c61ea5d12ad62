package market

import (
	"math/rand"

	"switchback-market-lab/internal/config"
	"switchback-market-lab/internal/domain"
)

// population draws consumers from the configured valuation and patience
// distributions and schedules arrivals. One instance per run, seeded from
// the run seed; no state is shared across runs.
type population struct {
	rng       *rand.Rand
	cfg       *config.Config
	nextIndex int
}

func newPopulation(cfg *config.Config, rng *rand.Rand) *population {
	return &population{rng: rng, cfg: cfg}
}

// draw creates one consumer arriving at the given period.
func (p *population) draw(arrival int) *domain.ConsumerState {
	v := p.cfg.Valuation.Low
	if p.cfg.Valuation.High > p.cfg.Valuation.Low {
		v = p.cfg.Valuation.Low + p.rng.Float64()*(p.cfg.Valuation.High-p.cfg.Valuation.Low)
	}

	pat := p.cfg.Patience.Min
	if p.cfg.Patience.Max > p.cfg.Patience.Min {
		pat = p.cfg.Patience.Min + p.rng.Intn(p.cfg.Patience.Max-p.cfg.Patience.Min+1)
	}

	c := &domain.ConsumerState{
		Index:         p.nextIndex,
		Valuation:     v,
		Patience:      pat,
		ArrivalPeriod: arrival,
		Status:        domain.StatusActive,
	}
	p.nextIndex++
	return c
}

// initial returns the period-0 cohort.
func (p *population) initial() []*domain.ConsumerState {
	out := make([]*domain.ConsumerState, 0, p.cfg.PopulationSize)
	for i := 0; i < p.cfg.PopulationSize; i++ {
		out = append(out, p.draw(0))
	}
	return out
}

// arrivals returns consumers entering at a period > 0 under the configured
// arrival process. activeCount and recentAvgDemand feed the demand-linked
// growth process.
func (p *population) arrivals(period, activeCount int, recentAvgDemand float64) []*domain.ConsumerState {
	var n int
	switch p.cfg.Arrival.Process {
	case config.ArrivalConstant:
		n = p.cfg.Arrival.RatePerPeriod
	case config.ArrivalGrowth:
		// Growth responds to recent demand relative to population size,
		// anchored at a 10% target demand ratio.
		ratio := recentAvgDemand / float64(max(activeCount, 1))
		rate := p.cfg.Arrival.BaseGrowthRate + (ratio-0.1)*0.5
		if rate > p.cfg.Arrival.MaxGrowthRate {
			rate = p.cfg.Arrival.MaxGrowthRate
		}
		if rate < p.cfg.Arrival.MinGrowthRate {
			rate = p.cfg.Arrival.MinGrowthRate
		}
		n = int(float64(activeCount) * rate)
	default: // all_at_start
		return nil
	}

	if n <= 0 {
		return nil
	}
	out := make([]*domain.ConsumerState, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, p.draw(period))
	}
	return out
}
