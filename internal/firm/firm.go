// Package firm implements pricing policies. Each policy is a pure strategy
// over explicit state, selected by factory; the market owns all mutable
// per-period bookkeeping.
package firm

import (
	"switchback-market-lab/internal/domain"
)

// PricingPolicy produces the posted price for a period.
type PricingPolicy interface {
	// Post returns the price and treatment arm for a period, given the
	// pre-period on-hand stock (some policies suppress discounts when
	// inventory runs low). The returned arm is what gets recorded in the
	// panel: the estimator must see what was actually posted.
	Post(period, onHand int) (price float64, arm domain.Arm)

	// Name returns the policy identifier.
	Name() string
}

// Baseline posts a fixed price every period. The recorded arm is the one
// matching the price, or ArmMid when the price is not a design level.
type Baseline struct {
	Price  float64
	Levels domain.PriceLevels
}

// Post returns the fixed price.
func (b *Baseline) Post(_, _ int) (float64, domain.Arm) {
	return b.Price, b.armFor(b.Price)
}

func (b *Baseline) armFor(price float64) domain.Arm {
	switch price {
	case b.Levels.Low:
		return domain.ArmLow
	case b.Levels.High:
		return domain.ArmHigh
	default:
		return domain.ArmMid
	}
}

// Name returns the policy identifier.
func (b *Baseline) Name() string { return "baseline" }

var _ PricingPolicy = (*Baseline)(nil)

// Scripted posts a fixed per-period schedule. Test hook, mirroring the
// deterministic stub policies used elsewhere in the repo.
type Scripted struct {
	Prices []float64
	Arms   []domain.Arm
}

// Post returns the scripted price for the period, repeating the last entry
// past the end of the script.
func (s *Scripted) Post(period, _ int) (float64, domain.Arm) {
	i := period
	if i >= len(s.Prices) {
		i = len(s.Prices) - 1
	}
	arm := domain.ArmMid
	if i < len(s.Arms) {
		arm = s.Arms[i]
	}
	return s.Prices[i], arm
}

// Name returns the policy identifier.
func (s *Scripted) Name() string { return "scripted" }

var _ PricingPolicy = (*Scripted)(nil)
