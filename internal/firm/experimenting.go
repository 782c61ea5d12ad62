package firm

import (
	"math/rand"

	"switchback-market-lab/internal/domain"
)

// ExperimentingOptions configures the switchback design.
type ExperimentingOptions struct {
	Levels domain.PriceLevels
	// Probs are arm assignment probabilities in (high, mid, low) order.
	Probs [3]float64
	// Delta is the per-period probability the experiment ends; after it
	// ends every remaining period posts the reference (high) price.
	Delta float64
	// MinInventoryThreshold suppresses discount arms when pre-period
	// on-hand stock is below it. 0 disables the override.
	MinInventoryThreshold int
	// Seed drives the schedule draw. Same seed, same schedule.
	Seed    int64
	Horizon int
}

// Experimenting runs a pre-committed three-level switchback price schedule.
// The full schedule is drawn at construction from the firm's own seeded
// RNG, so the assignment sequence is replayable for the estimator's
// identification argument. The only runtime deviation is the low-inventory
// override, and the posted (not scheduled) arm is what the market records.
type Experimenting struct {
	opts     ExperimentingOptions
	schedule []domain.Arm
}

// NewExperimenting draws the switchback schedule.
func NewExperimenting(opts ExperimentingOptions) *Experimenting {
	rng := rand.New(rand.NewSource(opts.Seed))

	schedule := make([]domain.Arm, opts.Horizon)
	active := true
	for t := range schedule {
		if active && opts.Delta > 0 && rng.Float64() < opts.Delta {
			active = false
		}
		if !active {
			schedule[t] = domain.ArmHigh
			continue
		}
		schedule[t] = sampleArm(rng, opts.Probs)
	}

	return &Experimenting{opts: opts, schedule: schedule}
}

// sampleArm draws one arm from the (high, mid, low) probability vector.
func sampleArm(rng *rand.Rand, probs [3]float64) domain.Arm {
	u := rng.Float64()
	switch {
	case u < probs[0]:
		return domain.ArmHigh
	case u < probs[0]+probs[1]:
		return domain.ArmMid
	default:
		return domain.ArmLow
	}
}

// Schedule returns the pre-committed arm sequence.
func (e *Experimenting) Schedule() []domain.Arm {
	out := make([]domain.Arm, len(e.schedule))
	copy(out, e.schedule)
	return out
}

// ScheduledArm returns the pre-committed arm for a period, before any
// inventory override.
func (e *Experimenting) ScheduledArm(period int) domain.Arm {
	if period < 0 || period >= len(e.schedule) {
		return domain.ArmHigh
	}
	return e.schedule[period]
}

// Post returns the posted price and arm for a period. When stock has
// fallen below the threshold the firm does not offer discounts and posts
// the reference price instead.
func (e *Experimenting) Post(period, onHand int) (float64, domain.Arm) {
	arm := e.ScheduledArm(period)

	if e.opts.MinInventoryThreshold > 0 && onHand < e.opts.MinInventoryThreshold {
		arm = domain.ArmHigh
	}

	return e.opts.Levels.PriceFor(arm), arm
}

// Name returns the policy identifier.
func (e *Experimenting) Name() string { return "switchback" }

var _ PricingPolicy = (*Experimenting)(nil)
