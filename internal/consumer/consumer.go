// Package consumer implements purchase decision policies. Each policy is a
// pure strategy function over explicit state: beliefs are passed in, never
// read from ambient globals, so runs stay reproducible and parallelizable.
package consumer

import (
	"fmt"

	"switchback-market-lab/internal/domain"
)

// Decision is the outcome of a consumer's per-period choice.
type Decision string

// Decision constants.
const (
	DecisionBuy   Decision = "buy"
	DecisionWait  Decision = "wait"
	DecisionLeave Decision = "leave"
)

// Belief is the consumer's model of future prices and availability.
// Shared by every consumer in a period, passed explicitly.
type Belief struct {
	Levels domain.PriceLevels
	// Probs are arm probabilities in (high, mid, low) order.
	Probs [3]float64
	// AvailabilityProb is the believed probability stock is on hand when
	// a future purchase is attempted.
	AvailabilityProb float64
	// DiscountFactor is the same delta used in surplus accounting.
	DiscountFactor float64
}

// prices returns the levels in the same order as Probs.
func (b Belief) prices() [3]float64 {
	return [3]float64{b.Levels.High, b.Levels.Mid, b.Levels.Low}
}

// DecisionInput is everything a policy may condition on.
type DecisionInput struct {
	Period            int
	Price             float64
	Available         bool
	RemainingPatience int
	Valuation         float64
	Belief            Belief
}

// Decider is the polymorphic consumer capability.
type Decider interface {
	// Decide returns buy, wait, or leave for one period.
	Decide(in DecisionInput) Decision

	// Name returns the policy identifier.
	Name() string
}

// FromPolicy builds a Decider for a configured policy name.
func FromPolicy(policy domain.ConsumerPolicy) (Decider, error) {
	switch policy {
	case domain.ConsumerMyopic:
		return &Myopic{}, nil
	case domain.ConsumerForwardLooking:
		return &ForwardLooking{}, nil
	case domain.ConsumerInfiniteHz:
		return &InfiniteHorizon{}, nil
	default:
		return nil, fmt.Errorf("unknown consumer policy: %q", policy)
	}
}
