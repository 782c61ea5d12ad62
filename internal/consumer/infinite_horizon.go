package consumer

import "math"

// InfiniteHorizon uses a stationary reservation value instead of a
// patience-indexed one: the fixed point of
//
//	W = delta * E_p[ a*max(v-p, W) + (1-a)*W ]
//
// solved by value iteration. It approximates a very patient consumer and is
// cheaper than deep backward induction when patience is large.
type InfiniteHorizon struct{}

const (
	fixedPointTol     = 1e-10
	fixedPointMaxIter = 10000
)

// StationaryValue iterates the Bellman operator to its fixed point.
// With delta < 1 the operator is a contraction; delta == 1 is handled by
// the iteration cap.
func StationaryValue(valuation float64, b Belief) float64 {
	prices := b.prices()
	a := b.AvailabilityProb

	w := 0.0
	for iter := 0; iter < fixedPointMaxIter; iter++ {
		ev := 0.0
		for i, p := range prices {
			stop := valuation - p
			if stop < w {
				stop = w
			}
			ev += b.Probs[i] * (a*stop + (1-a)*w)
		}
		next := b.DiscountFactor * ev
		if math.Abs(next-w) < fixedPointTol {
			return next
		}
		w = next
	}
	return w
}

// Decide buys iff available and the current surplus beats the stationary
// continuation value. A consumer out of patience falls back to the myopic
// rule; stocked-out periods force wait-or-leave.
func (s *InfiniteHorizon) Decide(in DecisionInput) Decision {
	if !in.Available {
		if in.RemainingPatience > 0 {
			return DecisionWait
		}
		return DecisionLeave
	}

	if in.RemainingPatience <= 0 {
		if in.Valuation >= in.Price {
			return DecisionBuy
		}
		return DecisionLeave
	}

	w := StationaryValue(in.Valuation, in.Belief)
	if in.Valuation-in.Price >= w {
		return DecisionBuy
	}
	return DecisionWait
}

// Name returns the policy identifier.
func (s *InfiniteHorizon) Name() string { return "infinite" }

var _ Decider = (*InfiniteHorizon)(nil)
