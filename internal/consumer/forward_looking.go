package consumer

// ForwardLooking solves a finite-horizon optimal-stopping problem by
// backward induction over the remaining patience window.
//
// With k waiting periods left, the continuation value of not buying now is
//
//	W(0) = 0
//	W(k) = delta * E_p[ a*max(v-p, W(k-1)) + (1-a)*W(k-1) ]
//
// where the expectation runs over the three believed price levels and a is
// the believed availability probability. The consumer buys now iff stock is
// available and v - price >= W(k); ties resolve to buy so the policy is
// well defined.
type ForwardLooking struct{}

// ContinuationValue computes W(remaining) for a valuation under a belief.
func ContinuationValue(valuation float64, remaining int, b Belief) float64 {
	if remaining <= 0 {
		return 0
	}

	prices := b.prices()
	a := b.AvailabilityProb

	w := 0.0
	for k := 1; k <= remaining; k++ {
		ev := 0.0
		for i, p := range prices {
			stop := valuation - p
			if stop < w {
				stop = w
			}
			ev += b.Probs[i] * (a*stop + (1-a)*w)
		}
		w = b.DiscountFactor * ev
	}
	return w
}

// Decide applies the optimal-stopping rule for one period.
func (f *ForwardLooking) Decide(in DecisionInput) Decision {
	if !in.Available {
		// Buy-now is off the table regardless of valuation.
		if in.RemainingPatience > 0 {
			return DecisionWait
		}
		return DecisionLeave
	}

	if in.RemainingPatience <= 0 {
		// Last chance: collapses to the myopic rule.
		if in.Valuation >= in.Price {
			return DecisionBuy
		}
		return DecisionLeave
	}

	w := ContinuationValue(in.Valuation, in.RemainingPatience, in.Belief)
	if in.Valuation-in.Price >= w {
		return DecisionBuy
	}
	return DecisionWait
}

// Name returns the policy identifier.
func (f *ForwardLooking) Name() string { return "forward" }

var _ Decider = (*ForwardLooking)(nil)
