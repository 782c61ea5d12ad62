// Package inventory tracks on-hand stock, in-transit replenishment, and
// stock-out events for a firm. Pure state-transition logic; no pricing
// policy lives here.
package inventory

import "fmt"

// InvariantError reports a ledger state that should be unreachable.
// It indicates a defect in the clearing order and is never clamped away.
type InvariantError struct {
	Period int
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("inventory invariant violated at period %d: %s", e.Period, e.Detail)
}

// Options configures a ledger.
type Options struct {
	StartingStock   int
	ReorderPoint    int
	ReorderQuantity int
	LeadTime        int
	HoldingCostRate float64

	// Unlimited disables the inventory constraint: clearing always fills
	// the full requested quantity and no reorders are placed.
	Unlimited bool
}

// Ledger is a firm's inventory state. Mutated once per period in a fixed
// order: Receive, Clear, MaybeReorder, HoldingCost.
type Ledger struct {
	opts Options

	onHand    int
	inTransit map[int]int // arrival period -> quantity

	stockoutCount int
	unitsReceived int
	unitsOrdered  int
}

// NewLedger creates a ledger with the configured starting stock.
func NewLedger(opts Options) *Ledger {
	return &Ledger{
		opts:      opts,
		onHand:    opts.StartingStock,
		inTransit: make(map[int]int),
	}
}

// OnHand returns current stock. Always >= 0.
func (l *Ledger) OnHand() int { return l.onHand }

// Unlimited reports whether the inventory constraint is disabled.
func (l *Ledger) Unlimited() bool { return l.opts.Unlimited }

// StockoutCount returns cumulative stockout periods.
func (l *Ledger) StockoutCount() int { return l.stockoutCount }

// InTransit returns total units ordered but not yet arrived.
func (l *Ledger) InTransit() int {
	total := 0
	for _, q := range l.inTransit {
		total += q
	}
	return total
}

// Receive applies in-transit arrivals due this period.
func (l *Ledger) Receive(period int) int {
	qty := l.inTransit[period]
	if qty > 0 {
		l.onHand += qty
		l.unitsReceived += qty
		delete(l.inTransit, period)
	}
	return qty
}

// Clear deducts realized sales against requested demand. Returns the units
// actually sold and whether the period stocked out (requested exceeded
// pre-deduction on-hand). Unfilled demand is not carried here; the caller's
// stockout policy decides its fate.
func (l *Ledger) Clear(period, requested int) (sold int, stockout bool, err error) {
	if requested < 0 {
		return 0, false, &InvariantError{period, fmt.Sprintf("requested sales %d < 0", requested)}
	}

	if l.opts.Unlimited {
		return requested, false, nil
	}

	sold = requested
	if sold > l.onHand {
		sold = l.onHand
		stockout = true
		l.stockoutCount++
	}

	l.onHand -= sold
	if l.onHand < 0 {
		return 0, false, &InvariantError{period, fmt.Sprintf("on-hand %d < 0 after clearing", l.onHand)}
	}
	return sold, stockout, nil
}

// MaybeReorder places a replenishment order when on-hand has fallen to the
// reorder point. The order arrives LeadTime periods later. Returns the
// quantity ordered (0 if none).
func (l *Ledger) MaybeReorder(period int) int {
	if l.opts.Unlimited || l.opts.ReorderQuantity <= 0 {
		return 0
	}
	if l.onHand > l.opts.ReorderPoint {
		return 0
	}

	arrival := period + l.opts.LeadTime
	if l.opts.LeadTime == 0 {
		// Immediate replenishment: stock is usable next period, so apply
		// it now rather than routing through the in-transit map.
		l.onHand += l.opts.ReorderQuantity
	} else {
		l.inTransit[arrival] += l.opts.ReorderQuantity
	}
	l.unitsOrdered += l.opts.ReorderQuantity
	return l.opts.ReorderQuantity
}

// HoldingCost accrues on end-of-period on-hand stock.
func (l *Ledger) HoldingCost() float64 {
	if l.opts.Unlimited {
		return 0
	}
	return float64(l.onHand) * l.opts.HoldingCostRate
}
