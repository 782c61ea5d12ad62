package domain

import "fmt"

// Status is the lifecycle state of a consumer. Transitions are absorbing:
// once a consumer leaves StatusActive it never returns.
type Status string

// Status constants.
const (
	StatusActive    Status = "active"
	StatusPurchased Status = "purchased"
	StatusDeparted  Status = "departed" // exited unserved
)

// ConsumerState is a consumer's private state. Only the market's clearing
// step mutates Status; everything else is fixed at creation.
type ConsumerState struct {
	Index         int // position in the population, used for deterministic tie-breaks
	Valuation     float64
	Patience      int // maximum periods willing to wait, >= 0
	ArrivalPeriod int
	Status        Status

	// Set by the clearing step on purchase.
	PurchasePeriod int
	PurchasePrice  float64
}

// RemainingPatience returns how many more periods the consumer can wait
// at the given period. Zero means this period is the last chance.
func (c *ConsumerState) RemainingPatience(period int) int {
	return c.ArrivalPeriod + c.Patience - period
}

// Absorb moves the consumer out of StatusActive. Returns an error if the
// consumer is already absorbed, which indicates a clearing-order defect.
func (c *ConsumerState) Absorb(to Status) error {
	if c.Status != StatusActive {
		return fmt.Errorf("consumer %d already %s, cannot transition to %s", c.Index, c.Status, to)
	}
	if to == StatusActive {
		return fmt.Errorf("consumer %d: cannot absorb into active", c.Index)
	}
	c.Status = to
	return nil
}
