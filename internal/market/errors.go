package market

import "fmt"

// InvariantError reports a state that the clearing order should make
// unreachable. Surfaced with full period context and never clamped,
// since silent repair would corrupt the experimental panel.
type InvariantError struct {
	Period int
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("state invariant violated at period %d: %s", e.Period, e.Detail)
}
