package consumer

// Myopic buys immediately whenever the posted price is affordable and stock
// is on hand, and otherwise leaves. It never waits; it is the zero-patience
// limit of the forward-looking policy.
type Myopic struct{}

// Decide buys iff available and valuation >= price.
func (m *Myopic) Decide(in DecisionInput) Decision {
	if in.Available && in.Valuation >= in.Price {
		return DecisionBuy
	}
	return DecisionLeave
}

// Name returns the policy identifier.
func (m *Myopic) Name() string { return "myopic" }

var _ Decider = (*Myopic)(nil)
