package domain

// RunResult is the finalized output of one simulation run: the immutable
// panel plus derived totals. Exposed read-only after the market closes.
type RunResult struct {
	RunID   string
	Seed    int64
	Horizon int

	Panel []*PeriodRecord

	ConsumerSurplus float64
	ProducerSurplus float64

	UnitsSold        int
	StockoutPeriods  int
	ConsumersServed  int
	ConsumersDeparted int // departed unserved

	Estimates *EstimateSet
}
