package domain

// PeriodRecord is one row of the experimental panel. The market appends
// exactly one per period; records are immutable once written.
type PeriodRecord struct {
	RunID       string
	PeriodIndex int
	Arm         Arm
	Price       float64

	// UnitsSoldSameDay counts sales to consumers who arrived this period.
	// UnitsSoldTotal counts all sales realized this period, including
	// delayed purchases by earlier cohorts. The split is what lets the
	// estimator separate contemporaneous demand from strategic waiting.
	UnitsSoldSameDay int
	UnitsSoldTotal   int

	// RequestedUnits is demand before inventory clearing.
	RequestedUnits int

	// Availability is on-hand stock before clearing.
	Availability int

	// StockoutFlag is true iff RequestedUnits exceeded Availability.
	StockoutFlag bool

	ConsumerSurplusIncrement float64
	ProducerSurplusIncrement float64
}
