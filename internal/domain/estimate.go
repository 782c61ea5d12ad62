package domain

// Estimator variant identifiers.
const (
	EstimatorSameDay = "SAME_DAY"
	EstimatorTotal   = "TOTAL"
)

// Censoring handling identifiers.
const (
	CensoringNaive    = "NAIVE"    // all periods, stockouts included
	CensoringAdjusted = "ADJUSTED" // stockout periods excluded
)

// Estimate is one demand-gradient estimate from the panel.
// OK=false marks a degenerate case (an arm with no usable observations);
// Reason then explains which contrast failed. Degenerate estimates are
// reported, never turned into run failures.
type Estimate struct {
	RunID     string
	Estimator string // SAME_DAY or TOTAL
	Censoring string // NAIVE or ADJUSTED

	Gradient float64
	Variance float64
	StdErr   float64
	CILow    float64
	CIHigh   float64

	// PeriodsUsed counts panel rows entering the estimate;
	// PeriodsCensored counts stockout rows excluded (ADJUSTED only).
	PeriodsUsed     int
	PeriodsCensored int

	OK     bool
	Reason string
}

// EstimateSet bundles the four estimator variants computed for a run.
type EstimateSet struct {
	SameDayNaive    Estimate
	SameDayAdjusted Estimate
	TotalNaive      Estimate
	TotalAdjusted   Estimate
}

// All returns the estimates in a fixed order for reporting and storage.
func (s *EstimateSet) All() []Estimate {
	return []Estimate{s.SameDayNaive, s.SameDayAdjusted, s.TotalNaive, s.TotalAdjusted}
}
