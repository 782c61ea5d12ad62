package reporting

import "time"

// Report is the sweep report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunCount    int

	// Welfare Summary
	Welfare WelfareSummary

	// Estimator Summaries (sorted by estimator, censoring)
	EstimateSummaries []EstimateSummaryRow

	// Per-run rows (sorted by seed)
	Runs []RunRow

	// TrueGradient is set when the configuration carries a known truth,
	// enabling the bias and coverage columns.
	HasTruth     bool
	TrueGradient float64
}

// WelfareSummary aggregates welfare outcomes across runs.
type WelfareSummary struct {
	MeanConsumerSurplus float64
	MeanProducerSurplus float64
	TotalUnitsSold      int
	TotalPeriods        int
	StockoutPeriods     int
	StockoutRate        float64
}

// EstimateSummaryRow aggregates one estimator variant across runs.
type EstimateSummaryRow struct {
	Estimator string
	Censoring string

	Runs       int // non-degenerate estimates
	Degenerate int

	MeanGradient float64
	StdDev       float64
	MeanStdErr   float64

	Bias     float64 // mean gradient minus truth, when truth is known
	Coverage float64 // fraction of 95% CIs containing truth
}

// RunRow represents one row in the per-run table.
type RunRow struct {
	RunID             string
	Seed              int64
	Horizon           int
	UnitsSold         int
	StockoutPeriods   int
	ConsumersServed   int
	ConsumersDeparted int
	ConsumerSurplus   float64
	ProducerSurplus   float64
}
