package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the per-run table as CSV string.
func RenderCSV(runs []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,seed,horizon,units_sold,stockout_periods,")
	sb.WriteString("consumers_served,consumers_departed,consumer_surplus,producer_surplus\n")

	// Rows
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%d,%d,%d,%.6f,%.6f\n",
			r.RunID,
			r.Seed,
			r.Horizon,
			r.UnitsSold,
			r.StockoutPeriods,
			r.ConsumersServed,
			r.ConsumersDeparted,
			r.ConsumerSurplus,
			r.ProducerSurplus,
		))
	}

	return sb.String()
}

// RenderEstimatesCSV renders the estimator summaries as CSV string.
func RenderEstimatesCSV(summaries []EstimateSummaryRow, hasTruth bool) string {
	var sb strings.Builder

	sb.WriteString("estimator,censoring,runs,degenerate,mean_gradient,std_dev,mean_std_err")
	if hasTruth {
		sb.WriteString(",bias,coverage")
	}
	sb.WriteString("\n")

	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.6f,%.6f,%.6f",
			s.Estimator, s.Censoring, s.Runs, s.Degenerate,
			s.MeanGradient, s.StdDev, s.MeanStdErr))
		if hasTruth {
			sb.WriteString(fmt.Sprintf(",%.6f,%.6f", s.Bias, s.Coverage))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
