package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Switchback Sweep Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d\n\n", r.RunCount))
	if r.HasTruth {
		sb.WriteString(fmt.Sprintf("True demand gradient: %.4f\n\n", r.TrueGradient))
	}

	// Welfare Summary
	sb.WriteString("## Welfare Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Mean Consumer Surplus | %.4f |\n", r.Welfare.MeanConsumerSurplus))
	sb.WriteString(fmt.Sprintf("| Mean Producer Surplus | %.4f |\n", r.Welfare.MeanProducerSurplus))
	sb.WriteString(fmt.Sprintf("| Total Units Sold | %d |\n", r.Welfare.TotalUnitsSold))
	sb.WriteString(fmt.Sprintf("| Total Periods | %d |\n", r.Welfare.TotalPeriods))
	sb.WriteString(fmt.Sprintf("| Stockout Periods | %d |\n", r.Welfare.StockoutPeriods))
	sb.WriteString(fmt.Sprintf("| Stockout Rate | %.4f |\n", r.Welfare.StockoutRate))
	sb.WriteString("\n")

	// Estimator Summaries
	sb.WriteString("## Gradient Estimates\n\n")
	if len(r.EstimateSummaries) > 0 {
		if r.HasTruth {
			sb.WriteString("| Estimator | Censoring | Runs | Degenerate | Mean | StdDev | MeanSE | Bias | Coverage |\n")
			sb.WriteString("|-----------|-----------|------|------------|------|--------|--------|------|----------|\n")
			for _, s := range r.EstimateSummaries {
				sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
					s.Estimator, s.Censoring, s.Runs, s.Degenerate,
					s.MeanGradient, s.StdDev, s.MeanStdErr, s.Bias, s.Coverage))
			}
		} else {
			sb.WriteString("| Estimator | Censoring | Runs | Degenerate | Mean | StdDev | MeanSE |\n")
			sb.WriteString("|-----------|-----------|------|------------|------|--------|--------|\n")
			for _, s := range r.EstimateSummaries {
				sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.4f | %.4f | %.4f |\n",
					s.Estimator, s.Censoring, s.Runs, s.Degenerate,
					s.MeanGradient, s.StdDev, s.MeanStdErr))
			}
		}
	} else {
		sb.WriteString("No estimates available.\n")
	}
	sb.WriteString("\n")

	// Per-run table
	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Seed | Horizon | Sold | Stockouts | Served | Departed | CS | PS |\n")
		sb.WriteString("|-----|------|---------|------|-----------|--------|----------|----|----|\n")
		for _, row := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %d | %.4f | %.4f |\n",
				row.RunID, row.Seed, row.Horizon,
				row.UnitsSold, row.StockoutPeriods, row.ConsumersServed, row.ConsumersDeparted,
				row.ConsumerSurplus, row.ProducerSurplus))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
