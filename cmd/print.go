package main

import (
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/custvalue-cli/internal/cohort"
	"github.com/sells-group/custvalue-cli/internal/ltv"
	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/quality"
	"github.com/sells-group/custvalue-cli/internal/rfm"
)

// printer formats numbers with thousands separators.
var printer = message.NewPrinter(language.English)

func rule(w io.Writer, n int) {
	printer.Fprintln(w, strings.Repeat("-", n))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printSegmentSummary(w io.Writer, summary []model.SegmentSummary) {
	printer.Fprintf(w, "\n%-20s %10s %8s %16s %8s %9s %9s %12s\n",
		"Segment", "Customers", "Cust %", "Revenue", "Rev %", "Recency", "Freq", "Avg Spend")
	rule(w, 98)
	var customers int
	var revenue float64
	for _, s := range summary {
		printer.Fprintf(w, "%-20s %10d %7.1f%% %16.2f %7.1f%% %9.1f %9.2f %12.2f\n",
			s.Segment, s.Customers, s.CustomerPct, s.TotalRevenue, s.RevenuePct,
			s.AvgRecency, s.AvgFrequency, s.AvgRevenue)
		customers += s.Customers
		revenue += s.TotalRevenue
	}
	rule(w, 98)
	printer.Fprintf(w, "%-20s %10d %8s %16.2f\n", "Total", customers, "", revenue)
}

func printRecommendations(w io.Writer, recs []rfm.Recommendation) {
	printer.Fprintf(w, "\n--- Recommended actions ---\n")
	for _, r := range recs {
		printer.Fprintf(w, "[P%d] %s (%d customers, %.1f%% of revenue)\n     %s\n",
			r.Priority, r.Segment, r.Customers, r.RevenuePct, r.Action)
	}
}

func printDegraded(w io.Writer, warnings []rfm.DegradedBinning) {
	for _, d := range warnings {
		printer.Fprintf(w, "warning: %s scored with %d of %d bins (too many tied values)\n",
			d.Column, d.Effective, d.Requested)
	}
}

func printQualityReport(w io.Writer, report *quality.Report) {
	printer.Fprintf(w, "\n%-6s %-60s %14s %4s %12s\n", "Status", "Check", "Actual", "Op", "Expected")
	rule(w, 100)
	for _, r := range report.Results {
		actual := "-"
		if r.Actual != nil {
			actual = printer.Sprintf("%.2f", *r.Actual)
		}
		printer.Fprintf(w, "%-6s %-60s %14s %4s %12.2f\n",
			r.Status, truncate(r.Name, 60), actual, r.Operator, r.Expected)
		if r.Error != "" {
			printer.Fprintf(w, "       error: %s\n", r.Error)
		}
	}
	rule(w, 100)
	printer.Fprintf(w, "Total: %d  Passed: %d  Warned: %d  Failed: %d  Errors: %d  Success rate: %.1f%%\n",
		report.Total, report.Passed, report.Warned, report.Failed, report.Errors, report.SuccessRate())
}

func printLTVSummary(w io.Writer, hist []ltv.CustomerLTV, pareto ltv.ParetoMetrics, vips []ltv.VIPCustomer, threshold float64, groups []ltv.GroupLTV) {
	var orders int
	for _, c := range hist {
		orders += c.TotalOrders
	}
	printer.Fprintf(w, "\n--- Lifetime value ---\n")
	printer.Fprintf(w, "Customers:            %d\n", pareto.TotalCustomers)
	printer.Fprintf(w, "Orders:               %d\n", orders)
	printer.Fprintf(w, "Revenue:              %.2f\n", pareto.TotalRevenue)
	if pareto.TotalCustomers > 0 {
		printer.Fprintf(w, "Average LTV:          %.2f\n", pareto.TotalRevenue/float64(pareto.TotalCustomers))
	}
	printer.Fprintf(w, "Top 20%% revenue share: %.1f%%\n", pareto.RevenueShare80)
	printer.Fprintf(w, "50%% of revenue from:  %d customers (%.1f%%)\n", pareto.Customers50, pareto.Customers50Pct)
	printer.Fprintf(w, "VIP customers:        %d (LTV >= %.2f)\n", len(vips), threshold)

	if len(groups) == 0 {
		return
	}
	printer.Fprintf(w, "\n%-4s %-24s %10s %14s %10s %10s\n", "Rank", "Group", "Customers", "Revenue", "Avg LTV", "Share")
	rule(w, 77)
	for i, g := range groups {
		if i == 10 {
			break
		}
		printer.Fprintf(w, "%-4d %-24s %10d %14.2f %10.2f %9.1f%%\n",
			g.Rank, truncate(g.Key, 24), g.Customers, g.TotalRevenue, g.AvgLTV, g.RevenueSharePct)
	}
}

func printRetention(w io.Writer, m cohort.Matrix, maxCols int) {
	cols := m.Periods()
	if cols > maxCols {
		cols = maxCols
	}
	printer.Fprintf(w, "\n%-8s %8s", "Cohort", "Size")
	for p := 0; p < cols; p++ {
		printer.Fprintf(w, " %6s", printer.Sprintf("M%d", p))
	}
	printer.Fprintln(w)
	rule(w, 17+7*cols)
	for i := range m.Cohorts {
		printer.Fprintf(w, "%-8s %8d", m.Label(i), m.Sizes[i])
		for p := 0; p < cols; p++ {
			printer.Fprintf(w, " %5.1f%%", m.Values[i][p])
		}
		printer.Fprintln(w)
	}
}
