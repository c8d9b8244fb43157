// Package export turns analysis results into tables and writes them as CSV,
// JSON or XLSX files, or into Postgres.
package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sells-group/custvalue-cli/internal/cohort"
	"github.com/sells-group/custvalue-cli/internal/ltv"
	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/quality"
	"github.com/sells-group/custvalue-cli/internal/rfm"
	"github.com/sells-group/custvalue-cli/internal/stats"
)

// Table is a named, rectangular result set. Cells hold string, int,
// float64, *float64, time.Time or nil. Records, when set, is the typed
// slice the rows were built from and is what JSON output encodes.
type Table struct {
	Name    string
	Header  []string
	Rows    [][]any
	Records any
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

func r2(v float64) float64 { return stats.Round(v, 2) }

func r2p(v *float64) any {
	if v == nil {
		return nil
	}
	return r2(*v)
}

// cellString renders a cell for text formats.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case *float64:
		if x == nil {
			return ""
		}
		return strconv.FormatFloat(*x, 'f', -1, 64)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Segments lists every scored customer with its segment.
func Segments(records []model.SegmentedCustomer) Table {
	t := Table{
		Name: "rfm_segments",
		Header: []string{
			"customer_id", "customer_state", "recency", "frequency", "monetary", "avg_order_value",
			"R_score", "F_score", "M_score", "RFM_score", "RFM_score_numeric", "segment", "priority",
		},
		Records: records,
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []any{
			r.CustomerID, r.State, r.Recency, r.Frequency, r2(r.Monetary), r2(r.AvgOrderValue),
			r.RScore, r.FScore, r.MScore, r.RFMCode, r2(r.RFMScore), string(r.Segment), r.Priority,
		})
	}
	return t
}

// SegmentSummary lists the per-segment statistics.
func SegmentSummary(summary []model.SegmentSummary) Table {
	t := Table{
		Name: "rfm_segment_summary",
		Header: []string{
			"segment", "customers", "total_revenue", "avg_revenue", "median_revenue",
			"avg_frequency", "median_frequency", "avg_recency", "median_recency",
			"avg_aov", "avg_rfm_score", "customer_pct", "revenue_pct",
		},
		Records: summary,
	}
	for _, s := range summary {
		t.Rows = append(t.Rows, []any{
			string(s.Segment), s.Customers, r2(s.TotalRevenue), r2(s.AvgRevenue), r2(s.MedianRevenue),
			r2(s.AvgFrequency), r2(s.MedianFrequency), r2(s.AvgRecency), r2(s.MedianRecency),
			r2(s.AvgAOV), r2(s.AvgRFMScore), r2(s.CustomerPct), r2(s.RevenuePct),
		})
	}
	return t
}

// Recommendations lists the action per segment.
func Recommendations(recs []rfm.Recommendation) Table {
	t := Table{
		Name:    "rfm_recommendations",
		Header:  []string{"priority", "segment", "customers", "revenue_pct", "action"},
		Records: recs,
	}
	for _, r := range recs {
		t.Rows = append(t.Rows, []any{r.Priority, string(r.Segment), r.Customers, r2(r.RevenuePct), r.Action})
	}
	return t
}

// Historical lists per-customer lifetime value.
func Historical(hist []ltv.CustomerLTV) Table {
	t := Table{
		Name: "ltv_historical",
		Header: []string{
			"customer_unique_id", "customer_state", "customer_city", "total_orders", "lifetime_value",
			"avg_order_value", "min_order_value", "max_order_value", "stddev_order_value",
			"first_order_date", "last_order_date", "customer_lifetime_days", "recency_days", "avg_review_score",
		},
		Records: hist,
	}
	for _, c := range hist {
		t.Rows = append(t.Rows, []any{
			c.CustomerID, c.State, c.City, c.TotalOrders, r2(c.LifetimeValue),
			r2(c.AvgOrderValue), r2(c.MinOrderValue), r2(c.MaxOrderValue), r2(c.StdDevOrderValue),
			c.FirstOrder, c.LastOrder, c.LifetimeDays, c.RecencyDays, r2p(c.AvgReviewScore),
		})
	}
	return t
}

// Predictions lists projected lifetime value.
func Predictions(preds []ltv.Prediction) Table {
	t := Table{
		Name: "ltv_predictions",
		Header: []string{
			"customer_unique_id", "customer_state", "lifetime_value", "orders_per_day", "predicted_future_orders",
			"predicted_ltv", "predicted_ltv_lower", "predicted_ltv_upper", "prediction_confidence",
		},
		Records: preds,
	}
	for _, p := range preds {
		t.Rows = append(t.Rows, []any{
			p.CustomerID, p.State, r2(p.LifetimeValue), stats.Round(p.OrdersPerDay, 6), r2(p.FutureOrders),
			r2(p.PredictedLTV), r2(p.PredictedLower), r2(p.PredictedUpper), string(p.Confidence),
		})
	}
	return t
}

// Groups lists lifetime value by state or city.
func Groups(groups []ltv.GroupLTV, key ltv.GroupKey) Table {
	t := Table{
		Name: "ltv_by_" + string(key),
		Header: []string{
			string(key), "customers", "total_revenue", "avg_ltv", "median_ltv", "p25_ltv", "p75_ltv", "p90_ltv",
			"avg_orders", "avg_aov", "avg_nps", "revenue_share_pct", "ltv_rank",
		},
		Records: groups,
	}
	for _, g := range groups {
		t.Rows = append(t.Rows, []any{
			g.Key, g.Customers, r2(g.TotalRevenue), r2(g.AvgLTV), r2(g.MedianLTV), r2(g.P25LTV), r2(g.P75LTV), r2(g.P90LTV),
			r2(g.AvgOrders), r2(g.AvgAOV), r2p(g.AvgReview), r2(g.RevenueSharePct), g.Rank,
		})
	}
	return t
}

// CohortLTV lists lifetime value by first-purchase month.
func CohortLTV(cohorts []ltv.CohortLTV) Table {
	t := Table{
		Name: "ltv_by_cohort",
		Header: []string{
			"cohort_month", "cohort_size", "total_revenue", "avg_ltv", "median_ltv",
			"avg_orders_per_customer", "avg_aov", "ltv_vs_prev_cohort",
		},
		Records: cohorts,
	}
	for _, c := range cohorts {
		t.Rows = append(t.Rows, []any{
			c.Label(), c.Size, r2(c.TotalRevenue), r2(c.AvgLTV), r2(c.MedianLTV),
			r2(c.AvgOrders), r2(c.AvgAOV), r2p(c.ChangePct),
		})
	}
	return t
}

// VIPs lists the top customers by value.
func VIPs(vips []ltv.VIPCustomer) Table {
	t := Table{
		Name: "ltv_vip_customers",
		Header: []string{
			"customer_unique_id", "customer_state", "customer_city", "lifetime_value", "total_orders",
			"avg_order_value", "ltv_percentile", "vip_tier",
		},
		Records: vips,
	}
	for _, v := range vips {
		t.Rows = append(t.Rows, []any{
			v.CustomerID, v.State, v.City, r2(v.LifetimeValue), v.TotalOrders,
			r2(v.AvgOrderValue), v.Percentile, string(v.Tier),
		})
	}
	return t
}

// Pareto lists the headline concentration metrics.
func Pareto(m ltv.ParetoMetrics) Table {
	return Table{
		Name:   "ltv_pareto",
		Header: []string{"metric", "value"},
		Rows: [][]any{
			{"total_customers", m.TotalCustomers},
			{"total_revenue", r2(m.TotalRevenue)},
			{"top_20_pct_customers", m.Customers80},
			{"top_20_pct_revenue_share", r2(m.RevenueShare80)},
			{"top_50_revenue_customers", m.Customers50},
			{"top_50_revenue_customers_pct", r2(m.Customers50Pct)},
		},
		Records: m,
	}
}

// Matrix lists a cohort-by-period matrix with one column per period.
func Matrix(name string, m cohort.Matrix) Table {
	t := Table{Name: name, Header: []string{"cohort_month", "cohort_size"}, Records: m}
	for p := 0; p < m.Periods(); p++ {
		t.Header = append(t.Header, "M"+strconv.Itoa(p))
	}
	for i := range m.Cohorts {
		row := []any{m.Label(i), m.Sizes[i]}
		for _, v := range m.Values[i] {
			row = append(row, r2(v))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// CohortSummary lists per-cohort metrics.
func CohortSummary(summaries []cohort.Summary) Table {
	t := Table{
		Name: "cohort_metrics",
		Header: []string{
			"cohort_month", "cohort_size", "total_revenue", "avg_revenue_per_order", "max_months_tracked",
			"avg_ltv", "median_ltv", "p25_ltv", "p75_ltv", "m1_retention", "m3_retention",
		},
		Records: summaries,
	}
	for _, s := range summaries {
		t.Rows = append(t.Rows, []any{
			s.Label(), s.Size, r2(s.TotalRevenue), r2(s.AvgRevenuePerOrder), s.MaxMonthsTracked,
			r2(s.AvgLTV), r2(s.MedianLTV), r2(s.P25LTV), r2(s.P75LTV), r2p(s.M1Retention), r2p(s.M3Retention),
		})
	}
	return t
}

// QualityReport lists check results.
func QualityReport(name string, report *quality.Report) Table {
	t := Table{
		Name:    name,
		Header:  []string{"test_name", "category", "status", "actual_value", "operator", "expected", "error", "timestamp"},
		Records: report.Results,
	}
	for _, r := range report.Results {
		t.Rows = append(t.Rows, []any{
			r.Name, string(r.Category), string(r.Status), r.Actual, string(r.Operator), r.Expected, r.Error, r.RanAt,
		})
	}
	return t
}
