package cohort

import (
	"sort"
	"time"

	"github.com/sells-group/custvalue-cli/internal/stats"
)

// Summary holds aggregate metrics for one cohort.
type Summary struct {
	CohortMonth        time.Time `json:"cohort_month"`
	Size               int       `json:"cohort_size"`
	TotalRevenue       float64   `json:"total_revenue"`
	AvgRevenuePerOrder float64   `json:"avg_revenue_per_order"` // per payment row
	MaxMonthsTracked   int       `json:"max_months_tracked"`
	AvgLTV             float64   `json:"avg_ltv"`
	MedianLTV          float64   `json:"median_ltv"`
	P25LTV             float64   `json:"p25_ltv"`
	P75LTV             float64   `json:"p75_ltv"`
	M1Retention        *float64  `json:"m1_retention,omitempty"`
	M3Retention        *float64  `json:"m3_retention,omitempty"`
}

// Label returns the cohort month as YYYY-MM.
func (s Summary) Label() string {
	return s.CohortMonth.Format("2006-01")
}

// Metrics summarizes every cohort in events. When retention is non-nil the
// M1 and M3 columns are copied in where present.
func Metrics(events []Event, retention *Matrix) []Summary {
	type agg struct {
		values    []float64
		perCust   map[string]float64
		maxPeriod int
	}
	cohorts := make(map[time.Time]*agg)
	for _, e := range events {
		a, ok := cohorts[e.CohortMonth]
		if !ok {
			a = &agg{perCust: make(map[string]float64)}
			cohorts[e.CohortMonth] = a
		}
		a.values = append(a.values, e.Value)
		a.perCust[e.CustomerID] += e.Value
		if e.MonthsSince > a.maxPeriod {
			a.maxPeriod = e.MonthsSince
		}
	}

	out := make([]Summary, 0, len(cohorts))
	for month, a := range cohorts {
		ltv := make([]float64, 0, len(a.perCust))
		for _, v := range a.perCust {
			ltv = append(ltv, v)
		}
		q := stats.Quantiles(ltv, 0.25, 0.5, 0.75)
		s := Summary{
			CohortMonth:        month,
			Size:               len(a.perCust),
			TotalRevenue:       stats.Sum(a.values),
			AvgRevenuePerOrder: stats.Mean(a.values),
			MaxMonthsTracked:   a.maxPeriod,
			AvgLTV:             stats.Mean(ltv),
			P25LTV:             q[0],
			MedianLTV:          q[1],
			P75LTV:             q[2],
		}
		if retention != nil {
			if v, ok := retention.At(month, 1); ok {
				s.M1Retention = &v
			}
			if v, ok := retention.At(month, 3); ok {
				s.M3Retention = &v
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CohortMonth.Before(out[j].CohortMonth) })
	return out
}
