package ltv

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/stats"
)

// GroupKey names the customer attribute used by ByGroup.
type GroupKey string

const (
	GroupByState GroupKey = "customer_state"
	GroupByCity  GroupKey = "customer_city"
)

// ParseGroupKey validates a group key name.
func ParseGroupKey(s string) (GroupKey, error) {
	switch GroupKey(s) {
	case GroupByState, GroupByCity:
		return GroupKey(s), nil
	}
	return "", eris.Errorf("ltv: unsupported group key %q", s)
}

func (k GroupKey) of(c CustomerLTV) string {
	if k == GroupByCity {
		return c.City
	}
	return c.State
}

// GroupLTV summarizes lifetime value for one group of customers.
type GroupLTV struct {
	Key             string   `json:"key"`
	Customers       int      `json:"customers"`
	TotalRevenue    float64  `json:"total_revenue"`
	AvgLTV          float64  `json:"avg_ltv"`
	MedianLTV       float64  `json:"median_ltv"`
	P25LTV          float64  `json:"p25_ltv"`
	P75LTV          float64  `json:"p75_ltv"`
	P90LTV          float64  `json:"p90_ltv"`
	AvgOrders       float64  `json:"avg_orders"`
	AvgAOV          float64  `json:"avg_aov"`
	AvgReview       *float64 `json:"avg_nps,omitempty"`
	RevenueSharePct float64  `json:"revenue_share_pct"`
	Rank            int      `json:"ltv_rank"`
}

// ByGroup rolls customers up by key, ranked by mean value (rank 1 highest).
func ByGroup(hist []CustomerLTV, key GroupKey) []GroupLTV {
	groups := make(map[string][]CustomerLTV)
	var total float64
	for _, c := range hist {
		k := key.of(c)
		groups[k] = append(groups[k], c)
		total += c.LifetimeValue
	}

	out := make([]GroupLTV, 0, len(groups))
	for k, members := range groups {
		values := make([]float64, len(members))
		orders := make([]float64, len(members))
		aov := make([]float64, len(members))
		var reviews []float64
		for i, c := range members {
			values[i] = c.LifetimeValue
			orders[i] = float64(c.TotalOrders)
			aov[i] = c.AvgOrderValue
			if c.AvgReviewScore != nil {
				reviews = append(reviews, *c.AvgReviewScore)
			}
		}
		q := stats.Quantiles(values, 0.25, 0.5, 0.75, 0.9)
		g := GroupLTV{
			Key:          k,
			Customers:    len(members),
			TotalRevenue: stats.Sum(values),
			AvgLTV:       stats.Mean(values),
			P25LTV:       q[0],
			MedianLTV:    q[1],
			P75LTV:       q[2],
			P90LTV:       q[3],
			AvgOrders:    stats.Mean(orders),
			AvgAOV:       stats.Mean(aov),
		}
		if len(reviews) > 0 {
			r := stats.Mean(reviews)
			g.AvgReview = &r
		}
		if total > 0 {
			g.RevenueSharePct = g.TotalRevenue / total * 100
		}
		out = append(out, g)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgLTV != out[j].AvgLTV {
			return out[i].AvgLTV > out[j].AvgLTV
		}
		return out[i].Key < out[j].Key
	})
	for i := range out {
		out[i].Rank = i + 1
	}

	zap.L().Info("ltv: grouped", zap.String("key", string(key)), zap.Int("groups", len(out)))
	return out
}

// CohortLTV summarizes customers by the month of their first purchase.
type CohortLTV struct {
	Month        time.Time `json:"cohort_month"`
	Size         int       `json:"cohort_size"`
	TotalRevenue float64   `json:"total_revenue"`
	AvgLTV       float64   `json:"avg_ltv"`
	MedianLTV    float64   `json:"median_ltv"`
	AvgOrders    float64   `json:"avg_orders_per_customer"`
	AvgAOV       float64   `json:"avg_aov"`
	ChangePct    *float64  `json:"ltv_vs_prev_cohort,omitempty"` // nil for the first cohort
}

// Label returns the cohort month as YYYY-MM.
func (c CohortLTV) Label() string {
	return c.Month.Format("2006-01")
}

// ByCohort groups customers by first-purchase month in chronological order.
func ByCohort(hist []CustomerLTV) []CohortLTV {
	cohorts := make(map[time.Time][]CustomerLTV)
	for _, c := range hist {
		m := model.MonthOf(c.FirstOrder)
		cohorts[m] = append(cohorts[m], c)
	}

	months := make([]time.Time, 0, len(cohorts))
	for m := range cohorts {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := make([]CohortLTV, 0, len(months))
	for i, m := range months {
		members := cohorts[m]
		values := make([]float64, len(members))
		orders := make([]float64, len(members))
		aov := make([]float64, len(members))
		for j, c := range members {
			values[j] = c.LifetimeValue
			orders[j] = float64(c.TotalOrders)
			aov[j] = c.AvgOrderValue
		}
		row := CohortLTV{
			Month:        m,
			Size:         len(members),
			TotalRevenue: stats.Sum(values),
			AvgLTV:       stats.Mean(values),
			MedianLTV:    stats.Median(values),
			AvgOrders:    stats.Mean(orders),
			AvgAOV:       stats.Mean(aov),
		}
		if i > 0 && out[i-1].AvgLTV != 0 {
			change := (row.AvgLTV/out[i-1].AvgLTV - 1) * 100
			row.ChangePct = &change
		}
		out = append(out, row)
	}
	return out
}
