package ltv

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/stats"
)

// Tier is a VIP band relative to the VIP threshold t.
type Tier string

const (
	TierGold     Tier = "Gold"     // [t, 2t]
	TierPlatinum Tier = "Platinum" // (2t, 5t]
	TierDiamond  Tier = "Diamond"  // > 5t
)

// TierFor places value in a band relative to threshold.
func TierFor(value, threshold float64) Tier {
	switch {
	case value > 5*threshold:
		return TierDiamond
	case value > 2*threshold:
		return TierPlatinum
	default:
		return TierGold
	}
}

// VIPCustomer is a customer in the top value band.
type VIPCustomer struct {
	CustomerLTV
	Percentile float64 `json:"ltv_percentile"`
	Tier       Tier    `json:"vip_tier"`
}

// VIP returns customers at or above the (1 - topPct/100) value quantile,
// highest value first, and the threshold used. Percentile is the average
// rank of the customer's value among the VIPs, scaled to 0..100.
func VIP(hist []CustomerLTV, topPct float64) ([]VIPCustomer, float64, error) {
	if topPct <= 0 || topPct >= 100 {
		return nil, 0, eris.Errorf("ltv: top percentage must be in (0, 100), got %g", topPct)
	}
	if len(hist) == 0 {
		return nil, 0, nil
	}

	values := make([]float64, len(hist))
	for i, c := range hist {
		values[i] = c.LifetimeValue
	}
	threshold := stats.Quantile(stats.Sorted(values), 1-topPct/100)

	var vips []VIPCustomer
	var vipValues []float64
	for _, c := range hist {
		if c.LifetimeValue >= threshold {
			vips = append(vips, VIPCustomer{CustomerLTV: c, Tier: TierFor(c.LifetimeValue, threshold)})
			vipValues = append(vipValues, c.LifetimeValue)
		}
	}
	pct := percentRank(vipValues)
	for i := range vips {
		vips[i].Percentile = stats.Round(pct[i], 2)
	}

	sort.SliceStable(vips, func(i, j int) bool {
		return vips[i].LifetimeValue > vips[j].LifetimeValue
	})

	zap.L().Info("ltv: vip customers identified",
		zap.Int("vips", len(vips)),
		zap.Float64("threshold", threshold),
	)
	return vips, threshold, nil
}

// percentRank returns, for each value, its average 1-based rank among all
// values divided by the count, times 100.
func percentRank(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			out[idx[k]] = avg / float64(n) * 100
		}
		i = j + 1
	}
	return out
}

// ParetoPoint is one step of the cumulative revenue curve.
type ParetoPoint struct {
	CustomerID          string  `json:"customer_unique_id"`
	LifetimeValue       float64 `json:"lifetime_value"`
	CumulativeRevenue   float64 `json:"cumulative_revenue"`
	CumulativeCustomers int     `json:"cumulative_customers"`
	RevenuePct          float64 `json:"cumulative_revenue_pct"`
	CustomersPct        float64 `json:"cumulative_customers_pct"`
}

// ParetoMetrics are the key points of the concentration curve. A point that
// never falls under its revenue cut-off is reported as zero.
type ParetoMetrics struct {
	TotalCustomers int     `json:"total_customers"`
	TotalRevenue   float64 `json:"total_revenue"`
	Customers80    int     `json:"top_20_pct_customers"`
	RevenueShare80 float64 `json:"top_20_pct_revenue_share"`
	Customers50    int     `json:"top_50_revenue_customers"`
	Customers50Pct float64 `json:"top_50_revenue_customers_pct"`
}

// Pareto builds the cumulative revenue curve with customers ordered by
// value, highest first.
func Pareto(hist []CustomerLTV) ([]ParetoPoint, ParetoMetrics) {
	sorted := make([]CustomerLTV, len(hist))
	copy(sorted, hist)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LifetimeValue > sorted[j].LifetimeValue
	})

	var total float64
	for _, c := range sorted {
		total += c.LifetimeValue
	}
	m := ParetoMetrics{TotalCustomers: len(sorted), TotalRevenue: total}
	if len(sorted) == 0 || total <= 0 {
		return nil, m
	}

	curve := make([]ParetoPoint, len(sorted))
	var cum float64
	for i, c := range sorted {
		cum += c.LifetimeValue
		p := ParetoPoint{
			CustomerID:          c.CustomerID,
			LifetimeValue:       c.LifetimeValue,
			CumulativeRevenue:   cum,
			CumulativeCustomers: i + 1,
			RevenuePct:          cum / total * 100,
			CustomersPct:        float64(i+1) / float64(len(sorted)) * 100,
		}
		curve[i] = p
		if p.RevenuePct <= 80 {
			m.Customers80 = p.CumulativeCustomers
			m.RevenueShare80 = p.RevenuePct
		}
		if p.RevenuePct <= 50 {
			m.Customers50 = p.CumulativeCustomers
			m.Customers50Pct = p.CustomersPct
		}
	}
	return curve, m
}
