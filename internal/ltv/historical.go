// Package ltv computes customer lifetime value from delivered orders:
// historical value, a simple forward projection, group and cohort rollups,
// VIP tiers and revenue concentration.
package ltv

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/stats"
)

// CustomerLTV is the historical value of one customer.
type CustomerLTV struct {
	CustomerID       string    `json:"customer_unique_id"`
	State            string    `json:"customer_state"`
	City             string    `json:"customer_city"`
	TotalOrders      int       `json:"total_orders"`
	LifetimeValue    float64   `json:"lifetime_value"`
	AvgOrderValue    float64   `json:"avg_order_value"`
	MinOrderValue    float64   `json:"min_order_value"`
	MaxOrderValue    float64   `json:"max_order_value"`
	StdDevOrderValue float64   `json:"stddev_order_value"` // 0 with a single payment
	FirstOrder       time.Time `json:"first_order_date"`
	LastOrder        time.Time `json:"last_order_date"`
	LifetimeDays     int       `json:"customer_lifetime_days"`
	RecencyDays      int       `json:"recency_days"`
	AvgReviewScore   *float64  `json:"avg_review_score,omitempty"`
}

type accum struct {
	ltv      CustomerLTV
	orderIDs map[string]struct{}
	values   []float64
	reviews  []float64
}

// Historical aggregates payment rows per customer. Order values are per
// payment row; TotalOrders counts distinct order ids. Recency is measured
// in calendar days up to asOf. The result is sorted by customer id.
func Historical(orders []model.Order, asOf time.Time) []CustomerLTV {
	byID := make(map[string]*accum)
	for _, o := range orders {
		a, ok := byID[o.CustomerID]
		if !ok {
			a = &accum{
				ltv: CustomerLTV{
					CustomerID: o.CustomerID,
					State:      o.State,
					City:       o.City,
					FirstOrder: o.PurchasedAt,
					LastOrder:  o.PurchasedAt,
				},
				orderIDs: make(map[string]struct{}),
			}
			byID[o.CustomerID] = a
		}
		a.orderIDs[o.OrderID] = struct{}{}
		a.values = append(a.values, o.Value)
		if o.ReviewScore != nil {
			a.reviews = append(a.reviews, *o.ReviewScore)
		}
		if o.PurchasedAt.Before(a.ltv.FirstOrder) {
			a.ltv.FirstOrder = o.PurchasedAt
		}
		if o.PurchasedAt.After(a.ltv.LastOrder) {
			a.ltv.LastOrder = o.PurchasedAt
			a.ltv.State, a.ltv.City = o.State, o.City
		}
	}

	out := make([]CustomerLTV, 0, len(byID))
	for _, a := range byID {
		c := a.ltv
		c.TotalOrders = len(a.orderIDs)
		c.LifetimeValue = stats.Sum(a.values)
		c.AvgOrderValue = stats.Mean(a.values)
		c.MinOrderValue, c.MaxOrderValue = minMax(a.values)
		c.StdDevOrderValue = stats.ZeroNaN(stats.StdDev(a.values))
		c.LifetimeDays = model.DaysBetween(c.FirstOrder, c.LastOrder)
		c.RecencyDays = model.DaysBetween(c.LastOrder, asOf)
		if len(a.reviews) > 0 {
			avg := stats.Mean(a.reviews)
			c.AvgReviewScore = &avg
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })

	zap.L().Info("ltv: historical value computed",
		zap.Int("payments", len(orders)),
		zap.Int("customers", len(out)),
	)
	return out
}

func minMax(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Confidence grades a projection by how many orders back it.
type Confidence string

const (
	ConfidenceLow      Confidence = "Low"
	ConfidenceMedium   Confidence = "Medium"
	ConfidenceHigh     Confidence = "High"
	ConfidenceVeryHigh Confidence = "Very High"
)

// ConfidenceFor returns Low up to 1 order, Medium up to 3, High up to 5 and
// Very High beyond.
func ConfidenceFor(orders int) Confidence {
	switch {
	case orders <= 1:
		return ConfidenceLow
	case orders <= 3:
		return ConfidenceMedium
	case orders <= 5:
		return ConfidenceHigh
	default:
		return ConfidenceVeryHigh
	}
}

// Prediction is the projected lifetime value of one customer.
type Prediction struct {
	CustomerID     string     `json:"customer_unique_id"`
	State          string     `json:"customer_state"`
	LifetimeValue  float64    `json:"lifetime_value"`
	OrdersPerDay   float64    `json:"orders_per_day"`
	FutureOrders   float64    `json:"predicted_future_orders"`
	PredictedLTV   float64    `json:"predicted_ltv"`
	PredictedLower float64    `json:"predicted_ltv_lower"`
	PredictedUpper float64    `json:"predicted_ltv_upper"`
	Confidence     Confidence `json:"prediction_confidence"`
}

// Prediction interval half-width as a fraction of the point estimate.
const predictionBand = 0.3

// Predict projects value over horizonDays for customers whose observed
// lifetime is at least minLifetimeDays: current value plus the observed
// order rate times the horizon times the average order value.
func Predict(hist []CustomerLTV, horizonDays, minLifetimeDays int) []Prediction {
	var out []Prediction
	for _, c := range hist {
		if c.LifetimeDays < minLifetimeDays {
			continue
		}
		days := c.LifetimeDays
		if days == 0 {
			days = 1
		}
		opd := float64(c.TotalOrders) / float64(days)
		future := opd * float64(horizonDays)
		predicted := c.LifetimeValue + future*c.AvgOrderValue
		out = append(out, Prediction{
			CustomerID:     c.CustomerID,
			State:          c.State,
			LifetimeValue:  c.LifetimeValue,
			OrdersPerDay:   opd,
			FutureOrders:   future,
			PredictedLTV:   predicted,
			PredictedLower: predicted * (1 - predictionBand),
			PredictedUpper: predicted * (1 + predictionBand),
			Confidence:     ConfidenceFor(c.TotalOrders),
		})
	}

	zap.L().Info("ltv: predictions computed",
		zap.Int("eligible", len(out)),
		zap.Int("customers", len(hist)),
		zap.Int("horizon_days", horizonDays),
	)
	return out
}
