package model

// Customer is one row of per-customer RFM aggregates as produced by the
// extraction layer. Values are never modified after load; scores are carried
// on the wrapping types.
type Customer struct {
	CustomerID    string  `json:"customer_id"`
	State         string  `json:"customer_state,omitempty"`
	Recency       int     `json:"recency"`   // days since last purchase
	Frequency     int     `json:"frequency"` // distinct orders
	Monetary      float64 `json:"monetary"`  // total spend
	AvgOrderValue float64 `json:"avg_order_value"`
}

// ScoredCustomer is a Customer with its quantile scores and composite score.
type ScoredCustomer struct {
	Customer
	RScore   int     `json:"R_score"`
	FScore   int     `json:"F_score"`
	MScore   int     `json:"M_score"`
	RFMCode  string  `json:"RFM_score"`
	RFMScore float64 `json:"RFM_score_numeric"`
}

// SegmentedCustomer is a ScoredCustomer classified into a business segment.
type SegmentedCustomer struct {
	ScoredCustomer
	Segment  Segment `json:"segment"`
	Priority int     `json:"priority"`
}

// SegmentSummary holds grouped statistics for one segment.
type SegmentSummary struct {
	Segment         Segment `json:"segment"`
	Customers       int     `json:"customers"`
	TotalRevenue    float64 `json:"total_revenue"`
	AvgRevenue      float64 `json:"avg_revenue"`
	MedianRevenue   float64 `json:"median_revenue"`
	AvgFrequency    float64 `json:"avg_frequency"`
	MedianFrequency float64 `json:"median_frequency"`
	AvgRecency      float64 `json:"avg_recency"`
	MedianRecency   float64 `json:"median_recency"`
	AvgAOV          float64 `json:"avg_aov"`
	AvgRFMScore     float64 `json:"avg_rfm_score"`
	CustomerPct     float64 `json:"customer_pct"`
	RevenuePct      float64 `json:"revenue_pct"`
}
