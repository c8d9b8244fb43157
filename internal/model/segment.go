package model

// Segment is a named customer category produced by RFM classification.
type Segment string

const (
	SegmentChampions         Segment = "Champions"
	SegmentLoyalCustomers    Segment = "Loyal Customers"
	SegmentPotentialLoyalist Segment = "Potential Loyalist"
	SegmentNewCustomers      Segment = "New Customers"
	SegmentPromising         Segment = "Promising"
	SegmentNeedAttention     Segment = "Need Attention"
	SegmentAboutToSleep      Segment = "About To Sleep"
	SegmentAtRisk            Segment = "At Risk"
	SegmentCannotLoseThem    Segment = "Cannot Lose Them"
	SegmentHibernating       Segment = "Hibernating"
	SegmentLost              Segment = "Lost"
	SegmentOthers            Segment = "Others"
)

// segmentPriority maps every segment to its action priority (1 = most urgent).
var segmentPriority = map[Segment]int{
	SegmentChampions:         1,
	SegmentCannotLoseThem:    1,
	SegmentLoyalCustomers:    2,
	SegmentAtRisk:            2,
	SegmentPotentialLoyalist: 3,
	SegmentNeedAttention:     3,
	SegmentAboutToSleep:      3,
	SegmentPromising:         4,
	SegmentNewCustomers:      4,
	SegmentHibernating:       5,
	SegmentOthers:            5,
	SegmentLost:              6,
}

// segmentOrder is the reporting order used by summaries.
var segmentOrder = []Segment{
	SegmentChampions,
	SegmentLoyalCustomers,
	SegmentCannotLoseThem,
	SegmentAtRisk,
	SegmentPotentialLoyalist,
	SegmentNeedAttention,
	SegmentPromising,
	SegmentNewCustomers,
	SegmentAboutToSleep,
	SegmentHibernating,
	SegmentLost,
	SegmentOthers,
}

var segmentActions = map[Segment]string{
	SegmentChampions:         "Reward them: VIP program, early access, exclusive benefits",
	SegmentLoyalCustomers:    "Upsell and cross-sell premium products; ask for reviews and referrals",
	SegmentCannotLoseThem:    "Urgent: special offer and direct contact before they churn",
	SegmentAtRisk:            "Aggressive win-back campaign: 20% coupon and satisfaction survey",
	SegmentPotentialLoyalist: "Nurture with email marketing; offer the loyalty program",
	SegmentNeedAttention:     "Reactivate with limited-time offers",
	SegmentPromising:         "Encourage a second purchase: 15% coupon with a short deadline",
	SegmentNewCustomers:      "Special onboarding: welcome email sequence",
	SegmentAboutToSleep:      "Re-engagement email with news and offers",
	SegmentHibernating:       "Mass reactivation campaign, or stop investing",
	SegmentLost:              "Recovery cost is high; consider not investing",
	SegmentOthers:            "Review case by case; candidate for finer segmentation",
}

// Priority returns the action priority of s, or 0 for an unknown segment.
func (s Segment) Priority() int {
	return segmentPriority[s]
}

// Action returns the recommended business action for s.
func (s Segment) Action() string {
	return segmentActions[s]
}

// Valid reports whether s is one of the twelve known segments.
func (s Segment) Valid() bool {
	_, ok := segmentPriority[s]
	return ok
}

// Segments returns all segments in reporting order. The slice is a copy.
func Segments() []Segment {
	out := make([]Segment, len(segmentOrder))
	copy(out, segmentOrder)
	return out
}
