package rfm

import (
	"sort"

	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/stats"
)

// Summarize groups records by segment and returns one summary per present
// segment in reporting order. Values are not rounded.
func Summarize(records []model.SegmentedCustomer) []model.SegmentSummary {
	if len(records) == 0 {
		return nil
	}

	groups := make(map[model.Segment][]int)
	var totalRevenue float64
	for i, r := range records {
		groups[r.Segment] = append(groups[r.Segment], i)
		totalRevenue += r.Monetary
	}
	total := float64(len(records))

	var out []model.SegmentSummary
	for _, seg := range model.Segments() {
		idx, ok := groups[seg]
		if !ok {
			continue
		}
		mon := make([]float64, len(idx))
		freq := make([]float64, len(idx))
		rec := make([]float64, len(idx))
		aov := make([]float64, len(idx))
		comp := make([]float64, len(idx))
		for j, i := range idx {
			r := records[i]
			mon[j] = r.Monetary
			freq[j] = float64(r.Frequency)
			rec[j] = float64(r.Recency)
			aov[j] = r.AvgOrderValue
			comp[j] = r.RFMScore
		}

		s := model.SegmentSummary{
			Segment:         seg,
			Customers:       len(idx),
			TotalRevenue:    stats.Sum(mon),
			AvgRevenue:      stats.Mean(mon),
			MedianRevenue:   stats.Median(mon),
			AvgFrequency:    stats.Mean(freq),
			MedianFrequency: stats.Median(freq),
			AvgRecency:      stats.Mean(rec),
			MedianRecency:   stats.Median(rec),
			AvgAOV:          stats.Mean(aov),
			AvgRFMScore:     stats.Mean(comp),
			CustomerPct:     float64(len(idx)) / total * 100,
		}
		if totalRevenue > 0 {
			s.RevenuePct = s.TotalRevenue / totalRevenue * 100
		}
		out = append(out, s)
	}
	return out
}

// Recommendation is the suggested business action for one segment.
type Recommendation struct {
	Segment    model.Segment `json:"segment"`
	Priority   int           `json:"priority"`
	Customers  int           `json:"customers"`
	RevenuePct float64       `json:"revenue_pct"`
	Action     string        `json:"action"`
}

// Recommend lists an action per summarized segment, most urgent first and,
// within a priority, by revenue share.
func Recommend(summary []model.SegmentSummary) []Recommendation {
	out := make([]Recommendation, 0, len(summary))
	for _, s := range summary {
		out = append(out, Recommendation{
			Segment:    s.Segment,
			Priority:   s.Segment.Priority(),
			Customers:  s.Customers,
			RevenuePct: s.RevenuePct,
			Action:     s.Segment.Action(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].RevenuePct > out[j].RevenuePct
	})
	return out
}
