package rfm

import (
	"math"

	"github.com/sells-group/custvalue-cli/internal/model"
)

// ClassifyScale is the score scale the segment thresholds are written for.
const ClassifyScale = 5

// Rule pairs a predicate over (R, F, M) on the 5-point scale with the
// segment it assigns.
type Rule struct {
	Segment model.Segment
	Match   func(r, f, m int) bool
}

// rules is evaluated top to bottom; the first match wins. Cannot Lose Them
// sits right after Champions, so every R<=2, F>=4, M>=4 triple such as
// (1,4,4) or (2,5,4) lands there rather than in Loyal Customers.
var rules = []Rule{
	{model.SegmentChampions, func(r, f, m int) bool { return r >= 4 && f >= 4 && m >= 4 }},
	{model.SegmentCannotLoseThem, func(r, f, m int) bool { return r <= 2 && f >= 4 && m >= 4 }},
	{model.SegmentLoyalCustomers, func(_, f, _ int) bool { return f >= 4 }},
	{model.SegmentPotentialLoyalist, func(r, f, m int) bool { return r >= 4 && f >= 2 && m >= 2 }},
	{model.SegmentNewCustomers, func(r, f, _ int) bool { return r >= 4 && f == 1 }},
	{model.SegmentPromising, func(r, f, m int) bool { return r >= 3 && f == 1 && m >= 2 }},
	{model.SegmentNeedAttention, func(r, f, m int) bool { return r >= 2 && f >= 2 && m >= 2 }},
	{model.SegmentAboutToSleep, func(r, f, m int) bool { return r >= 2 && f <= 2 && m <= 2 }},
	{model.SegmentAtRisk, func(r, f, m int) bool { return r <= 2 && f >= 3 && m >= 3 }},
	{model.SegmentHibernating, func(r, f, m int) bool { return r <= 2 && f <= 2 && m <= 2 }},
	{model.SegmentLost, func(r, _, _ int) bool { return r == 1 }},
}

// Rules returns a copy of the classification cascade in evaluation order,
// excluding the Others fallback.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify returns the first segment whose rule matches the 5-point scores,
// or Others when none does.
func Classify(r, f, m int) model.Segment {
	for _, rule := range rules {
		if rule.Match(r, f, m) {
			return rule.Segment
		}
	}
	return model.SegmentOthers
}

// Project maps a score on an n-bin scale onto 1..5. It is the identity for n=5.
func Project(score, n int) int {
	if n == ClassifyScale || n < 2 {
		return score
	}
	p := int(math.Round(1 + float64(score-1)*float64(ClassifyScale-1)/float64(n-1)))
	if p < 1 {
		return 1
	}
	if p > ClassifyScale {
		return ClassifyScale
	}
	return p
}

// ClassifyScores projects each score from its own column's bin count and
// classifies the result. A column that degraded to fewer bins still spans 1..5.
func ClassifyScores(r, f, m, rn, fn, mn int) model.Segment {
	return Classify(Project(r, rn), Project(f, fn), Project(m, mn))
}

// Segment classifies every scored customer using the effective bin counts s
// produced.
func Segment(scored []model.ScoredCustomer, s *Scorer) []model.SegmentedCustomer {
	out := make([]model.SegmentedCustomer, len(scored))
	for i := range scored {
		out[i] = segmentOne(scored[i], s)
	}
	return out
}

func segmentOne(sc model.ScoredCustomer, s *Scorer) model.SegmentedCustomer {
	seg := ClassifyScores(sc.RScore, sc.FScore, sc.MScore,
		s.Recency.Effective(), s.Frequency.Effective(), s.Monetary.Effective())
	return model.SegmentedCustomer{
		ScoredCustomer: sc,
		Segment:        seg,
		Priority:       seg.Priority(),
	}
}
