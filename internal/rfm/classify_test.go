package rfm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/custvalue-cli/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		r, f, m  int
		want     model.Segment
		priority int
	}{
		{"best customer", 5, 5, 5, model.SegmentChampions, 1},
		{"recent first purchase", 5, 1, 3, model.SegmentNewCustomers, 4},
		{"lapsed big spender", 1, 5, 5, model.SegmentCannotLoseThem, 1},
		{"bottom on every axis", 1, 1, 1, model.SegmentHibernating, 5},
		{"frequent but not champion", 2, 4, 1, model.SegmentLoyalCustomers, 2},
		{"recent repeat buyer", 4, 3, 3, model.SegmentPotentialLoyalist, 3},
		{"mid recency single order", 3, 1, 3, model.SegmentPromising, 4},
		{"middling", 2, 3, 3, model.SegmentNeedAttention, 3},
		{"fading low spender", 3, 1, 1, model.SegmentAboutToSleep, 3},
		{"old decent customer", 1, 3, 3, model.SegmentAtRisk, 2},
		{"old single order with spend", 1, 1, 3, model.SegmentLost, 6},
		{"unmatched", 3, 3, 1, model.SegmentOthers, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.r, tt.f, tt.m)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.priority, got.Priority())
		})
	}
}

func TestClassify_TotalAndDeterministic(t *testing.T) {
	t.Parallel()

	seen := make(map[model.Segment]bool)
	for r := 1; r <= 5; r++ {
		for f := 1; f <= 5; f++ {
			for m := 1; m <= 5; m++ {
				a := Classify(r, f, m)
				b := Classify(r, f, m)
				assert.Equal(t, a, b)
				assert.True(t, a.Valid(), "(%d,%d,%d) -> %q", r, f, m, a)
				p := a.Priority()
				assert.GreaterOrEqual(t, p, 1)
				assert.LessOrEqual(t, p, 6)
				seen[a] = true
			}
		}
	}
	// Every segment is reachable on the 5-point grid.
	assert.Len(t, seen, 12)
}

func TestRules_Order(t *testing.T) {
	t.Parallel()

	rs := Rules()
	assert.Len(t, rs, 11)
	assert.Equal(t, model.SegmentChampions, rs[0].Segment)
	assert.Equal(t, model.SegmentCannotLoseThem, rs[1].Segment)
	assert.Equal(t, model.SegmentLost, rs[len(rs)-1].Segment)

	rs[0] = Rule{Segment: model.SegmentOthers}
	assert.Equal(t, model.SegmentChampions, Rules()[0].Segment)
}

func TestProject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score, n, want int
	}{
		{3, 5, 3},
		{1, 3, 1},
		{2, 3, 3},
		{3, 3, 5},
		{2, 4, 2},
		{3, 4, 4},
		{1, 10, 1},
		{5, 10, 3},
		{10, 10, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Project(tt.score, tt.n), "Project(%d, %d)", tt.score, tt.n)
	}
}

func TestClassifyScores_TenBins(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.SegmentChampions, ClassifyScores(10, 9, 8, 10, 10, 10))
	assert.Equal(t, model.SegmentHibernating, ClassifyScores(1, 1, 1, 10, 10, 10))
	assert.Equal(t, model.SegmentCannotLoseThem, ClassifyScores(1, 3, 3, 3, 3, 3))
}

func TestClassifyScores_PerColumnScale(t *testing.T) {
	t.Parallel()

	// Frequency collapsed to two bins; its top bin still projects to 5.
	assert.Equal(t, model.SegmentChampions, ClassifyScores(5, 2, 5, 5, 2, 5))
	assert.Equal(t, model.SegmentPotentialLoyalist, ClassifyScores(5, 2, 5, 5, 5, 5))
	assert.Equal(t, model.SegmentNewCustomers, ClassifyScores(5, 1, 5, 5, 2, 5))
	// A single-bin column stays at the bottom of the scale.
	assert.Equal(t, model.SegmentNewCustomers, ClassifyScores(5, 1, 5, 5, 1, 5))
}

func TestClassify_CannotLoseThemBeforeLoyal(t *testing.T) {
	t.Parallel()

	// Lapsed customers with high frequency and spend match the Loyal rule
	// too; the earlier rule wins.
	for _, c := range [][3]int{{1, 4, 4}, {2, 5, 4}, {2, 4, 5}, {1, 5, 5}} {
		assert.Equal(t, model.SegmentCannotLoseThem, Classify(c[0], c[1], c[2]), "%v", c)
	}
	for _, c := range [][3]int{{3, 4, 4}, {2, 4, 3}, {1, 5, 1}} {
		assert.Equal(t, model.SegmentLoyalCustomers, Classify(c[0], c[1], c[2]), "%v", c)
	}
}

func fiveBinScorer() *Scorer {
	b := Bins{Requested: 5, Edges: []float64{0, 1, 2, 3, 4, 5}}
	return &Scorer{Recency: b, Frequency: b, Monetary: b, Weights: DefaultWeights()}
}

func TestSegment_AttachesPriority(t *testing.T) {
	t.Parallel()

	scored := []model.ScoredCustomer{
		{Customer: model.Customer{CustomerID: "a"}, RScore: 5, FScore: 5, MScore: 5},
		{Customer: model.Customer{CustomerID: "b"}, RScore: 1, FScore: 1, MScore: 1},
	}
	out := Segment(scored, fiveBinScorer())
	assert.Len(t, out, 2)
	assert.Equal(t, model.SegmentChampions, out[0].Segment)
	assert.Equal(t, 1, out[0].Priority)
	assert.Equal(t, "b", out[1].CustomerID)
	assert.Equal(t, 5, out[1].Priority)
}

func TestSegment_UsesEffectiveBins(t *testing.T) {
	t.Parallel()

	s := fiveBinScorer()
	s.Frequency = Bins{Column: ColumnFrequency, Requested: 5, Edges: []float64{1, 1.2, 2}}

	out := Segment([]model.ScoredCustomer{
		{Customer: model.Customer{CustomerID: "top"}, RScore: 5, FScore: 2, MScore: 5},
	}, s)
	assert.Equal(t, model.SegmentChampions, out[0].Segment)
	assert.Equal(t, 2, out[0].FScore)
}
