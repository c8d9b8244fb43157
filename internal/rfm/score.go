package rfm

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/custvalue-cli/internal/model"
)

// Scorer holds the global boundaries of one dataset and scores individual
// customers against them. It is read-only once built and safe for
// concurrent use.
type Scorer struct {
	Recency   Bins
	Frequency Bins
	Monetary  Bins
	Weights   Weights
}

// NewScorer validates customers and computes the boundaries of all three
// columns over the full set.
func NewScorer(customers []model.Customer, n int, w Weights) (*Scorer, error) {
	if err := CheckInput(customers); err != nil {
		return nil, err
	}

	rec := make([]float64, len(customers))
	freq := make([]float64, len(customers))
	mon := make([]float64, len(customers))
	for i, c := range customers {
		rec[i] = float64(c.Recency)
		freq[i] = float64(c.Frequency)
		mon[i] = c.Monetary
	}

	rb, err := ComputeBins(ColumnRecency, rec, n)
	if err != nil {
		return nil, err
	}
	fb, err := ComputeBins(ColumnFrequency, freq, n)
	if err != nil {
		return nil, err
	}
	mb, err := ComputeBins(ColumnMonetary, mon, n)
	if err != nil {
		return nil, err
	}
	return &Scorer{Recency: rb, Frequency: fb, Monetary: mb, Weights: w}, nil
}

// Score attaches quantile scores, the RFM code and the composite to c.
func (s *Scorer) Score(c model.Customer) model.ScoredCustomer {
	r := s.Recency.Score(float64(c.Recency), Descending)
	f := s.Frequency.Score(float64(c.Frequency), Ascending)
	m := s.Monetary.Score(c.Monetary, Ascending)
	return model.ScoredCustomer{
		Customer: c,
		RScore:   r,
		FScore:   f,
		MScore:   m,
		RFMCode:  Code(r, f, m),
		RFMScore: s.Weights.Composite(r, f, m),
	}
}

// Degraded returns one entry per column that produced fewer bins than requested.
func (s *Scorer) Degraded() []DegradedBinning {
	var out []DegradedBinning
	for _, b := range []Bins{s.Recency, s.Frequency, s.Monetary} {
		if b.Degraded() {
			out = append(out, DegradedBinning{Column: b.Column, Requested: b.Requested, Effective: b.Effective()})
		}
	}
	return out
}

// Score scores every customer sequentially.
func Score(customers []model.Customer, n int, w Weights) ([]model.ScoredCustomer, *Scorer, error) {
	s, err := NewScorer(customers, n, w)
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.ScoredCustomer, len(customers))
	for i, c := range customers {
		out[i] = s.Score(c)
	}
	return out, s, nil
}

// Code renders three scores as a 3-character string. A score of 10 is
// written as 0 so the code keeps one digit per score.
func Code(r, f, m int) string {
	var b strings.Builder
	b.Grow(3)
	for _, s := range []int{r, f, m} {
		b.WriteByte(scoreDigit(s))
	}
	return b.String()
}

func scoreDigit(s int) byte {
	if s >= 10 {
		return '0'
	}
	if s < 0 {
		s = 0
	}
	return byte('0' + s)
}

// CheckInput rejects tables the scorer cannot work with: empty input,
// blank or repeated ids, negative recency, frequency below 1, and monetary
// that is not a finite positive amount.
func CheckInput(customers []model.Customer) error {
	if len(customers) == 0 {
		return &InsufficientDataError{Column: "customer_id", Row: -1, Reason: "no customers"}
	}
	seen := make(map[string]int, len(customers))
	for i, c := range customers {
		if strings.TrimSpace(c.CustomerID) == "" {
			return &InsufficientDataError{Column: "customer_id", Row: i, Reason: "blank identifier"}
		}
		if first, ok := seen[c.CustomerID]; ok {
			return &InsufficientDataError{Column: "customer_id", Row: i, Reason: fmt.Sprintf("duplicate of row %d", first)}
		}
		seen[c.CustomerID] = i
		if c.Recency < 0 {
			return &InsufficientDataError{Column: ColumnRecency, Row: i, Reason: "must be >= 0"}
		}
		if c.Frequency < 1 {
			return &InsufficientDataError{Column: ColumnFrequency, Row: i, Reason: "must be >= 1"}
		}
		if !finite(c.Monetary) {
			return &InsufficientDataError{Column: ColumnMonetary, Row: i, Reason: "value is not finite"}
		}
		if c.Monetary <= 0 {
			return &InsufficientDataError{Column: ColumnMonetary, Row: i, Reason: "must be > 0"}
		}
		if !finite(c.AvgOrderValue) {
			return &InsufficientDataError{Column: "avg_order_value", Row: i, Reason: "value is not finite"}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
