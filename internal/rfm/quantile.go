package rfm

import (
	"math"
	"sort"

	"github.com/sells-group/custvalue-cli/internal/stats"
)

// Column names used in scores, warnings and errors.
const (
	ColumnRecency   = "recency"
	ColumnFrequency = "frequency"
	ColumnMonetary  = "monetary"
)

// Direction says whether larger raw values earn larger scores.
type Direction int

const (
	// Ascending scores the largest values highest (frequency, monetary).
	Ascending Direction = iota
	// Descending scores the smallest values highest (recency).
	Descending
)

// Bins holds the deduplicated quantile boundaries of one column.
type Bins struct {
	Column    string    `json:"column"`
	Requested int       `json:"requested"`
	Edges     []float64 `json:"edges"`
}

// Effective returns the number of bins actually produced, at least 1.
func (b Bins) Effective() int {
	if len(b.Edges) < 2 {
		return 1
	}
	return len(b.Edges) - 1
}

// Degraded reports whether fewer bins than requested were produced.
func (b Bins) Degraded() bool {
	return b.Effective() < b.Requested
}

// ComputeBins builds n quantile bins over values. Boundaries are the k/n
// quantiles for k=0..n with linear interpolation; duplicates are dropped.
// values must be non-empty.
func ComputeBins(column string, values []float64, n int) (Bins, error) {
	if n < MinQuantiles || n > MaxQuantiles {
		return Bins{}, &ConfigError{Field: "n_quantiles", Reason: "must be between 3 and 10"}
	}
	if len(values) == 0 {
		return Bins{}, &InsufficientDataError{Column: column, Row: -1, Reason: "no values"}
	}

	sorted := stats.Sorted(values)
	edges := make([]float64, 0, n+1)
	for k := 0; k <= n; k++ {
		q := stats.Quantile(sorted, float64(k)/float64(n))
		if len(edges) > 0 && q <= edges[len(edges)-1] {
			continue
		}
		edges = append(edges, q)
	}
	return Bins{Column: column, Requested: n, Edges: edges}, nil
}

// Bin returns the 1-based bin of v. Bins are right-closed, the first bin
// includes its lower edge, and out-of-range values clamp to the end bins.
func (b Bins) Bin(v float64) int {
	eff := b.Effective()
	if len(b.Edges) < 2 {
		return 1
	}
	i := sort.SearchFloat64s(b.Edges[1:], v) + 1
	if i > eff {
		return eff
	}
	return i
}

// Score converts v to an ordinal score in [1, Effective()].
func (b Bins) Score(v float64, dir Direction) int {
	bin := b.Bin(v)
	if dir == Descending {
		return b.Effective() + 1 - bin
	}
	return bin
}

// ScoreColumn bins values and scores every entry in dir.
func ScoreColumn(column string, values []float64, n int, dir Direction) ([]int, Bins, error) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, Bins{}, &InsufficientDataError{Column: column, Row: i, Reason: "value is not finite"}
		}
	}
	bins, err := ComputeBins(column, values, n)
	if err != nil {
		return nil, Bins{}, err
	}
	scores := make([]int, len(values))
	for i, v := range values {
		scores[i] = bins.Score(v, dir)
	}
	return scores, bins, nil
}
