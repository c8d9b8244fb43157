package rfm

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/custvalue-cli/internal/config"
)

// Bounds and defaults for the number of quantile bins.
const (
	MinQuantiles     = 3
	MaxQuantiles     = 10
	DefaultQuantiles = 5
)

// ConfigError reports an invalid scoring option.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("rfm: invalid %s: %s", e.Field, e.Reason)
}

// Weights are the composite score coefficients for R, F and M.
type Weights struct {
	Recency   float64 `json:"recency"`
	Frequency float64 `json:"frequency"`
	Monetary  float64 `json:"monetary"`
}

// DefaultWeights returns 0.4 / 0.3 / 0.3.
func DefaultWeights() Weights {
	return Weights{Recency: 0.4, Frequency: 0.3, Monetary: 0.3}
}

// Sum returns the sum of all weights.
func (w Weights) Sum() float64 {
	return w.Recency + w.Frequency + w.Monetary
}

// Composite returns the weighted sum of the three scores.
func (w Weights) Composite(r, f, m int) float64 {
	return w.Recency*float64(r) + w.Frequency*float64(f) + w.Monetary*float64(m)
}

const weightTolerance = 1e-6

// Validate checks that weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	var errs []string
	if w.Recency < 0 || w.Frequency < 0 || w.Monetary < 0 {
		errs = append(errs, "weights must be >= 0")
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		errs = append(errs, fmt.Sprintf("weights must sum to 1, got %.4f", sum))
	}
	if len(errs) > 0 {
		return &ConfigError{Field: "weights", Reason: strings.Join(errs, "; ")}
	}
	return nil
}

// Options controls a scoring run.
type Options struct {
	NQuantiles int
	Weights    Weights
	Partitions int
}

// DefaultOptions returns five bins, the default weights and four partitions.
func DefaultOptions() Options {
	return Options{
		NQuantiles: DefaultQuantiles,
		Weights:    DefaultWeights(),
		Partitions: 4,
	}
}

// OptionsFromConfig maps the rfm config section onto Options.
func OptionsFromConfig(c config.RFMConfig) Options {
	return Options{
		NQuantiles: c.NQuantiles,
		Weights: Weights{
			Recency:   c.Weights.Recency,
			Frequency: c.Weights.Frequency,
			Monetary:  c.Weights.Monetary,
		},
		Partitions: c.Partitions,
	}
}

// Validate checks that Options are internally consistent. Errors are
// *ConfigError.
func (o Options) Validate() error {
	if o.NQuantiles < MinQuantiles || o.NQuantiles > MaxQuantiles {
		return &ConfigError{
			Field:  "n_quantiles",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinQuantiles, MaxQuantiles, o.NQuantiles),
		}
	}
	if o.Partitions < 1 {
		return &ConfigError{Field: "partitions", Reason: "must be >= 1"}
	}
	return o.Weights.Validate()
}
