// Package rfm scores customers by recency, frequency and monetary value,
// classifies them into business segments and summarizes each segment.
package rfm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/custvalue-cli/internal/model"
)

// Result is the full output of one scoring run.
type Result struct {
	Records  []model.SegmentedCustomer `json:"records"`
	Summary  []model.SegmentSummary    `json:"summary"`
	Bins     []Bins                    `json:"bins"`
	Warnings []DegradedBinning         `json:"warnings,omitempty"`
	Elapsed  time.Duration             `json:"-"`
}

// Analyze scores, segments and summarizes customers. Boundaries are computed
// once over the full input; rows are then scored in opts.Partitions
// concurrent slices and written back by index, so the output matches a
// sequential run exactly.
func Analyze(ctx context.Context, customers []model.Customer, opts Options) (*Result, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	scorer, err := NewScorer(customers, opts.NQuantiles, opts.Weights)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.Int("customers", len(customers)),
		zap.Int("n_quantiles", opts.NQuantiles),
		zap.Int("partitions", opts.Partitions),
	)

	warnings := scorer.Degraded()
	for _, w := range warnings {
		log.Warn("rfm: degraded binning",
			zap.String("column", w.Column),
			zap.Int("requested", w.Requested),
			zap.Int("effective", w.Effective),
		)
	}

	records := make([]model.SegmentedCustomer, len(customers))

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range partition(len(customers), opts.Partitions) {
		g.Go(func() error {
			for i := p.lo; i < p.hi; i++ {
				if i%4096 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				records[i] = segmentOne(scorer.Score(customers[i]), scorer)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "rfm: score partitions")
	}

	res := &Result{
		Records:  records,
		Summary:  Summarize(records),
		Bins:     []Bins{scorer.Recency, scorer.Frequency, scorer.Monetary},
		Warnings: warnings,
		Elapsed:  time.Since(start),
	}

	log.Info("rfm: analysis complete",
		zap.Int("segments", len(res.Summary)),
		zap.Int("degraded_columns", len(warnings)),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

type span struct{ lo, hi int }

// partition splits [0,n) into at most parts contiguous, non-empty spans.
func partition(n, parts int) []span {
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	if n == 0 {
		return nil
	}
	size := n / parts
	rem := n % parts
	out := make([]span, 0, parts)
	lo := 0
	for i := 0; i < parts; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		out = append(out, span{lo, hi})
		lo = hi
	}
	return out
}
