package quality

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/db"
)

// Status is the outcome of one check.
type Status string

// Check outcomes.
const (
	StatusPass  Status = "PASS"
	StatusWarn  Status = "WARN"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
)

// Result is the outcome of running one Check.
type Result struct {
	Name     string    `json:"test_name"`
	Category Category  `json:"category"`
	Status   Status    `json:"status"`
	Actual   *float64  `json:"actual_value,omitempty"`
	Expected float64   `json:"expected"`
	Operator Operator  `json:"operator"`
	Error    string    `json:"error,omitempty"`
	RanAt    time.Time `json:"timestamp"`
}

// Passed reports whether the check passed.
func (r Result) Passed() bool { return r.Status == StatusPass }

// Blocking reports whether the result fails the report. Warnings do not.
func (r Result) Blocking() bool { return r.Status == StatusFail || r.Status == StatusError }

// Report aggregates a suite run.
type Report struct {
	Results []Result      `json:"results"`
	Total   int           `json:"total"`
	Passed  int           `json:"passed"`
	Warned  int           `json:"warned"`
	Failed  int           `json:"failed"`
	Errors  int           `json:"errors"`
	Elapsed time.Duration `json:"elapsed"`
}

// SuccessRate is the percentage of checks that passed; 0 for an empty report.
func (r *Report) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total) * 100
}

// OK reports whether no check failed or errored. Warnings are allowed.
func (r *Report) OK() bool { return r.Total > 0 && r.Failed+r.Errors == 0 }

// FailedResults returns the failed and errored results, in run order.
func (r *Report) FailedResults() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Blocking() {
			out = append(out, res)
		}
	}
	return out
}

// Warnings returns the advisory results that were violated.
func (r *Report) Warnings() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == StatusWarn {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	r.Total++
	switch res.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warned++
	case StatusFail:
		r.Failed++
	default:
		r.Errors++
	}
}

// Runner executes checks against a Postgres pool.
type Runner struct {
	pool db.Pool

	// OnResult, when set, is called after each check.
	OnResult func(Result)
}

// NewRunner creates a Runner over pool.
func NewRunner(pool db.Pool) *Runner {
	return &Runner{pool: pool}
}

// Run executes checks in order. A query error is recorded as ERROR and the
// suite continues; only context cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, checks []Check) (*Report, error) {
	start := time.Now()
	report := &Report{}

	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "quality: run cancelled")
		}

		res := r.runOne(ctx, c)
		report.add(res)
		logResult(res)
		if r.OnResult != nil {
			r.OnResult(res)
		}
	}

	report.Elapsed = time.Since(start)
	zap.L().Info("quality: suite complete",
		zap.Int("total", report.Total),
		zap.Int("passed", report.Passed),
		zap.Int("failed", report.Failed),
		zap.Int("errors", report.Errors),
		zap.Float64("success_rate", report.SuccessRate()),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, c Check) Result {
	res := Result{
		Name:     c.Name,
		Category: c.Category,
		Expected: c.Expected,
		Operator: c.Operator,
		RanAt:    time.Now().UTC(),
	}

	var v pgtype.Float8
	if err := r.pool.QueryRow(ctx, scalarQuery(c.Query)).Scan(&v); err != nil {
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}
	if !v.Valid {
		res.Status = StatusError
		res.Error = "query returned NULL"
		return res
	}

	actual := v.Float64
	res.Actual = &actual
	if c.Operator.Compare(actual, c.Expected) {
		res.Status = StatusPass
	} else {
		res.Status = StatusFail
	}
	return res
}

// scalarQuery casts the check's single value to float8 so every check scans
// the same way.
func scalarQuery(q string) string {
	return "SELECT (" + q + ")::float8"
}

func logResult(res Result) {
	switch res.Status {
	case StatusPass:
		zap.L().Info("quality: check passed", zap.String("check", res.Name), zap.Float64p("actual", res.Actual))
	case StatusWarn:
		zap.L().Warn("quality: advisory check violated",
			zap.String("check", res.Name),
			zap.Float64p("actual", res.Actual),
		)
	case StatusFail:
		zap.L().Warn("quality: check failed",
			zap.String("check", res.Name),
			zap.Float64p("actual", res.Actual),
			zap.String("operator", string(res.Operator)),
			zap.Float64("expected", res.Expected),
		)
	default:
		zap.L().Error("quality: check errored", zap.String("check", res.Name), zap.String("error", res.Error))
	}
}
