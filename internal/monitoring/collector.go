// Package monitoring watches the run ledger and raises alerts when analysis
// runs start failing or stall.
package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/store"
)

// CommandHealth summarizes the runs of one command inside the window.
type CommandHealth struct {
	Command    string          `json:"command"`
	Total      int             `json:"total"`
	Complete   int             `json:"complete"`
	Failed     int             `json:"failed"`
	LastStatus model.RunStatus `json:"last_status"`
	LastError  string          `json:"last_error,omitempty"`
	LastRunAt  time.Time       `json:"last_run_at"`
}

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	Total    int     `json:"total"`
	Complete int     `json:"complete"`
	Failed   int     `json:"failed"`
	Running  int     `json:"running"`
	Stale    int     `json:"stale"`
	FailRate float64 `json:"fail_rate"`
	Rows     int     `json:"rows"`

	Commands []CommandHealth `json:"commands"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers metrics from the run ledger.
type Collector struct {
	runs       RunLister
	staleAfter time.Duration
	now        func() time.Time
}

// NewCollector creates a collector. Runs still marked running after
// staleAfter count as stale.
func NewCollector(runs RunLister, staleAfter time.Duration) *Collector {
	return &Collector{runs: runs, staleAfter: staleAfter, now: time.Now}
}

// Collect gathers a snapshot of run metrics over the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	byCmd := map[string]*CommandHealth{}
	for _, r := range runs {
		snap.Total++
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
		case model.RunStatusFailed:
			snap.Failed++
		default:
			snap.Running++
			if c.staleAfter > 0 && now.Sub(r.CreatedAt) > c.staleAfter {
				snap.Stale++
			}
		}
		if r.Result != nil {
			snap.Rows += r.Result.Rows
		}

		h, ok := byCmd[r.Command]
		if !ok {
			h = &CommandHealth{Command: r.Command}
			byCmd[r.Command] = h
		}
		h.Total++
		switch r.Status {
		case model.RunStatusComplete:
			h.Complete++
		case model.RunStatusFailed:
			h.Failed++
		}
		// The latest finished run decides the command's status.
		if r.Status != model.RunStatusRunning && r.CreatedAt.After(h.LastRunAt) {
			h.LastRunAt = r.CreatedAt
			h.LastStatus = r.Status
			h.LastError = ""
			if r.Result != nil {
				h.LastError = r.Result.Error
			}
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}

	for _, h := range byCmd {
		snap.Commands = append(snap.Commands, *h)
	}
	sort.Slice(snap.Commands, func(i, j int) bool { return snap.Commands[i].Command < snap.Commands[j].Command })
	return snap, nil
}
