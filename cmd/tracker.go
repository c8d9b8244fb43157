package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/store"
)

// runTracker records a command run in the run ledger. Ledger failures are
// logged and never fail the command.
type runTracker struct {
	st  store.Store
	id  string
	log *zap.Logger
}

// startRun opens the configured store and records a running entry. The
// returned tracker is always usable, even when tracking is disabled.
func startRun(ctx context.Context, command, id string, params map[string]string) *runTracker {
	t := &runTracker{id: id, log: zap.L().With(zap.String("command", command), zap.String("run_id", id))}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		t.log.Warn("runs: open store", zap.Error(err))
		return t
	}
	if st == nil {
		return t
	}
	if err := st.Migrate(ctx); err != nil {
		t.log.Warn("runs: migrate store", zap.Error(err))
		st.Close() //nolint:errcheck
		return t
	}
	if _, err := st.CreateRun(ctx, id, command, params); err != nil {
		t.log.Warn("runs: create run", zap.Error(err))
		st.Close() //nolint:errcheck
		return t
	}
	t.st = st
	return t
}

// finish marks the run complete or failed and closes the store.
func (t *runTracker) finish(ctx context.Context, rows int, outputs []string, runErr error) {
	if t == nil || t.st == nil {
		return
	}
	defer t.st.Close() //nolint:errcheck

	status := model.RunStatusComplete
	result := &model.RunResult{Rows: rows, Outputs: outputs}
	if runErr != nil {
		status = model.RunStatusFailed
		result.Error = runErr.Error()
	}

	// The command context may already be cancelled by a signal.
	if err := t.st.FinishRun(context.WithoutCancel(ctx), t.id, status, result); err != nil {
		t.log.Warn("runs: finish run", zap.Error(err))
	}
}

// runParams records the effective source and export settings plus every
// flag the user set explicitly.
func runParams(cmd *cobra.Command) map[string]string {
	params := map[string]string{
		"driver": cfg.Source.Driver,
		"format": cfg.Export.Format,
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == "database-url" {
			return
		}
		params[f.Name] = f.Value.String()
	})
	return params
}
