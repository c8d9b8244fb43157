//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/store"
)

func ledgerRuns(t *testing.T, dir string) []model.Run {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	return runs
}

func TestRuns_RecordsCompletedRun(t *testing.T) {
	dir := workspace(t)

	out, err := execute(t, dir, "cohort")
	require.NoError(t, err, out)

	runs := ledgerRuns(t, dir)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, "cohort", r.Command)
	assert.Equal(t, model.RunStatusComplete, r.Status)
	assert.Equal(t, "csv", r.Params["driver"])
	require.NotNil(t, r.Result)
	assert.Equal(t, 7, r.Result.Rows) // delivered orders
	assert.Len(t, r.Result.Outputs, 3)
	assert.Empty(t, r.Result.Error)
}

func TestRuns_RecordsFailedRun(t *testing.T) {
	dir := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customers.csv"), []byte("customer_id,recency,frequency,monetary\nc1,5,0,100\n"), 0o644))

	_, err := execute(t, dir, "rfm")
	require.Error(t, err)

	runs := ledgerRuns(t, dir)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].Result)
	assert.Contains(t, runs[0].Result.Error, "quality checks")
}

func TestRunsCommands(t *testing.T) {
	dir := workspace(t)

	_, err := execute(t, dir, "ltv")
	require.NoError(t, err)

	out, err := execute(t, dir, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "COMMAND")
	assert.Contains(t, out, "ltv")
	assert.Contains(t, out, "complete")

	runs := ledgerRuns(t, dir)
	require.Len(t, runs, 1)

	out, err = execute(t, dir, "runs", "show", runs[0].ID)
	require.NoError(t, err)
	var shown model.Run
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, runs[0].ID, shown.ID)
	assert.Equal(t, "ltv", shown.Command)

	out, err = execute(t, dir, "runs", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total runs:")

	_, err = execute(t, dir, "runs", "show", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestRunsHealth(t *testing.T) {
	dir := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customers.csv"), []byte("customer_id,recency,frequency,monetary\nc1,5,0,100\n"), 0o644))

	_, err := execute(t, dir, "rfm")
	require.Error(t, err)

	out, err := execute(t, dir, "runs", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "[MEDIUM] command_failed: Latest rfm run failed")
}

func TestRunsList_Empty(t *testing.T) {
	dir := workspace(t)
	out, err := execute(t, dir, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found.")
}

func TestComputeRunStats(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{Command: "rfm", Status: model.RunStatusComplete, CreatedAt: base, UpdatedAt: base.Add(2 * time.Second), Result: &model.RunResult{Rows: 10}},
		{Command: "rfm", Status: model.RunStatusComplete, CreatedAt: base, UpdatedAt: base.Add(4 * time.Second), Result: &model.RunResult{Rows: 5}},
		{Command: "rfm", Status: model.RunStatusFailed, CreatedAt: base, UpdatedAt: base},
		{Command: "cohort", Status: model.RunStatusRunning, CreatedAt: base, UpdatedAt: base},
	}

	stats := computeRunStats(runs)
	require.Len(t, stats, 2)
	assert.Equal(t, "cohort", stats[0].Command)
	assert.Equal(t, 1, stats[0].Running)

	rfmStats := stats[1]
	assert.Equal(t, 3, rfmStats.Total)
	assert.Equal(t, 2, rfmStats.Complete)
	assert.Equal(t, 1, rfmStats.Failed)
	assert.Equal(t, 15, rfmStats.Rows)
	assert.InDelta(t, 3.0, rfmStats.AvgDurSecs, 1e-9)

	var buf bytes.Buffer
	formatRunStats(&buf, stats)
	assert.Contains(t, buf.String(), "Total runs:")
	assert.Contains(t, buf.String(), "Failed:")
}

func TestFormatRunsList(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{{
		ID: "0123456789abcdef", Command: "validate", Status: model.RunStatusFailed,
		CreatedAt: base, UpdatedAt: base.Add(1500 * time.Millisecond),
		Result: &model.RunResult{Rows: 25, Error: "validate: 3 of 25\nchecks did not pass"},
	}})
	out := buf.String()
	assert.Contains(t, out, "01234567 ")
	assert.Contains(t, out, "2024-01-01 09:30")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "validate: 3 of 25 checks did not pass")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", truncateID("abc"))
	assert.Equal(t, "01234567", truncateID("0123456789"))
}
