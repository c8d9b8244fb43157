package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segmentsConfig() UpsertConfig {
	return UpsertConfig{
		Table:        "analytics.customer_segments",
		Columns:      []string{"run_id", "customer_id", "segment"},
		ConflictKeys: []string{"run_id", "customer_id"},
	}
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, segmentsConfig(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	cfg := segmentsConfig()
	cfg.Columns = nil
	_, err := BulkUpsert(context.Background(), nil, cfg, [][]any{{"r", "c1", "Lost"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	cfg := segmentsConfig()
	cfg.ConflictKeys = nil
	_, err := BulkUpsert(context.Background(), nil, cfg, [][]any{{"r", "c1", "Lost"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := segmentsConfig()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TEMP TABLE "_stage_analytics_customer_segments" (LIKE "analytics"."customer_segments" INCLUDING DEFAULTS) ON COMMIT DROP`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_analytics_customer_segments"}, cfg.Columns).WillReturnResult(2)
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("run_id", "customer_id") DO UPDATE SET "segment" = EXCLUDED."segment"`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{{"r1", "c1", "Champions"}, {"r1", "c2", "Lost"}}
	n, err := BulkUpsert(context.Background(), mock, cfg, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := segmentsConfig()
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_analytics_customer_segments"}, cfg.Columns).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, cfg, [][]any{{"r1", "c1", "Lost"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into staging table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL_DoNothingWhenOnlyKeys(t *testing.T) {
	cfg := UpsertConfig{
		Table:        "runs",
		Columns:      []string{"run_id"},
		ConflictKeys: []string{"run_id"},
	}
	assert.Equal(t,
		`INSERT INTO "runs" ("run_id") SELECT "run_id" FROM "_stage_runs" ON CONFLICT ("run_id") DO NOTHING`,
		cfg.upsertSQL(stagingTable(cfg.Table)))
}

func TestUpsertSQL_ExplicitUpdateCols(t *testing.T) {
	cfg := segmentsConfig()
	cfg.Columns = append(cfg.Columns, "priority")
	cfg.UpdateCols = []string{"priority"}
	assert.Contains(t, cfg.upsertSQL("s"), `DO UPDATE SET "priority" = EXCLUDED."priority"`)
	assert.NotContains(t, cfg.upsertSQL("s"), `"segment" = EXCLUDED`)
}

func TestQuoteTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"customer_segments", `"customer_segments"`},
		{"analytics.customer_segments", `"analytics"."customer_segments"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"customer_id", "segment", "priority"`, quoteAndJoin([]string{"customer_id", "segment", "priority"}))
}
