package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/db"
	"github.com/sells-group/custvalue-cli/internal/model"
)

// segmentColumns is the column order of the segments table and its history.
var segmentColumns = []string{
	"customer_id", "customer_state", "recency", "frequency", "monetary", "avg_order_value",
	"r_score", "f_score", "m_score", "rfm_score", "rfm_score_numeric", "segment", "priority",
	"run_id", "as_of", "scored_at",
}

// segmentsDDL creates the latest-segment table and its append-only history.
func segmentsDDL(table string) []string {
	cols := `
		customer_id       TEXT NOT NULL,
		customer_state    TEXT,
		recency           INTEGER NOT NULL,
		frequency         INTEGER NOT NULL,
		monetary          DOUBLE PRECISION NOT NULL,
		avg_order_value   DOUBLE PRECISION NOT NULL,
		r_score           SMALLINT NOT NULL,
		f_score           SMALLINT NOT NULL,
		m_score           SMALLINT NOT NULL,
		rfm_score         TEXT NOT NULL,
		rfm_score_numeric DOUBLE PRECISION NOT NULL,
		segment           TEXT NOT NULL,
		priority          SMALLINT NOT NULL,
		run_id            TEXT NOT NULL,
		as_of             DATE,
		scored_at         TIMESTAMPTZ NOT NULL`
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s,\n\t\tPRIMARY KEY (customer_id)\n\t)", db.QuoteTable(table), cols),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s\n\t)", db.QuoteTable(historyTable(table)), cols),
	}
}

func historyTable(table string) string { return table + "_history" }

// SaveResult counts the rows written by SaveSegments.
type SaveResult struct {
	Upserted int64
	History  int64
}

// SaveSegments upserts the latest segment per customer into table and
// appends every record to table_history, tagged with runID. A zero asOf is
// stored as NULL.
func SaveSegments(ctx context.Context, pool db.Pool, table, runID string, records []model.SegmentedCustomer, asOf time.Time) (*SaveResult, error) {
	if len(records) == 0 {
		return &SaveResult{}, nil
	}
	if table == "" {
		return nil, eris.New("export: no table specified")
	}

	for _, ddl := range segmentsDDL(table) {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return nil, eris.Wrapf(err, "export: create table %s", table)
		}
	}

	scoredAt := time.Now().UTC()
	var day any
	if !asOf.IsZero() {
		day = asOf
	}
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			r.CustomerID, r.State, r.Recency, r.Frequency, r.Monetary, r.AvgOrderValue,
			r.RScore, r.FScore, r.MScore, r.RFMCode, r.RFMScore, string(r.Segment), r.Priority,
			runID, day, scoredAt,
		}
	}

	upserted, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        table,
		Columns:      segmentColumns,
		ConflictKeys: []string{"customer_id"},
	}, rows)
	if err != nil {
		return nil, eris.Wrap(err, "export: upsert segments")
	}

	history, err := db.CopyFrom(ctx, pool, historyTable(table), segmentColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "export: append segment history")
	}

	zap.L().Info("export: saved segments",
		zap.String("table", table),
		zap.String("run_id", runID),
		zap.Int64("upserted", upserted),
		zap.Int64("history", history),
	)
	return &SaveResult{Upserted: upserted, History: history}, nil
}
