package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/custvalue-cli/internal/cohort"
	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/quality"
)

func segmented() []model.SegmentedCustomer {
	mk := func(id string, r, f, m int, seg model.Segment, monetary float64) model.SegmentedCustomer {
		return model.SegmentedCustomer{
			ScoredCustomer: model.ScoredCustomer{
				Customer: model.Customer{
					CustomerID: id, State: "SP", Recency: 12, Frequency: 2,
					Monetary: monetary, AvgOrderValue: monetary / 2,
				},
				RScore: r, FScore: f, MScore: m,
				RFMCode:  string(rune('0'+r)) + string(rune('0'+f)) + string(rune('0'+m)),
				RFMScore: 0.4*float64(r) + 0.3*float64(f) + 0.3*float64(m),
			},
			Segment:  seg,
			Priority: seg.Priority(),
		}
	}
	return []model.SegmentedCustomer{
		mk("c1", 5, 5, 5, model.SegmentChampions, 1234.567),
		mk("c2", 1, 1, 1, model.SegmentLost, 20.004),
	}
}

func TestTimestampedFilename(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "rfm_segments_20240309_140507.csv", TimestampedFilename("rfm_segments", "csv", ts))
	assert.Equal(t, "report_20240309_140507.xlsx", TimestampedFilename("report", ".xlsx", ts))
}

func TestSegmentsTable(t *testing.T) {
	tbl := Segments(segmented())
	require.Equal(t, 2, tbl.Len())
	for _, row := range tbl.Rows {
		assert.Len(t, row, len(tbl.Header))
	}
	assert.Equal(t, "c1", tbl.Rows[0][0])
	assert.Equal(t, 1234.57, tbl.Rows[0][4])
	assert.Equal(t, "555", tbl.Rows[0][9])
	assert.Equal(t, "Champions", tbl.Rows[0][11])
	assert.Equal(t, 1, tbl.Rows[0][12])
	assert.Equal(t, 20.0, tbl.Rows[1][4])
}

func TestMatrixTable(t *testing.T) {
	m := cohort.Matrix{
		Cohorts: []time.Time{
			time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2017, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		Sizes:  []int{10, 4},
		Values: [][]float64{{100, 12.3456, 5}, {100, 25, 0}},
	}
	tbl := Matrix("retention", m)
	assert.Equal(t, []string{"cohort_month", "cohort_size", "M0", "M1", "M2"}, tbl.Header)
	assert.Equal(t, []any{"2017-01", 10, 100.0, 12.35, 5.0}, tbl.Rows[0])
	assert.Equal(t, "2017-02", tbl.Rows[1][0])
}

func TestQualityReportTable(t *testing.T) {
	report := quality.CheckCustomers([]model.Customer{
		{CustomerID: "a", Recency: 1, Frequency: 1, Monetary: 10, AvgOrderValue: 10},
	})
	tbl := QualityReport("rfm_input_checks", report)
	assert.Equal(t, report.Total, tbl.Len())
	assert.Equal(t, "PASS", tbl.Rows[0][2])
}

func TestCellString(t *testing.T) {
	v := 3.5
	var missing *float64
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "42", cellString(42))
	assert.Equal(t, "0.1", cellString(0.1))
	assert.Equal(t, "3.5", cellString(&v))
	assert.Equal(t, "", cellString(missing))
	assert.Equal(t, "2024-01-02 03:04:05", cellString(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, "", cellString(time.Time{}))
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.csv")
	require.NoError(t, WriteCSV(path, Segments(segmented())))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "customer_id", records[0][0])
	assert.Equal(t, []string{"c2", "SP", "12", "2", "20", "10", "1", "1", "1", "111", "1", "Lost", "6"}, records[2])
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "segments.json")
	require.NoError(t, WriteJSON(path, Segments(segmented())))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0]["customer_id"])
	assert.Equal(t, "Champions", got[0]["segment"])

	plain := Table{Name: "plain", Header: []string{"k", "v"}, Rows: [][]any{{"a", 1}}}
	path = filepath.Join(dir, "plain.json")
	require.NoError(t, WriteJSON(path, plain))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	var objs []map[string]any
	require.NoError(t, json.Unmarshal(data, &objs))
	assert.Equal(t, []map[string]any{{"k": "a", "v": float64(1)}}, objs)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	long := Table{Name: "a_table_name_that_is_longer_than_excel_allows", Header: []string{"x"}, Rows: [][]any{{"y"}}}
	require.NoError(t, WriteXLSX(path, Segments(segmented()), long, long))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)
	assert.Equal(t, "rfm_segments", f.Sheets[0].Name)
	assert.Len(t, f.Sheets[1].Name, maxSheetName)
	assert.NotEqual(t, f.Sheets[1].Name, f.Sheets[2].Name)

	rows := f.Sheets[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "customer_id", rows[0].Cells[0].String())
	assert.Equal(t, "c1", rows[1].Cells[0].String())
	assert.Equal(t, "Champions", rows[1].Cells[11].String())
}

func TestWriteXLSX_NoTables(t *testing.T) {
	err := WriteXLSX(filepath.Join(t.TempDir(), "x.xlsx"))
	assert.ErrorContains(t, err, "no tables")
}

func TestExporter_Write(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	tables := []Table{Segments(segmented()), Recommendations(nil)}

	for _, format := range []string{FormatCSV, FormatJSON} {
		t.Run(format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			e, err := NewExporter(dir, format, "run-1")
			require.NoError(t, err)
			e.Now = func() time.Time { return ts }

			paths, err := e.Write("rfm", tables...)
			require.NoError(t, err)
			require.Len(t, paths, 2)
			assert.Equal(t, filepath.Join(dir, "rfm_segments_20240309_140507."+format), paths[0])
			for _, p := range paths {
				assert.FileExists(t, p)
			}
		})
	}

	t.Run(FormatXLSX, func(t *testing.T) {
		dir := t.TempDir()
		e, err := NewExporter(dir, FormatXLSX, "run-1")
		require.NoError(t, err)
		e.Now = func() time.Time { return ts }

		paths, err := e.Write("rfm", tables...)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "rfm_20240309_140507.xlsx")}, paths)
	})
}

func TestNewExporter_BadFormat(t *testing.T) {
	_, err := NewExporter(t.TempDir(), "parquet", "")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestSaveSegments(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "customer_segments"`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "customer_segments_history"`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_customer_segments"}, segmentColumns).WillReturnResult(2)
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("customer_id") DO UPDATE SET`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectCopyFrom(pgx.Identifier{"customer_segments_history"}, segmentColumns).WillReturnResult(2)

	asOf := time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC)
	res, err := SaveSegments(context.Background(), mock, "customer_segments", "run-1", segmented(), asOf)
	require.NoError(t, err)
	assert.Equal(t, &SaveResult{Upserted: 2, History: 2}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSegments_Empty(t *testing.T) {
	res, err := SaveSegments(context.Background(), nil, "customer_segments", "run-1", nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, &SaveResult{}, res)
}

func TestSaveSegments_CreateError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnError(errors.New("permission denied"))

	_, err = SaveSegments(context.Background(), mock, "analytics.customer_segments", "run-1", segmented(), time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table analytics.customer_segments")
	assert.NoError(t, mock.ExpectationsWereMet())
}
