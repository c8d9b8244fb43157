package quality

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/custvalue-cli/internal/model"
)

func TestOperatorCompare(t *testing.T) {
	tests := []struct {
		op       Operator
		actual   float64
		expected float64
		want     bool
	}{
		{OpEqual, 0, 0, true},
		{OpEqual, 5, 0, false},
		{OpGreater, 100, 90, true},
		{OpGreater, 90, 90, false},
		{OpLess, 1, 2, true},
		{OpGreaterEqual, 90, 90, true},
		{OpLessEqual, 90, 90, true},
		{OpLessEqual, 91, 90, false},
		{Operator("!="), 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.Compare(tt.actual, tt.expected))
		})
	}
}

func TestDefaultChecks(t *testing.T) {
	checks := DefaultChecks(90000, 95000)
	require.NotEmpty(t, checks)

	names := map[string]bool{}
	categories := map[Category]int{}
	for _, c := range checks {
		require.NoError(t, c.validate(), c.Name)
		assert.False(t, names[c.Name], "duplicate check %q", c.Name)
		names[c.Name] = true
		categories[c.Category]++
	}

	assert.Equal(t, 5, categories[CategoryPrimaryKeys])
	assert.Equal(t, 4, categories[CategoryForeignKeys])
	assert.Equal(t, 6, categories[CategoryValidValues])
	assert.Equal(t, 3, categories[CategoryCompleteness])
	assert.Equal(t, 3, categories[CategoryConsistency])
	assert.Equal(t, 4, categories[CategoryVolumetry])
	assert.True(t, names["orders: more than 95000 rows"])
}

func TestLoadChecks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checks.yaml")
	suite := `
checks:
  - name: orders not empty
    category: volumetry
    query: SELECT COUNT(*) FROM orders
    expected: 0
    operator: ">"
  - name: no negative payments
    query: SELECT COUNT(*) FROM payments WHERE payment_value < 0
`
	require.NoError(t, os.WriteFile(path, []byte(suite), 0o644))

	checks, err := LoadChecks(path)
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Equal(t, OpGreater, checks[0].Operator)
	assert.Equal(t, CategoryVolumetry, checks[0].Category)
	assert.Equal(t, OpEqual, checks[1].Operator)
	assert.Equal(t, CategoryCustom, checks[1].Category)
}

func TestLoadChecks_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadChecks(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("checks: [unclosed"), 0o644))
	_, err = LoadChecks(bad)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("checks: []\n"), 0o644))
	_, err = LoadChecks(empty)
	assert.ErrorContains(t, err, "defines no checks")

	badOp := filepath.Join(dir, "op.yaml")
	require.NoError(t, os.WriteFile(badOp, []byte("checks:\n  - name: x\n    query: SELECT 1\n    operator: \"!=\"\n"), 0o644))
	_, err = LoadChecks(badOp)
	assert.ErrorContains(t, err, "unsupported operator")
}

func TestRunner_Run(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	checks := []Check{
		{Name: "unique ids", Category: CategoryPrimaryKeys, Query: "SELECT COUNT(*) - COUNT(DISTINCT customer_id) FROM customers", Operator: OpEqual},
		{Name: "volume", Category: CategoryVolumetry, Query: "SELECT COUNT(*) FROM orders", Expected: 90000, Operator: OpGreater},
		{Name: "broken", Category: CategoryCustom, Query: "SELECT COUNT(*) FROM missing_table", Operator: OpEqual},
		{Name: "empty ratio", Category: CategoryCompleteness, Query: "SELECT NULL", Expected: 95, Operator: OpGreater},
	}

	mock.ExpectQuery(regexp.QuoteMeta(scalarQuery(checks[0].Query))).
		WillReturnRows(pgxmock.NewRows([]string{"float8"}).AddRow(float64(0)))
	mock.ExpectQuery(regexp.QuoteMeta(scalarQuery(checks[1].Query))).
		WillReturnRows(pgxmock.NewRows([]string{"float8"}).AddRow(float64(500)))
	mock.ExpectQuery(regexp.QuoteMeta(scalarQuery(checks[2].Query))).
		WillReturnError(errors.New(`relation "missing_table" does not exist`))
	mock.ExpectQuery(regexp.QuoteMeta(scalarQuery(checks[3].Query))).
		WillReturnRows(pgxmock.NewRows([]string{"float8"}).AddRow(nil))

	var seen []string
	runner := NewRunner(mock)
	runner.OnResult = func(r Result) { seen = append(seen, r.Name) }

	report, err := runner.Run(context.Background(), checks)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"unique ids", "volume", "broken", "empty ratio"}, seen)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Errors)
	assert.InDelta(t, 25.0, report.SuccessRate(), 1e-9)
	assert.False(t, report.OK())

	assert.Equal(t, StatusPass, report.Results[0].Status)
	assert.Equal(t, StatusFail, report.Results[1].Status)
	require.NotNil(t, report.Results[1].Actual)
	assert.Equal(t, 500.0, *report.Results[1].Actual)
	assert.Equal(t, StatusError, report.Results[2].Status)
	assert.Contains(t, report.Results[2].Error, "missing_table")
	assert.Nil(t, report.Results[2].Actual)
	assert.Equal(t, StatusError, report.Results[3].Status)

	failed := report.FailedResults()
	require.Len(t, failed, 3)
	assert.Equal(t, "volume", failed[0].Name)
}

func TestRunner_Cancelled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewRunner(mock).Run(ctx, DefaultChecks(1, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReport_Empty(t *testing.T) {
	r := &Report{}
	assert.Equal(t, 0.0, r.SuccessRate())
	assert.False(t, r.OK())
}

func validCustomers() []model.Customer {
	return []model.Customer{
		{CustomerID: "a", Recency: 10, Frequency: 2, Monetary: 200, AvgOrderValue: 100},
		{CustomerID: "b", Recency: 0, Frequency: 1, Monetary: 35.5, AvgOrderValue: 35.5},
		{CustomerID: "c", Recency: 400, Frequency: 3, Monetary: 90, AvgOrderValue: 30.001},
	}
}

func TestCheckCustomers_Valid(t *testing.T) {
	report := CheckCustomers(validCustomers())
	assert.True(t, report.OK(), "%+v", report.FailedResults())
	assert.Equal(t, 2+len(customerRules)+len(advisoryRules), report.Total)
	assert.Empty(t, report.Warnings())
}

func TestCheckCustomers_Violations(t *testing.T) {
	customers := append(validCustomers(),
		model.Customer{CustomerID: "a", Recency: -1, Frequency: 1, Monetary: 10, AvgOrderValue: 10},
		model.Customer{CustomerID: "", Recency: 5000, Frequency: 0, Monetary: 0},
		model.Customer{CustomerID: "d", Recency: 1, Frequency: 2, Monetary: 100, AvgOrderValue: 80},
	)

	report := CheckCustomers(customers)
	assert.False(t, report.OK())

	got := map[string]float64{}
	for _, r := range report.FailedResults() {
		require.NotNil(t, r.Actual)
		got[r.Name] = *r.Actual
	}
	assert.Equal(t, map[string]float64{
		"customers: customer_id unique":                         1,
		"customers: customer_id present":                        1,
		"customers: recency >= 0":                               1,
		"customers: frequency >= 1":                             1,
		"customers: monetary > 0":                               1,
		"customers: avg_order_value matches monetary/frequency": 1,
	}, got)

	warns := report.Warnings()
	require.Len(t, warns, 1)
	assert.Equal(t, "customers: recency within ten years", warns[0].Name)
	assert.Equal(t, 1, report.Warned)
}

func TestCheckCustomers_LongRecencyOnlyWarns(t *testing.T) {
	customers := []model.Customer{
		{CustomerID: "a", Recency: 0, Frequency: 1, Monetary: 10, AvgOrderValue: 10},
		{CustomerID: "b", Recency: 1, Frequency: 2, Monetary: 50, AvgOrderValue: 25},
		{CustomerID: "c", Recency: 10000, Frequency: 1, Monetary: 5, AvgOrderValue: 5},
	}

	report := CheckCustomers(customers)
	assert.True(t, report.OK(), "%+v", report.FailedResults())
	assert.Empty(t, report.FailedResults())
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Warned)
	assert.Equal(t, report.Total, report.Passed+report.Warned)

	warns := report.Warnings()
	require.Len(t, warns, 1)
	assert.Equal(t, StatusWarn, warns[0].Status)
	assert.False(t, warns[0].Blocking())
	require.NotNil(t, warns[0].Actual)
	assert.Equal(t, 1.0, *warns[0].Actual)
}

func TestCheckCustomers_Empty(t *testing.T) {
	report := CheckCustomers(nil)
	assert.False(t, report.OK())
	assert.Equal(t, "customers: has rows", report.FailedResults()[0].Name)
}
