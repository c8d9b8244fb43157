// Package cohort builds monthly acquisition cohorts from delivered orders
// and measures how many customers of each cohort come back in later months.
package cohort

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/model"
)

// Event is one payment attributed to its customer's acquisition cohort.
type Event struct {
	CustomerID    string    `json:"customer_unique_id"`
	CohortMonth   time.Time `json:"cohort_month"`
	PurchaseMonth time.Time `json:"purchase_month"`
	Value         float64   `json:"payment_value"`
	MonthsSince   int       `json:"months_since_first_purchase"`
}

// Window limits which purchases can start a cohort. Both ends are optional
// and inclusive; End covers the whole day.
type Window struct {
	Start *time.Time
	End   *time.Time
}

func (w Window) contains(t time.Time) bool {
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && !t.Before(w.End.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// Events assigns each customer a cohort from their first purchase inside w
// and emits every later payment of that customer. Payments before the cohort
// month and customers with no purchase inside w are dropped. Events are
// ordered by cohort, customer and purchase month.
func Events(orders []model.Order, w Window) []Event {
	first := make(map[string]time.Time)
	for _, o := range orders {
		if !w.contains(o.PurchasedAt) {
			continue
		}
		if f, ok := first[o.CustomerID]; !ok || o.PurchasedAt.Before(f) {
			first[o.CustomerID] = o.PurchasedAt
		}
	}

	var out []Event
	for _, o := range orders {
		f, ok := first[o.CustomerID]
		if !ok {
			continue
		}
		cm := model.MonthOf(f)
		pm := model.MonthOf(o.PurchasedAt)
		since := model.MonthsBetween(cm, pm)
		if since < 0 {
			continue
		}
		out = append(out, Event{
			CustomerID:    o.CustomerID,
			CohortMonth:   cm,
			PurchaseMonth: pm,
			Value:         o.Value,
			MonthsSince:   since,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CohortMonth.Equal(b.CohortMonth) {
			return a.CohortMonth.Before(b.CohortMonth)
		}
		if a.CustomerID != b.CustomerID {
			return a.CustomerID < b.CustomerID
		}
		return a.PurchaseMonth.Before(b.PurchaseMonth)
	})

	zap.L().Info("cohort: events extracted",
		zap.Int("payments", len(orders)),
		zap.Int("events", len(out)),
		zap.Int("customers", len(first)),
	)
	return out
}

// Matrix is a cohort-by-period table of percentages. Values[i][p] belongs
// to Cohorts[i] at period p (months since first purchase).
type Matrix struct {
	Cohorts []time.Time `json:"cohorts"`
	Sizes   []int       `json:"cohort_sizes"`
	Values  [][]float64 `json:"values"`
}

// Periods returns the number of period columns (M0..M{n-1}).
func (m Matrix) Periods() int {
	if len(m.Values) == 0 {
		return 0
	}
	return len(m.Values[0])
}

// Label returns cohort i as YYYY-MM.
func (m Matrix) Label(i int) string {
	return m.Cohorts[i].Format("2006-01")
}

// At returns the cell for cohort month c and period p.
func (m Matrix) At(c time.Time, p int) (float64, bool) {
	for i, cm := range m.Cohorts {
		if cm.Equal(c) {
			if p < 0 || p >= len(m.Values[i]) {
				return 0, false
			}
			return m.Values[i][p], true
		}
	}
	return 0, false
}

// Retention returns, per cohort and period up to maxMonths, the share of
// the cohort's customers active in that period. Cells with no activity are 0.
// Columns run to the last period observed in any cohort.
func Retention(events []Event, maxMonths int) Matrix {
	type key struct {
		cohort time.Time
		period int
	}
	active := make(map[key]map[string]struct{})
	lastPeriod := -1
	for _, e := range events {
		if e.MonthsSince > maxMonths {
			continue
		}
		k := key{e.CohortMonth, e.MonthsSince}
		if active[k] == nil {
			active[k] = make(map[string]struct{})
		}
		active[k][e.CustomerID] = struct{}{}
		if e.MonthsSince > lastPeriod {
			lastPeriod = e.MonthsSince
		}
	}

	var m Matrix
	for k := range active {
		if k.period == 0 {
			m.Cohorts = append(m.Cohorts, k.cohort)
		}
	}
	sort.Slice(m.Cohorts, func(i, j int) bool { return m.Cohorts[i].Before(m.Cohorts[j]) })

	for _, c := range m.Cohorts {
		size := len(active[key{c, 0}])
		row := make([]float64, lastPeriod+1)
		for p := range row {
			row[p] = float64(len(active[key{c, p}])) / float64(size) * 100
		}
		m.Sizes = append(m.Sizes, size)
		m.Values = append(m.Values, row)
	}
	return m
}

// Churn returns 100 minus every retention cell.
func Churn(retention Matrix) Matrix {
	out := Matrix{
		Cohorts: retention.Cohorts,
		Sizes:   retention.Sizes,
		Values:  make([][]float64, len(retention.Values)),
	}
	for i, row := range retention.Values {
		out.Values[i] = make([]float64, len(row))
		for p, v := range row {
			out.Values[i][p] = 100 - v
		}
	}
	return out
}
