// Package source extracts orders and per-customer RFM aggregates from
// Postgres, SQLite, MySQL or local CSV/XLSX files.
package source

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/config"
	"github.com/sells-group/custvalue-cli/internal/model"
)

// CustomerSet is the RFM input table and the reference date recency was
// measured against. ReferenceDate is zero when the input carried
// precomputed recency.
type CustomerSet struct {
	Customers     []model.Customer
	ReferenceDate time.Time
}

// OrderFilter restricts orders by purchase time. Both bounds are inclusive
// and nil means unbounded.
type OrderFilter struct {
	Since *time.Time
	Until *time.Time
}

func (f OrderFilter) match(t time.Time) bool {
	if f.Since != nil && t.Before(*f.Since) {
		return false
	}
	if f.Until != nil && t.After(*f.Until) {
		return false
	}
	return true
}

// Source reads delivered orders and RFM aggregates.
type Source interface {
	// CustomerRFM returns one row per customer. A nil ref uses the latest
	// delivered purchase date.
	CustomerRFM(ctx context.Context, ref *time.Time) (*CustomerSet, error)
	// Orders returns delivered order payments, one row per payment.
	Orders(ctx context.Context, f OrderFilter) ([]model.Order, error)
	Close() error
}

// Open builds the Source selected by cfg.Driver, connecting with retries
// for database drivers.
func Open(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg.DatabaseURL)
	case config.DriverSQLite, config.DriverMySQL:
		return NewSQL(ctx, cfg.Driver, cfg.DatabaseURL)
	case config.DriverCSV:
		src := NewFile(cfg.CustomersPath, cfg.OrdersPath)
		src.Options.CSV.Charset = cfg.Charset
		src.Options.XLSX.SheetName = cfg.Sheet
		return src, nil
	}
	return nil, eris.Errorf("source: unsupported driver %q", cfg.Driver)
}

// Aggregate rolls order payments up to one RFM row per customer as of ref.
// Orders purchased after ref's calendar day are ignored. A nil ref uses the
// latest purchase in orders. State comes from the customer's latest order.
func Aggregate(orders []model.Order, ref *time.Time) (*CustomerSet, error) {
	var asOf time.Time
	if ref != nil {
		asOf = *ref
	} else {
		for _, o := range orders {
			if o.PurchasedAt.After(asOf) {
				asOf = o.PurchasedAt
			}
		}
	}
	if asOf.IsZero() {
		return nil, eris.New("source: no orders to aggregate")
	}
	cutoff := model.DayOf(asOf)

	type acc struct {
		state    string
		last     time.Time
		orders   map[string]struct{}
		monetary float64
	}
	byCustomer := make(map[string]*acc)
	for _, o := range orders {
		if model.DayOf(o.PurchasedAt).After(cutoff) {
			continue
		}
		a, ok := byCustomer[o.CustomerID]
		if !ok {
			a = &acc{orders: make(map[string]struct{})}
			byCustomer[o.CustomerID] = a
		}
		a.orders[o.OrderID] = struct{}{}
		a.monetary += o.Value
		if !o.PurchasedAt.Before(a.last) {
			a.last = o.PurchasedAt
			a.state = o.State
		}
	}

	customers := make([]model.Customer, 0, len(byCustomer))
	for id, a := range byCustomer {
		freq := len(a.orders)
		customers = append(customers, model.Customer{
			CustomerID:    id,
			State:         a.state,
			Recency:       model.DaysBetween(a.last, asOf),
			Frequency:     freq,
			Monetary:      a.monetary,
			AvgOrderValue: a.monetary / float64(freq),
		})
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].CustomerID < customers[j].CustomerID })

	zap.L().Info("source: aggregated customers",
		zap.Int("orders", len(orders)),
		zap.Int("customers", len(customers)),
		zap.Time("reference_date", asOf),
	)
	return &CustomerSet{Customers: customers, ReferenceDate: asOf}, nil
}
