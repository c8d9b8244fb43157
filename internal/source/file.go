package source

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/tabular"
)

// FileSource reads CSV or XLSX exports. CustomersPath holds precomputed RFM
// aggregates; OrdersPath holds payment rows. Either may be empty.
type FileSource struct {
	CustomersPath string
	OrdersPath    string
	Options       tabular.Options
}

// NewFile returns a FileSource over the given paths.
func NewFile(customersPath, ordersPath string) *FileSource {
	return &FileSource{CustomersPath: customersPath, OrdersPath: ordersPath}
}

// idColumn returns the customer key column, preferring the unique id.
func idColumn(h tabular.Header) string {
	if h.Has("customer_unique_id") {
		return "customer_unique_id"
	}
	return "customer_id"
}

// CustomerRFM implements Source. With a customers table the rows are taken
// as-is and ref is ignored; otherwise the orders table is aggregated.
func (s *FileSource) CustomerRFM(ctx context.Context, ref *time.Time) (*CustomerSet, error) {
	if s.CustomersPath == "" {
		if s.OrdersPath == "" {
			return nil, eris.New("source: no customers or orders file configured")
		}
		orders, err := s.Orders(ctx, OrderFilter{})
		if err != nil {
			return nil, err
		}
		return Aggregate(orders, ref)
	}

	var customers []model.Customer
	err := tabular.Each(ctx, s.CustomersPath, s.Options, func(r tabular.Row) error {
		if err := r.Header.Require(idColumn(r.Header), "recency", "frequency", "monetary"); err != nil {
			return err
		}
		c, err := parseCustomer(r)
		if err != nil {
			return eris.Wrapf(err, "source: %s line %d", s.CustomersPath, r.Line)
		}
		customers = append(customers, c)
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "source: read customers")
	}

	zap.L().Info("source: loaded customers", zap.String("path", s.CustomersPath), zap.Int("rows", len(customers)))
	return &CustomerSet{Customers: customers}, nil
}

func parseCustomer(r tabular.Row) (model.Customer, error) {
	c := model.Customer{
		CustomerID: r.Get(idColumn(r.Header)),
		State:      r.Get("customer_state"),
	}

	var err error
	if c.Recency, err = parseInt(r, "recency"); err != nil {
		return c, err
	}
	if c.Frequency, err = parseInt(r, "frequency"); err != nil {
		return c, err
	}
	if c.Monetary, err = parseFloat(r, "monetary"); err != nil {
		return c, err
	}
	if r.Get("avg_order_value") != "" {
		if c.AvgOrderValue, err = parseFloat(r, "avg_order_value"); err != nil {
			return c, err
		}
	} else if c.Frequency > 0 {
		c.AvgOrderValue = c.Monetary / float64(c.Frequency)
	}
	return c, nil
}

// Orders implements Source. Rows whose order_status column is present and
// not "delivered" are skipped.
func (s *FileSource) Orders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	if s.OrdersPath == "" {
		return nil, eris.New("source: no orders file configured")
	}

	var orders []model.Order
	err := tabular.Each(ctx, s.OrdersPath, s.Options, func(r tabular.Row) error {
		if err := r.Header.Require("order_id", idColumn(r.Header), "order_purchase_timestamp", "payment_value"); err != nil {
			return err
		}
		if st := r.Get("order_status"); st != "" && !strings.EqualFold(st, "delivered") {
			return nil
		}
		o, err := parseOrder(r)
		if err != nil {
			return eris.Wrapf(err, "source: %s line %d", s.OrdersPath, r.Line)
		}
		if f.match(o.PurchasedAt) {
			orders = append(orders, o)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "source: read orders")
	}

	zap.L().Info("source: loaded orders", zap.String("path", s.OrdersPath), zap.Int("rows", len(orders)))
	return orders, nil
}

func parseOrder(r tabular.Row) (model.Order, error) {
	o := model.Order{
		OrderID:    r.Get("order_id"),
		CustomerID: r.Get(idColumn(r.Header)),
		State:      r.Get("customer_state"),
		City:       r.Get("customer_city"),
	}

	var err error
	if o.PurchasedAt, err = parseTimestamp(r.Get("order_purchase_timestamp")); err != nil {
		return o, err
	}
	if o.Value, err = parseFloat(r, "payment_value"); err != nil {
		return o, err
	}
	if r.Get("review_score") != "" {
		v, err := parseFloat(r, "review_score")
		if err != nil {
			return o, err
		}
		o.ReviewScore = &v
	}
	return o, nil
}

func parseInt(r tabular.Row, col string) (int, error) {
	v, err := strconv.Atoi(r.Get(col))
	if err != nil {
		// Exports often write integer columns as 3.0.
		f, ferr := strconv.ParseFloat(r.Get(col), 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, eris.Errorf("%s: %q is not an integer", col, r.Get(col))
		}
		return int(f), nil
	}
	return v, nil
}

func parseFloat(r tabular.Row, col string) (float64, error) {
	v, err := strconv.ParseFloat(r.Get(col), 64)
	if err != nil {
		return 0, eris.Errorf("%s: %q is not a number", col, r.Get(col))
	}
	return v, nil
}

// Close implements Source.
func (s *FileSource) Close() error { return nil }
