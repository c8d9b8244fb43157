package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/db"
	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/resilience"
)

// PostgresSource reads the transaction tables through a pgx pool.
type PostgresSource struct {
	pool db.Pool
}

// NewPostgres connects to url with retries.
func NewPostgres(ctx context.Context, url string) (*PostgresSource, error) {
	pool, err := db.Connect(ctx, url, resilience.DefaultRetryConfig())
	if err != nil {
		return nil, eris.Wrap(err, "source: postgres")
	}
	return &PostgresSource{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Close closes the pool.
func NewPostgresFromPool(pool db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Pool exposes the underlying pool for sinks and the quality runner.
func (s *PostgresSource) Pool() db.Pool { return s.pool }

// Orders implements Source.
func (s *PostgresSource) Orders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	query, args := ordersQuery(dollar, f)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "source: query orders")
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			o      model.Order
			review *float64
			ts     time.Time
		)
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.State, &o.City, &ts, &o.Value, &review); err != nil {
			return nil, eris.Wrap(err, "source: scan order")
		}
		o.PurchasedAt = ts.UTC()
		o.ReviewScore = review
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "source: iterate orders")
	}

	zap.L().Info("source: loaded orders", zap.String("driver", "postgres"), zap.Int("rows", len(orders)))
	return orders, nil
}

// CustomerRFM implements Source.
func (s *PostgresSource) CustomerRFM(ctx context.Context, ref *time.Time) (*CustomerSet, error) {
	orders, err := s.Orders(ctx, OrderFilter{})
	if err != nil {
		return nil, err
	}
	return Aggregate(orders, ref)
}

// Close implements Source.
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}
