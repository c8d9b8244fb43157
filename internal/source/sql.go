package source

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql" // registers "mysql"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/sells-group/custvalue-cli/internal/config"
	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/resilience"
)

// SQLSource reads the transaction tables through database/sql. It serves
// SQLite files and MySQL/MariaDB servers.
type SQLSource struct {
	db     *sql.DB
	driver string
}

// NewSQL opens dsn with driver ("sqlite" or "mysql") and pings it with
// retries.
func NewSQL(ctx context.Context, driver, dsn string) (*SQLSource, error) {
	if driver != config.DriverSQLite && driver != config.DriverMySQL {
		return nil, eris.Errorf("source: unsupported sql driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", driver)
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger(driver, "ping")
	if err := resilience.Do(ctx, retry, conn.PingContext); err != nil {
		conn.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "source: ping %s", driver)
	}

	if driver == config.DriverSQLite {
		if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "source: sqlite pragma")
		}
	}
	return &SQLSource{db: conn, driver: driver}, nil
}

// NewSQLFromDB wraps an open handle.
func NewSQLFromDB(conn *sql.DB, driver string) *SQLSource {
	return &SQLSource{db: conn, driver: driver}
}

// Orders implements Source.
func (s *SQLSource) Orders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	query, args := ordersQuery(question, f)
	if s.driver == config.DriverSQLite {
		// SQLite compares timestamps as text.
		for i, a := range args {
			args[i] = a.(time.Time).UTC().Format("2006-01-02 15:04:05")
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "source: query orders (%s)", s.driver)
	}
	defer rows.Close() //nolint:errcheck

	var orders []model.Order
	for rows.Next() {
		var (
			o      model.Order
			ts     any
			review sql.NullFloat64
		)
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.State, &o.City, &ts, &o.Value, &review); err != nil {
			return nil, eris.Wrap(err, "source: scan order")
		}
		if o.PurchasedAt, err = timestampValue(ts); err != nil {
			return nil, eris.Wrapf(err, "source: order %s", o.OrderID)
		}
		if review.Valid {
			v := review.Float64
			o.ReviewScore = &v
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "source: iterate orders")
	}

	zap.L().Info("source: loaded orders", zap.String("driver", s.driver), zap.Int("rows", len(orders)))
	return orders, nil
}

// CustomerRFM implements Source.
func (s *SQLSource) CustomerRFM(ctx context.Context, ref *time.Time) (*CustomerSet, error) {
	orders, err := s.Orders(ctx, OrderFilter{})
	if err != nil {
		return nil, err
	}
	return Aggregate(orders, ref)
}

// Close implements Source.
func (s *SQLSource) Close() error {
	return s.db.Close()
}
