package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// placeholder renders the i-th (1-based) bind parameter.
type placeholder func(i int) string

func dollar(i int) string { return "$" + strconv.Itoa(i) }
func question(int) string { return "?" }

// ordersBaseQuery reads delivered order payments joined to the customer's
// unique id. Reviews are averaged per order so payments are not duplicated.
const ordersBaseQuery = `SELECT o.order_id,
	c.customer_unique_id,
	COALESCE(c.customer_state, ''),
	COALESCE(c.customer_city, ''),
	o.order_purchase_timestamp,
	p.payment_value,
	r.review_score
FROM orders o
JOIN customers c ON o.customer_id = c.customer_id
JOIN payments p ON o.order_id = p.order_id
LEFT JOIN (
	SELECT order_id, AVG(review_score) AS review_score FROM reviews GROUP BY order_id
) r ON o.order_id = r.order_id
WHERE o.order_status = 'delivered'
	AND o.order_purchase_timestamp IS NOT NULL`

// ordersQuery appends the filter bounds to ordersBaseQuery.
func ordersQuery(ph placeholder, f OrderFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(ordersBaseQuery)

	var args []any
	if f.Since != nil {
		args = append(args, *f.Since)
		fmt.Fprintf(&b, "\n\tAND o.order_purchase_timestamp >= %s", ph(len(args)))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		fmt.Fprintf(&b, "\n\tAND o.order_purchase_timestamp <= %s", ph(len(args)))
	}
	b.WriteString("\nORDER BY o.order_purchase_timestamp, o.order_id")
	return b.String(), args
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts the textual timestamp forms produced by SQLite,
// MySQL without parseTime, and CSV exports. Values without a zone are UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("source: unrecognized timestamp %q", s)
}

// timestampValue converts a driver value to time.Time.
func timestampValue(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimestamp(t)
	case []byte:
		return parseTimestamp(string(t))
	case nil:
		return time.Time{}, eris.New("source: NULL purchase timestamp")
	}
	return time.Time{}, eris.Errorf("source: unsupported timestamp type %T", v)
}
