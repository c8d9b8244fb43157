package quality

import "fmt"

// brazilianStates lists the 26 states plus the federal district.
const brazilianStates = `'AC','AL','AP','AM','BA','CE','DF','ES','GO','MA','MT','MS','MG','PA',
	'PB','PR','PE','PI','RJ','RN','RS','RO','RR','SC','SP','SE','TO'`

const orderStatuses = `'delivered','shipped','canceled','unavailable','invoiced','processing','created','approved'`

// DefaultChecks returns the built-in suite for the e-commerce schema
// (customers, orders, order_items, products, payments, reviews) in Postgres
// SQL. Volume checks require more than minCustomers customers and minOrders
// orders.
func DefaultChecks(minCustomers, minOrders int) []Check {
	zero := func(name string, cat Category, query string) Check {
		return Check{Name: name, Category: cat, Query: query, Expected: 0, Operator: OpEqual}
	}

	return []Check{
		zero("customers: customer_id unique", CategoryPrimaryKeys,
			`SELECT COUNT(*) - COUNT(DISTINCT customer_id) FROM customers`),
		zero("customers: customer_id not null", CategoryPrimaryKeys,
			`SELECT COUNT(*) FILTER (WHERE customer_id IS NULL) FROM customers`),
		zero("orders: order_id unique", CategoryPrimaryKeys,
			`SELECT COUNT(*) - COUNT(DISTINCT order_id) FROM orders`),
		zero("orders: order_id not null", CategoryPrimaryKeys,
			`SELECT COUNT(*) FILTER (WHERE order_id IS NULL) FROM orders`),
		zero("order_items: (order_id, order_item_id) unique", CategoryPrimaryKeys,
			`SELECT COUNT(*) - COUNT(DISTINCT (order_id, order_item_id)) FROM order_items`),

		zero("orders.customer_id exists in customers", CategoryForeignKeys,
			`SELECT COUNT(*) FROM orders o LEFT JOIN customers c ON o.customer_id = c.customer_id WHERE c.customer_id IS NULL`),
		zero("order_items.order_id exists in orders", CategoryForeignKeys,
			`SELECT COUNT(*) FROM order_items oi LEFT JOIN orders o ON oi.order_id = o.order_id WHERE o.order_id IS NULL`),
		zero("order_items.product_id exists in products", CategoryForeignKeys,
			`SELECT COUNT(*) FROM order_items oi LEFT JOIN products p ON oi.product_id = p.product_id WHERE p.product_id IS NULL`),
		zero("payments.order_id exists in orders", CategoryForeignKeys,
			`SELECT COUNT(*) FROM payments p LEFT JOIN orders o ON p.order_id = o.order_id WHERE o.order_id IS NULL`),

		zero("order_items: price >= 0", CategoryValidValues,
			`SELECT COUNT(*) FILTER (WHERE price < 0) FROM order_items`),
		zero("order_items: freight_value >= 0", CategoryValidValues,
			`SELECT COUNT(*) FILTER (WHERE freight_value < 0) FROM order_items`),
		zero("payments: payment_value > 0", CategoryValidValues,
			`SELECT COUNT(*) FILTER (WHERE payment_value <= 0) FROM payments`),
		zero("reviews: review_score between 1 and 5", CategoryValidValues,
			`SELECT COUNT(*) FILTER (WHERE review_score < 1 OR review_score > 5) FROM reviews WHERE review_score IS NOT NULL`),
		zero("customers: customer_state is a valid state", CategoryValidValues,
			fmt.Sprintf(`SELECT COUNT(DISTINCT customer_state) FROM customers WHERE customer_state NOT IN (%s)`, brazilianStates)),
		zero("orders: order_status is known", CategoryValidValues,
			fmt.Sprintf(`SELECT COUNT(*) FILTER (WHERE order_status NOT IN (%s)) FROM orders`, orderStatuses)),

		{
			Name:     "orders: order_purchase_timestamp present (>99%)",
			Category: CategoryCompleteness,
			Query:    `SELECT COUNT(order_purchase_timestamp)::float8 / NULLIF(COUNT(*), 0) * 100 FROM orders`,
			Expected: 99, Operator: OpGreater,
		},
		{
			Name:     "products: product_category_name present (>95%)",
			Category: CategoryCompleteness,
			Query:    `SELECT COUNT(product_category_name)::float8 / NULLIF(COUNT(*), 0) * 100 FROM products`,
			Expected: 95, Operator: OpGreater,
		},
		{
			Name:     "delivered orders: delivery date present (>95%)",
			Category: CategoryCompleteness,
			Query:    `SELECT COUNT(order_delivered_customer_date)::float8 / NULLIF(COUNT(*), 0) * 100 FROM orders WHERE order_status = 'delivered'`,
			Expected: 95, Operator: OpGreater,
		},

		zero("orders: purchase before delivery", CategoryConsistency,
			`SELECT COUNT(*) FILTER (WHERE order_purchase_timestamp >= order_delivered_customer_date) FROM orders WHERE order_delivered_customer_date IS NOT NULL`),
		zero("orders: estimated delivery not before purchase", CategoryConsistency,
			`SELECT COUNT(*) FILTER (WHERE order_estimated_delivery_date < order_purchase_timestamp) FROM orders WHERE order_estimated_delivery_date IS NOT NULL`),
		zero("payments: total per order matches items (<1% difference)", CategoryConsistency,
			`WITH paid AS (
				SELECT order_id, SUM(payment_value) AS total FROM payments GROUP BY order_id
			), items AS (
				SELECT order_id, SUM(price + freight_value) AS total FROM order_items GROUP BY order_id
			)
			SELECT COUNT(*) FILTER (WHERE ABS(paid.total - items.total) > items.total * 0.01)
			FROM paid JOIN items ON paid.order_id = items.order_id`),

		{
			Name:     fmt.Sprintf("customers: more than %d rows", minCustomers),
			Category: CategoryVolumetry,
			Query:    `SELECT COUNT(*) FROM customers`,
			Expected: float64(minCustomers), Operator: OpGreater,
		},
		{
			Name:     fmt.Sprintf("orders: more than %d rows", minOrders),
			Category: CategoryVolumetry,
			Query:    `SELECT COUNT(*) FROM orders`,
			Expected: float64(minOrders), Operator: OpGreater,
		},
		{
			Name:     "order_items: more items than orders",
			Category: CategoryVolumetry,
			Query:    `SELECT (SELECT COUNT(*) FROM order_items) - (SELECT COUNT(*) FROM orders)`,
			Expected: 0, Operator: OpGreater,
		},
		{
			Name:     "orders: delivered share (>90%)",
			Category: CategoryVolumetry,
			Query:    `SELECT COUNT(*) FILTER (WHERE order_status = 'delivered')::float8 / NULLIF(COUNT(*), 0) * 100 FROM orders`,
			Expected: 90, Operator: OpGreater,
		},
	}
}
