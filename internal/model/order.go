package model

import "time"

// Order is one delivered order payment as read from the transaction tables.
// An order paid in several installments appears once per payment row.
type Order struct {
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_unique_id"`
	State       string    `json:"customer_state,omitempty"`
	City        string    `json:"customer_city,omitempty"`
	PurchasedAt time.Time `json:"order_purchase_timestamp"`
	Value       float64   `json:"payment_value"`
	ReviewScore *float64  `json:"review_score,omitempty"`
}

// MonthOf truncates t to the first day of its month in UTC.
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates t to midnight UTC.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours() / 24)
}

// MonthsBetween returns the number of calendar months from a to b.
func MonthsBetween(a, b time.Time) int {
	a, b = a.UTC(), b.UTC()
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
