package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema. Amounts are stored
// in minor currency units.
type OrderEventRow struct {
	EventID        string             `bigquery:"event_id"`
	EventType      string             `bigquery:"event_type"`
	OccurredAt     time.Time          `bigquery:"occurred_at"`
	OrderID        *string            `bigquery:"order_id"`
	OrderNumber    *string            `bigquery:"order_number"`
	CustomerID     *string            `bigquery:"customer_id"`
	PaymentID      *string            `bigquery:"payment_id"`
	Status         *string            `bigquery:"status"`
	PreviousStatus *string            `bigquery:"previous_status"`
	PickupDate     *string            `bigquery:"pickup_date"`
	PickupWindow   *string            `bigquery:"pickup_window"`
	AmountMinor    *int64             `bigquery:"amount_minor"`
	DiscountMinor  *int64             `bigquery:"discount_minor"`
	Currency       *string            `bigquery:"currency"`
	CouponCode     *string            `bigquery:"coupon_code"`
	Source         *string            `bigquery:"source"`
	Actor          *string            `bigquery:"actor"`
	Reason         *string            `bigquery:"reason"`
	Payload        cbigquery.NullJSON `bigquery:"payload"`
}
