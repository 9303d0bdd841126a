package payloads

import (
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is emitted once an order and its slot reservation commit.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	PickupDate     string          `json:"pickup_date"`
	PickupWindow   string          `json:"pickup_window"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       enums.Currency  `json:"currency"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	ItemCount      int             `json:"item_count"`
}

// OrderStatusChangedEvent mirrors one appended status history row.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	NewStatus      enums.OrderStatus `json:"new_status"`
	ChangedBy      string            `json:"changed_by"`
	Notes          string            `json:"notes,omitempty"`
}

// OrderCancelledEvent is emitted when a PENDING order is cancelled and its slot released.
type OrderCancelledEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	CustomerID   uuid.UUID `json:"customer_id"`
	PickupDate   string    `json:"pickup_date"`
	PickupWindow string    `json:"pickup_window"`
	CancelledBy  string    `json:"cancelled_by"`
	Reason       string    `json:"reason,omitempty"`
	CancelledAt  time.Time `json:"cancelled_at"`
}

// OrderPaidEvent is emitted exactly once per order, by whichever of verify or
// webhook wins the PENDING to PAID update.
type OrderPaidEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	PaymentID       uuid.UUID       `json:"payment_id"`
	RemoteOrderID   string          `json:"remote_order_id"`
	RemotePaymentID string          `json:"remote_payment_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        enums.Currency  `json:"currency"`
	Source          string          `json:"source"`
	PaidAt          time.Time       `json:"paid_at"`
}

// OrderRefundedEvent is emitted when an admin refunds a paid order.
type OrderRefundedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Amount      decimal.Decimal `json:"amount"`
	RefundedBy  string          `json:"refunded_by"`
	RefundedAt  time.Time       `json:"refunded_at"`
}

// PaymentFailedEvent reports a failed verification or a gateway failure event.
type PaymentFailedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	OrderID       uuid.UUID `json:"order_id"`
	RemoteOrderID string    `json:"remote_order_id"`
	Reason        string    `json:"reason"`
	Source        string    `json:"source"`
}

// CouponAppliedEvent is emitted with the usage row.
type CouponAppliedEvent struct {
	CouponID       uuid.UUID       `json:"coupon_id"`
	Code           string          `json:"code"`
	OrderID        uuid.UUID       `json:"order_id"`
	UserID         uuid.UUID       `json:"user_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// AssignmentEvent carries assignment_created and assignment_updated.
type AssignmentEvent struct {
	AssignmentID   uuid.UUID              `json:"assignment_id"`
	OrderID        uuid.UUID              `json:"order_id"`
	AgentID        uuid.UUID              `json:"agent_id"`
	AssignmentType enums.AssignmentType   `json:"assignment_type"`
	Status         enums.AssignmentStatus `json:"status"`
	Notes          string                 `json:"notes,omitempty"`
}
