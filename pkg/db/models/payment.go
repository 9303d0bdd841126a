package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/washfold-backend/pkg/enums"
)

// Payment tracks one remote payment intent for an order.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	Provider        string              `gorm:"column:provider;not null"`
	RemoteOrderID   string              `gorm:"column:remote_order_id;not null;uniqueIndex"`
	RemotePaymentID *string             `gorm:"column:remote_payment_id"`
	Signature       *string             `gorm:"column:signature"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency        enums.Currency      `gorm:"column:currency;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;not null;default:'PENDING'"`
	FailureReason   *string             `gorm:"column:failure_reason"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
