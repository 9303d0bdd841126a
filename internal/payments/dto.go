package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
)

// IntentInput carries the optional tokenized source some providers need up front.
type IntentInput struct {
	SourceID string `json:"source_id,omitempty"`
}

// IntentView is what the client needs to open checkout.
type IntentView struct {
	PaymentID     uuid.UUID      `json:"payment_id"`
	RemoteOrderID string         `json:"remote_order_id"`
	Provider      string         `json:"provider"`
	OrderID       uuid.UUID      `json:"order_id"`
	OrderNumber   string         `json:"order_number"`
	Amount        int64          `json:"amount"`
	Currency      enums.Currency `json:"currency"`
	KeyID         string         `json:"key_id,omitempty"`
	Description   string         `json:"description"`
}

// VerifyInput is the checkout result the client posts back.
type VerifyInput struct {
	RemoteOrderID   string `json:"remote_order_id" validate:"required"`
	RemotePaymentID string `json:"remote_payment_id" validate:"required"`
	Signature       string `json:"signature" validate:"required"`
}

// PaymentView is one payment attempt.
type PaymentView struct {
	ID              uuid.UUID           `json:"id"`
	OrderID         uuid.UUID           `json:"order_id"`
	Provider        string              `json:"provider"`
	RemoteOrderID   string              `json:"remote_order_id"`
	RemotePaymentID *string             `json:"remote_payment_id,omitempty"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency        enums.Currency      `json:"currency"`
	Status          enums.PaymentStatus `json:"status"`
	FailureReason   *string             `json:"failure_reason,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// WebhookResult reports what a delivered webhook changed.
type WebhookResult struct {
	Event     string     `json:"event"`
	Handled   bool       `json:"handled"`
	PaymentID *uuid.UUID `json:"payment_id,omitempty"`
	Status    string     `json:"status,omitempty"`
}

func viewFromModel(p *models.Payment) PaymentView {
	return PaymentView{
		ID:              p.ID,
		OrderID:         p.OrderID,
		Provider:        p.Provider,
		RemoteOrderID:   p.RemoteOrderID,
		RemotePaymentID: p.RemotePaymentID,
		Amount:          p.Amount,
		Currency:        p.Currency,
		Status:          p.Status,
		FailureReason:   p.FailureReason,
		PaidAt:          p.PaidAt,
		CreatedAt:       p.CreatedAt,
	}
}
