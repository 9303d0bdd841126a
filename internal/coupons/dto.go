package coupons

import (
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCouponInput is the admin payload for a new coupon.
type CreateCouponInput struct {
	Code              string
	Description       *string
	DiscountType      enums.DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	MinOrderValue     *decimal.Decimal
	MaxUsageCount     *int
	MaxUsagePerUser   int
	ValidFrom         time.Time
	ValidUntil        time.Time
	FirstOrderOnly    bool
}

// UpdateCouponInput carries optional admin changes. Nil fields are left as is.
type UpdateCouponInput struct {
	Description       *string
	DiscountValue     *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	MinOrderValue     *decimal.Decimal
	MaxUsageCount     *int
	MaxUsagePerUser   *int
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	FirstOrderOnly    *bool
	IsActive          *bool
}

// ValidationResult reports whether a code can be used for an amount.
type ValidationResult struct {
	Valid          bool               `json:"valid"`
	Message        string             `json:"message"`
	Code           string             `json:"code"`
	CouponID       *uuid.UUID         `json:"coupon_id,omitempty"`
	DiscountType   enums.DiscountType `json:"discount_type,omitempty"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
}

// ApplyInput applies a code to an order inside the caller's transaction.
type ApplyInput struct {
	OrderID          uuid.UUID
	UserID           uuid.UUID
	Code             string
	OrderAmount      decimal.Decimal
	ExistingCouponID *uuid.UUID
}

// Application is the outcome of a successful Apply.
type Application struct {
	Coupon         *models.Coupon
	Usage          *models.CouponUsage
	DiscountAmount decimal.Decimal
}

// UsageStats summarises how a coupon has been used.
type UsageStats struct {
	CouponID      uuid.UUID       `json:"coupon_id"`
	Code          string          `json:"code"`
	UsageCount    int             `json:"usage_count"`
	MaxUsageCount *int            `json:"max_usage_count,omitempty"`
	RemainingUses *int            `json:"remaining_uses,omitempty"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	IsActive      bool            `json:"is_active"`
}
