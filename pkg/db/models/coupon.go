package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/washfold-backend/pkg/enums"
)

// Coupon is a discount code with usage and eligibility limits.
type Coupon struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string              `gorm:"column:code;not null;uniqueIndex"`
	Description       *string             `gorm:"column:description"`
	DiscountType      enums.DiscountType  `gorm:"column:discount_type;not null"`
	DiscountValue     decimal.Decimal     `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MaxDiscountAmount decimal.NullDecimal `gorm:"column:max_discount_amount;type:numeric(12,2)"`
	MinOrderValue     decimal.NullDecimal `gorm:"column:min_order_value;type:numeric(12,2)"`
	MaxUsageCount     *int                `gorm:"column:max_usage_count"`
	MaxUsagePerUser   int                 `gorm:"column:max_usage_per_user;not null;default:1"`
	CurrentUsageCount int                 `gorm:"column:current_usage_count;not null;default:0"`
	ValidFrom         time.Time           `gorm:"column:valid_from;not null"`
	ValidUntil        time.Time           `gorm:"column:valid_until;not null"`
	FirstOrderOnly    bool                `gorm:"column:first_order_only;not null;default:false"`
	IsActive          bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// CouponUsage records one application of a coupon to an order.
type CouponUsage struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID       uuid.UUID       `gorm:"column:coupon_id;type:uuid;not null"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	UsedAt         time.Time       `gorm:"column:used_at;autoCreateTime"`
}
