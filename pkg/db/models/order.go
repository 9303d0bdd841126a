package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
)

// Order is a customer's service order. Status and money fields change only
// through the orders, coupons, assignments and payments services.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber         string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID          uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	PickupAddressID     uuid.UUID           `gorm:"column:pickup_address_id;type:uuid;not null"`
	DeliveryAddressID   uuid.UUID           `gorm:"column:delivery_address_id;type:uuid;not null"`
	PickupDate          dbtypes.Date        `gorm:"column:pickup_date;type:date;not null"`
	PickupWindow        string              `gorm:"column:pickup_window;not null"`
	DeliveryDate        *dbtypes.Date       `gorm:"column:delivery_date;type:date"`
	Status              enums.OrderStatus   `gorm:"column:status;not null;default:'PENDING'"`
	PaymentStatus       enums.PaymentStatus `gorm:"column:payment_status;not null;default:'PENDING'"`
	Currency            enums.Currency      `gorm:"column:currency;not null;default:'INR'"`
	Subtotal            decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	AddonCharges        decimal.Decimal     `gorm:"column:addon_charges;type:numeric(12,2);not null"`
	TaxAmount           decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	DiscountAmount      decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	TotalAmount         decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	CouponID            *uuid.UUID          `gorm:"column:coupon_id;type:uuid"`
	SpecialInstructions *string             `gorm:"column:special_instructions"`
	ActualPickupTime    *time.Time          `gorm:"column:actual_pickup_time"`
	ActualDeliveryTime  *time.Time          `gorm:"column:actual_delivery_time"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items  []OrderItem  `gorm:"foreignKey:OrderID;references:ID"`
	Addons []OrderAddon `gorm:"foreignKey:OrderID;references:ID"`
}

// OrderItem is one priced service line on an order.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ServiceID   uuid.UUID       `gorm:"column:service_id;type:uuid;not null"`
	ClothTypeID uuid.UUID       `gorm:"column:cloth_type_id;type:uuid;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderAddon is one priced addon on an order.
type OrderAddon struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	AddonID   uuid.UUID       `gorm:"column:addon_id;type:uuid;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderStatusHistory is an append-only audit row for a status transition.
type OrderStatusHistory struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	PreviousStatus *enums.OrderStatus `gorm:"column:previous_status"`
	NewStatus      enums.OrderStatus  `gorm:"column:new_status;not null"`
	ChangedBy      string             `gorm:"column:changed_by;not null"`
	Notes          *string            `gorm:"column:notes"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

// OrderNumberCounter holds the last issued order number suffix.
type OrderNumberCounter struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Value     int64     `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
