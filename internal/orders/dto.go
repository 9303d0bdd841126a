package orders

import (
	"fmt"
	"time"

	"github.com/angelmondragon/washfold-backend/internal/pricing"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const systemActorName = "System"

// Actor identifies who drives a status change. The zero value is the system.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// SystemActor is used for automated transitions (creation, expiry).
func SystemActor() Actor {
	return Actor{}
}

func (a Actor) IsSystem() bool {
	return a.UserID == uuid.Nil
}

// String is the value stored in order_status_history.changed_by.
func (a Actor) String() string {
	if a.IsSystem() {
		return systemActorName
	}
	if a.Role == "" {
		return a.UserID.String()
	}
	return fmt.Sprintf("%s:%s", a.Role, a.UserID)
}

// Ref is the outbox actor, nil for the system.
func (a Actor) Ref() *outbox.ActorRef {
	if a.IsSystem() {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, Role: string(a.Role)}
}

// CreateOrderInput carries a placement request for the authenticated customer.
type CreateOrderInput struct {
	CustomerID          uuid.UUID              `json:"-"`
	PickupAddressID     uuid.UUID              `json:"pickup_address_id" validate:"required"`
	DeliveryAddressID   uuid.UUID              `json:"delivery_address_id" validate:"required"`
	PickupDate          dbtypes.Date           `json:"pickup_date" validate:"required"`
	PickupWindow        string                 `json:"pickup_window" validate:"required"`
	DeliveryDate        *dbtypes.Date          `json:"delivery_date,omitempty"`
	Items               []pricing.ItemRequest  `json:"items" validate:"required,min=1,dive"`
	Addons              []pricing.AddonRequest `json:"addons,omitempty" validate:"omitempty,dive"`
	CouponCode          *string                `json:"coupon_code,omitempty" validate:"omitempty,max=50"`
	SpecialInstructions *string                `json:"special_instructions,omitempty" validate:"omitempty,max=1000"`
}

// ListFilters narrows order listings.
type ListFilters struct {
	CustomerID    *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	PickupDate    *dbtypes.Date
}

// StatusUpdateInput is an admin-driven transition.
type StatusUpdateInput struct {
	OrderID uuid.UUID         `json:"-"`
	Status  enums.OrderStatus `json:"status" validate:"required"`
	Notes   *string           `json:"notes,omitempty" validate:"omitempty,max=500"`
	Actor   Actor             `json:"-"`
}

type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ServiceID   uuid.UUID       `json:"service_id"`
	ClothTypeID uuid.UUID       `json:"cloth_type_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type AddonDTO struct {
	ID       uuid.UUID       `json:"id"`
	AddonID  uuid.UUID       `json:"addon_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

type HistoryDTO struct {
	PreviousStatus *enums.OrderStatus `json:"previous_status,omitempty"`
	NewStatus      enums.OrderStatus  `json:"new_status"`
	ChangedBy      string             `json:"changed_by"`
	Notes          *string            `json:"notes,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Summary is a list row.
type Summary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PickupDate    dbtypes.Date        `json:"pickup_date"`
	PickupWindow  string              `json:"pickup_window"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Currency      enums.Currency      `json:"currency"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Detail is the full order view for its owner or an admin.
type Detail struct {
	Summary
	PickupAddressID     uuid.UUID       `json:"pickup_address_id"`
	DeliveryAddressID   uuid.UUID       `json:"delivery_address_id"`
	DeliveryDate        *dbtypes.Date   `json:"delivery_date,omitempty"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	AddonCharges        decimal.Decimal `json:"addon_charges"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	CouponID            *uuid.UUID      `json:"coupon_id,omitempty"`
	SpecialInstructions *string         `json:"special_instructions,omitempty"`
	ActualPickupTime    *time.Time      `json:"actual_pickup_time,omitempty"`
	ActualDeliveryTime  *time.Time      `json:"actual_delivery_time,omitempty"`
	Items               []ItemDTO       `json:"items"`
	Addons              []AddonDTO      `json:"addons"`
	History             []HistoryDTO    `json:"history"`
}

// Tracking is the public view keyed by order number. It carries no money or
// address details.
type Tracking struct {
	OrderNumber  string            `json:"order_number"`
	Status       enums.OrderStatus `json:"status"`
	PickupDate   dbtypes.Date      `json:"pickup_date"`
	PickupWindow string            `json:"pickup_window"`
	DeliveryDate *dbtypes.Date     `json:"delivery_date,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	History      []HistoryDTO      `json:"history"`
}

type ListResult struct {
	Orders     []Summary `json:"orders"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

func summaryFromModel(o models.Order) Summary {
	return Summary{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PickupDate:    o.PickupDate,
		PickupWindow:  o.PickupWindow,
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		CreatedAt:     o.CreatedAt,
	}
}

func detailFromModel(o models.Order, history []models.OrderStatusHistory) *Detail {
	d := &Detail{
		Summary:             summaryFromModel(o),
		PickupAddressID:     o.PickupAddressID,
		DeliveryAddressID:   o.DeliveryAddressID,
		DeliveryDate:        o.DeliveryDate,
		Subtotal:            o.Subtotal,
		AddonCharges:        o.AddonCharges,
		TaxAmount:           o.TaxAmount,
		DiscountAmount:      o.DiscountAmount,
		CouponID:            o.CouponID,
		SpecialInstructions: o.SpecialInstructions,
		ActualPickupTime:    o.ActualPickupTime,
		ActualDeliveryTime:  o.ActualDeliveryTime,
		Items:               make([]ItemDTO, 0, len(o.Items)),
		Addons:              make([]AddonDTO, 0, len(o.Addons)),
		History:             historyDTOs(history),
	}
	for _, item := range o.Items {
		d.Items = append(d.Items, ItemDTO{
			ID:          item.ID,
			ServiceID:   item.ServiceID,
			ClothTypeID: item.ClothTypeID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	for _, addon := range o.Addons {
		d.Addons = append(d.Addons, AddonDTO{
			ID:       addon.ID,
			AddonID:  addon.AddonID,
			Quantity: addon.Quantity,
			Price:    addon.Price,
			Total:    addon.Total,
		})
	}
	return d
}

func historyDTOs(rows []models.OrderStatusHistory) []HistoryDTO {
	out := make([]HistoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryDTO{
			PreviousStatus: row.PreviousStatus,
			NewStatus:      row.NewStatus,
			ChangedBy:      row.ChangedBy,
			Notes:          row.Notes,
			CreatedAt:      row.CreatedAt,
		})
	}
	return out
}
