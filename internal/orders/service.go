package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/washfold-backend/internal/address"
	"github.com/angelmondragon/washfold-backend/internal/coupons"
	"github.com/angelmondragon/washfold-backend/internal/pricing"
	"github.com/angelmondragon/washfold-backend/internal/slots"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/washfold-backend/pkg/pagination"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	msgPickupInPast        = "Pickup date cannot be in the past"
	msgDeliveryBeforePick  = "Delivery date cannot be before pickup date"
	msgOrderNotFound       = "order not found"
	noteOrderCreated       = "Order created"
	noteExpired            = "Cancelled automatically: pickup date passed without payment"
	defaultOrderNumberPfx  = "WF"
	defaultExpiryBatchSize = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type couponApplier interface {
	Apply(ctx context.Context, tx *gorm.DB, input coupons.ApplyInput) (*coupons.Application, error)
}

// Service exposes the order lifecycle.
type Service interface {
	Quote(ctx context.Context, items []pricing.ItemRequest, addons []pricing.AddonRequest) (pricing.Breakdown, error)
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Detail, error)
	CancelOrder(ctx context.Context, customerID, orderID uuid.UUID, reason string) (*Detail, error)
	ApplyCoupon(ctx context.Context, customerID, orderID uuid.UUID, code string) (*Detail, error)
	GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*Detail, error)
	ListOrders(ctx context.Context, customerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) (*ListResult, error)
	TrackOrder(ctx context.Context, orderNumber string) (*Tracking, error)
	AdminGetOrder(ctx context.Context, orderID uuid.UUID) (*Detail, error)
	AdminListOrders(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*Detail, error)
	Refund(ctx context.Context, orderID uuid.UUID, actor Actor, notes string) (*Detail, error)
	ExpireStale(ctx context.Context, limit int) (int, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo              Repository
	TxRunner          txRunner
	Status            StatusWriter
	Outbox            outboxPublisher
	Addresses         address.Directory
	Slots             slots.Manager
	Quoter            pricing.Quoter
	Coupons           couponApplier
	OrderNumberPrefix string
	Currency          enums.Currency
	Logger            *logger.Logger
	Now               func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	status    StatusWriter
	outbox    outboxPublisher
	addresses address.Directory
	slots     slots.Manager
	quoter    pricing.Quoter
	coupons   couponApplier
	prefix    string
	currency  enums.Currency
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Status == nil:
		return nil, fmt.Errorf("status writer required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Addresses == nil:
		return nil, fmt.Errorf("address directory required")
	case params.Slots == nil:
		return nil, fmt.Errorf("slot manager required")
	case params.Quoter == nil:
		return nil, fmt.Errorf("pricing quoter required")
	case params.Coupons == nil:
		return nil, fmt.Errorf("coupon service required")
	}
	prefix := strings.ToUpper(strings.TrimSpace(params.OrderNumberPrefix))
	if prefix == "" {
		prefix = defaultOrderNumberPfx
	}
	currency := params.Currency
	if currency == "" {
		currency = enums.CurrencyINR
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("unsupported currency %q", currency)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		tx:        params.TxRunner,
		status:    params.Status,
		outbox:    params.Outbox,
		addresses: params.Addresses,
		slots:     params.Slots,
		quoter:    params.Quoter,
		coupons:   params.Coupons,
		prefix:    prefix,
		currency:  currency,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) Quote(ctx context.Context, items []pricing.ItemRequest, addons []pricing.AddonRequest) (pricing.Breakdown, error) {
	return s.quoter.Quote(ctx, items, addons)
}

// CreateOrder prices the request, then reserves the slot, issues the order
// number, applies the coupon and persists everything in one transaction. Any
// failure rolls the reservation back with the rest.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*Detail, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PickupDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup date is required")
	}
	today := s.slots.Today()
	if input.PickupDate.Before(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgPickupInPast)
	}
	if input.DeliveryDate != nil && input.DeliveryDate.Before(input.PickupDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgDeliveryBeforePick)
	}
	if _, err := s.addresses.RequireOwned(ctx, input.CustomerID, input.PickupAddressID, input.DeliveryAddressID); err != nil {
		return nil, err
	}

	breakdown, err := s.quoter.Quote(ctx, input.Items, input.Addons)
	if err != nil {
		return nil, err
	}

	couponCode := ""
	if input.CouponCode != nil {
		couponCode = coupons.NormalizeCode(*input.CouponCode)
	}

	var orderID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		slot, err := s.slots.Reserve(ctx, tx, input.PickupDate, input.PickupWindow)
		if err != nil {
			return err
		}

		seq, err := repo.NextOrderSequence(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue order number")
		}

		now := s.now().UTC()
		order := &models.Order{
			ID:                  uuid.New(),
			OrderNumber:         s.formatOrderNumber(now, seq),
			CustomerID:          input.CustomerID,
			PickupAddressID:     input.PickupAddressID,
			DeliveryAddressID:   input.DeliveryAddressID,
			PickupDate:          input.PickupDate,
			PickupWindow:        slot.Window,
			DeliveryDate:        input.DeliveryDate,
			Status:              enums.OrderStatusPending,
			PaymentStatus:       enums.PaymentStatusPending,
			Currency:            s.currency,
			Subtotal:            breakdown.Subtotal,
			AddonCharges:        breakdown.AddonCharges,
			TaxAmount:           breakdown.TaxAmount,
			DiscountAmount:      breakdown.DiscountAmount,
			TotalAmount:         breakdown.TotalAmount,
			SpecialInstructions: trimmed(input.SpecialInstructions),
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateItems(ctx, buildItems(order.ID, breakdown, now)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := repo.CreateAddons(ctx, buildAddons(order.ID, breakdown, now)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order addons")
		}

		if couponCode != "" {
			if err := s.applyCoupon(ctx, tx, order, couponCode); err != nil {
				return err
			}
		}

		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			ID:        uuid.New(),
			OrderID:   order.ID,
			NewStatus: enums.OrderStatusPending,
			ChangedBy: SystemActor().String(),
			Notes:     optionalString(noteOrderCreated),
			CreatedAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         Actor{UserID: input.CustomerID, Role: enums.UserRoleCustomer}.Ref(),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				CustomerID:     order.CustomerID,
				PickupDate:     order.PickupDate.String(),
				PickupWindow:   order.PickupWindow,
				Subtotal:       order.Subtotal,
				DiscountAmount: order.DiscountAmount,
				TotalAmount:    order.TotalAmount,
				Currency:       order.Currency,
				CouponCode:     couponCode,
				ItemCount:      len(breakdown.Lines),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created event")
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, orderID.String())
		s.logg.Info(logCtx, "order created")
	}
	return s.loadDetail(ctx, orderID)
}

func (s *service) CancelOrder(ctx context.Context, customerID, orderID uuid.UUID, reason string) (*Detail, error) {
	order, err := s.loadOwned(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	actor := Actor{UserID: customerID, Role: enums.UserRoleCustomer}
	if err := s.cancel(ctx, order, actor, strings.TrimSpace(reason)); err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, order.ID)
}

// cancel moves a PENDING order to CANCELLED and releases its slot in the same
// transaction.
func (s *service) cancel(ctx context.Context, order *models.Order, actor Actor, reason string) error {
	if order.Status != enums.OrderStatusPending {
		return stateConflict(order.Status, fmt.Sprintf("Order cannot be cancelled in current status: %s", order.Status))
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return stateConflict(order.Status, "Paid orders cannot be cancelled; request a refund instead")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.status.Transition(ctx, tx, TransitionInput{
			Order: order,
			To:    enums.OrderStatusCancelled,
			Actor: actor,
			Notes: reason,
		}); err != nil {
			return err
		}
		// re-read under the row lock taken by the status update
		current, err := s.repo.WithTx(tx).FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if current.PaymentStatus == enums.PaymentStatusPaid {
			return stateConflict(enums.OrderStatusPending, "Paid orders cannot be cancelled; request a refund instead")
		}
		if err := s.slots.Release(ctx, tx, order.PickupDate, order.PickupWindow); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.Ref(),
			Data: payloads.OrderCancelledEvent{
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				CustomerID:   order.CustomerID,
				PickupDate:   order.PickupDate.String(),
				PickupWindow: order.PickupWindow,
				CancelledBy:  actor.String(),
				Reason:       reason,
				CancelledAt:  s.now().UTC(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order cancelled event")
		}
		return nil
	})
}

func (s *service) ApplyCoupon(ctx context.Context, customerID, orderID uuid.UUID, code string) (*Detail, error) {
	order, err := s.loadOwned(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending || order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, stateConflict(order.Status, fmt.Sprintf("Coupons can only be applied to unpaid pending orders; current status is %s", order.Status))
	}
	code = coupons.NormalizeCode(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.applyCoupon(ctx, tx, order, code)
	})
	if err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, order.ID)
}

// applyCoupon records the usage and rewrites discount and total in tx.
func (s *service) applyCoupon(ctx context.Context, tx *gorm.DB, order *models.Order, code string) error {
	breakdown := pricing.Breakdown{
		Subtotal:     order.Subtotal,
		AddonCharges: order.AddonCharges,
		TaxAmount:    order.TaxAmount,
	}
	app, err := s.coupons.Apply(ctx, tx, coupons.ApplyInput{
		OrderID:          order.ID,
		UserID:           order.CustomerID,
		Code:             code,
		OrderAmount:      breakdown.PreDiscountTotal(),
		ExistingCouponID: order.CouponID,
	})
	if err != nil {
		return err
	}
	priced := breakdown.WithDiscount(app.DiscountAmount)
	couponID := app.Coupon.ID
	affected, err := s.repo.WithTx(tx).ApplyDiscount(ctx, order.ID, map[string]any{
		"discount_amount": priced.DiscountAmount,
		"total_amount":    priced.TotalAmount,
		"coupon_id":       couponID,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store order discount")
	}
	if affected == 0 {
		// the usage row and counter roll back with the caller's tx
		return pkgerrors.New(pkgerrors.CodeConflict, "Order already has a coupon applied or is no longer an unpaid pending order")
	}
	order.DiscountAmount = priced.DiscountAmount
	order.TotalAmount = priced.TotalAmount
	order.CouponID = &couponID

	event := outbox.DomainEvent{
		EventType:     enums.EventCouponApplied,
		AggregateType: enums.AggregateCoupon,
		AggregateID:   couponID,
		Actor:         Actor{UserID: order.CustomerID, Role: enums.UserRoleCustomer}.Ref(),
		Data: payloads.CouponAppliedEvent{
			CouponID:       couponID,
			Code:           app.Coupon.Code,
			OrderID:        order.ID,
			UserID:         order.CustomerID,
			DiscountAmount: priced.DiscountAmount,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit coupon applied event")
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*Detail, error) {
	if _, err := s.loadOwned(ctx, customerID, orderID); err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, orderID)
}

func (s *service) ListOrders(ctx context.Context, customerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) (*ListResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, ListFilters{CustomerID: &customerID, Status: status}, params)
}

func (s *service) TrackOrder(ctx context.Context, orderNumber string) (*Tracking, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, mapLookupError(err)
	}
	history, err := s.repo.ListHistory(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}
	return &Tracking{
		OrderNumber:  order.OrderNumber,
		Status:       order.Status,
		PickupDate:   order.PickupDate,
		PickupWindow: order.PickupWindow,
		DeliveryDate: order.DeliveryDate,
		CreatedAt:    order.CreatedAt,
		History:      historyDTOs(history),
	}, nil
}

func (s *service) AdminGetOrder(ctx context.Context, orderID uuid.UUID) (*Detail, error) {
	return s.loadDetail(ctx, orderID)
}

func (s *service) AdminListOrders(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	return s.list(ctx, filters, params)
}

// UpdateStatus applies an admin transition. Cancellation and refund keep their
// own side effects.
func (s *service) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*Detail, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Status))
	}
	notes := ""
	if input.Notes != nil {
		notes = strings.TrimSpace(*input.Notes)
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, mapLookupError(err)
	}

	switch input.Status {
	case enums.OrderStatusCancelled:
		if order.Status == enums.OrderStatusCancelled {
			return s.loadDetail(ctx, order.ID)
		}
		if err := s.cancel(ctx, order, input.Actor, notes); err != nil {
			return nil, err
		}
		return s.loadDetail(ctx, order.ID)
	case enums.OrderStatusRefunded:
		return s.Refund(ctx, order.ID, input.Actor, notes)
	}

	now := s.now().UTC()
	updates := map[string]any{}
	if input.Status == enums.OrderStatusPickedUp && order.ActualPickupTime == nil {
		updates["actual_pickup_time"] = now
	}
	if input.Status == enums.OrderStatusDelivered && order.ActualDeliveryTime == nil {
		updates["actual_delivery_time"] = now
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.status.Transition(ctx, tx, TransitionInput{
			Order:   order,
			To:      input.Status,
			Actor:   input.Actor,
			Notes:   notes,
			Updates: updates,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, order.ID)
}

// Refund is legal only for a PAID order; it marks the order and its paid
// payment REFUNDED.
func (s *service) Refund(ctx context.Context, orderID uuid.UUID, actor Actor, notes string) (*Detail, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if !order.PaymentStatus.Refundable() {
		return nil, stateConflict(order.Status, fmt.Sprintf("Only paid orders can be refunded; payment status is %s", order.PaymentStatus))
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.status.Transition(ctx, tx, TransitionInput{
			Order:   order,
			To:      enums.OrderStatusRefunded,
			Actor:   actor,
			Notes:   notes,
			Updates: map[string]any{"payment_status": enums.PaymentStatusRefunded},
		}); err != nil {
			return err
		}
		if _, err := s.repo.WithTx(tx).RefundPayments(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund payments")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.Ref(),
			Data: payloads.OrderRefundedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Amount:      order.TotalAmount,
				RefundedBy:  actor.String(),
				RefundedAt:  s.now().UTC(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order refunded event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, order.ID)
}

// ExpireStale cancels unpaid PENDING orders whose pickup day has passed and
// releases their slots. Orders that moved on concurrently are skipped.
func (s *service) ExpireStale(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultExpiryBatchSize
	}
	rows, err := s.repo.FindExpiredPending(ctx, s.slots.Today(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find expired orders")
	}

	var (
		expired int
		errs    error
	)
	for i := range rows {
		order := rows[i]
		if err := s.cancel(ctx, &order, SystemActor(), noteExpired); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.OrderNumber, err))
			continue
		}
		expired++
	}
	return expired, errs
}

func (s *service) list(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	rows, next, err := s.repo.ListOrders(ctx, params, filters)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := &ListResult{Orders: make([]Summary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		out.Orders = append(out.Orders, summaryFromModel(row))
	}
	return out, nil
}

// loadOwned hides orders of other customers behind not-found.
func (s *service) loadOwned(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgOrderNotFound)
	}
	return order, nil
}

func (s *service) loadDetail(ctx context.Context, orderID uuid.UUID) (*Detail, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	history, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}
	return detailFromModel(*order, history), nil
}

func (s *service) formatOrderNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("%s-%d-%06d", s.prefix, now.Year(), seq)
}

func buildItems(orderID uuid.UUID, breakdown pricing.Breakdown, now time.Time) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(breakdown.Lines))
	for _, line := range breakdown.Lines {
		items = append(items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ServiceID:   line.ServiceID,
			ClothTypeID: line.ClothTypeID,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
			CreatedAt:   now,
		})
	}
	return items
}

func buildAddons(orderID uuid.UUID, breakdown pricing.Breakdown, now time.Time) []models.OrderAddon {
	addons := make([]models.OrderAddon, 0, len(breakdown.Addons))
	for _, addon := range breakdown.Addons {
		addons = append(addons, models.OrderAddon{
			ID:        uuid.New(),
			OrderID:   orderID,
			AddonID:   addon.AddonID,
			Quantity:  addon.Quantity,
			Price:     addon.Price,
			Total:     addon.Total,
			CreatedAt: now,
		})
	}
	return addons
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgOrderNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
