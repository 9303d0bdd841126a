package router

import (
	"fmt"

	"github.com/angelmondragon/washfold-backend/internal/analytics/types"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/payloads"
)

func defaultBuilders() map[enums.OutboxEventType]rowBuilder {
	return map[enums.OutboxEventType]rowBuilder{
		enums.EventOrderCreated:       buildOrderCreated,
		enums.EventOrderStatusChanged: buildStatusChanged,
		enums.EventOrderCancelled:     buildOrderCancelled,
		enums.EventOrderPaid:          buildOrderPaid,
		enums.EventOrderRefunded:      buildOrderRefunded,
		enums.EventPaymentFailed:      buildPaymentFailed,
	}
}

func buildOrderCreated(row *types.OrderEventRow, payload any) error {
	event, ok := payload.(*payloads.OrderCreatedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", enums.EventOrderCreated)
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.OrderNumber = stringPtr(event.OrderNumber)
	row.CustomerID = uuidPtr(event.CustomerID)
	row.Status = stringPtr(string(enums.OrderStatusPending))
	row.PickupDate = stringPtr(event.PickupDate)
	row.PickupWindow = stringPtr(event.PickupWindow)
	row.AmountMinor = minorUnits(event.TotalAmount)
	row.DiscountMinor = minorUnits(event.DiscountAmount)
	row.Currency = stringPtr(string(event.Currency))
	row.CouponCode = stringPtr(event.CouponCode)
	return nil
}

func buildStatusChanged(row *types.OrderEventRow, payload any) error {
	event, ok := payload.(*payloads.OrderStatusChangedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", enums.EventOrderStatusChanged)
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.OrderNumber = stringPtr(event.OrderNumber)
	row.Status = stringPtr(string(event.NewStatus))
	row.PreviousStatus = stringPtr(string(event.PreviousStatus))
	row.Actor = stringPtr(event.ChangedBy)
	row.Reason = stringPtr(event.Notes)
	return nil
}

func buildOrderCancelled(row *types.OrderEventRow, payload any) error {
	event, ok := payload.(*payloads.OrderCancelledEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", enums.EventOrderCancelled)
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.OrderNumber = stringPtr(event.OrderNumber)
	row.CustomerID = uuidPtr(event.CustomerID)
	row.Status = stringPtr(string(enums.OrderStatusCancelled))
	row.PickupDate = stringPtr(event.PickupDate)
	row.PickupWindow = stringPtr(event.PickupWindow)
	row.Actor = stringPtr(event.CancelledBy)
	row.Reason = stringPtr(event.Reason)
	return nil
}

func buildOrderPaid(row *types.OrderEventRow, payload any) error {
	event, ok := payload.(*payloads.OrderPaidEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", enums.EventOrderPaid)
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.OrderNumber = stringPtr(event.OrderNumber)
	row.PaymentID = uuidPtr(event.PaymentID)
	row.AmountMinor = minorUnits(event.Amount)
	row.Currency = stringPtr(string(event.Currency))
	row.Source = stringPtr(event.Source)
	if !event.PaidAt.IsZero() {
		row.OccurredAt = event.PaidAt.UTC()
	}
	return nil
}

func buildOrderRefunded(row *types.OrderEventRow, payload any) error {
	event, ok := payload.(*payloads.OrderRefundedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", enums.EventOrderRefunded)
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.OrderNumber = stringPtr(event.OrderNumber)
	row.Status = stringPtr(string(enums.OrderStatusRefunded))
	row.AmountMinor = minorUnits(event.Amount)
	row.Actor = stringPtr(event.RefundedBy)
	return nil
}

func buildPaymentFailed(row *types.OrderEventRow, payload any) error {
	event, ok := payload.(*payloads.PaymentFailedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", enums.EventPaymentFailed)
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.PaymentID = uuidPtr(event.PaymentID)
	row.Source = stringPtr(event.Source)
	row.Reason = stringPtr(event.Reason)
	return nil
}
