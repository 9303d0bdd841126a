package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/payloads"
)

// CurrentVersion is the only envelope version producers write today.
const CurrentVersion = 1

type catalogEntry struct {
	aggregate enums.OutboxAggregateType
	analytics bool
	newValue  func() any
}

var catalog = map[enums.OutboxEventType]catalogEntry{
	enums.EventOrderCreated:       {enums.AggregateOrder, true, func() any { return &payloads.OrderCreatedEvent{} }},
	enums.EventOrderStatusChanged: {enums.AggregateOrder, true, func() any { return &payloads.OrderStatusChangedEvent{} }},
	enums.EventOrderCancelled:     {enums.AggregateOrder, true, func() any { return &payloads.OrderCancelledEvent{} }},
	enums.EventOrderPaid:          {enums.AggregateOrder, true, func() any { return &payloads.OrderPaidEvent{} }},
	enums.EventOrderRefunded:      {enums.AggregateOrder, true, func() any { return &payloads.OrderRefundedEvent{} }},
	enums.EventPaymentFailed:      {enums.AggregatePayment, true, func() any { return &payloads.PaymentFailedEvent{} }},
	enums.EventCouponApplied:      {enums.AggregateCoupon, false, func() any { return &payloads.CouponAppliedEvent{} }},
	enums.EventAssignmentCreated:  {enums.AggregateAssignment, false, func() any { return &payloads.AssignmentEvent{} }},
	enums.EventAssignmentUpdated:  {enums.AggregateAssignment, false, func() any { return &payloads.AssignmentEvent{} }},
}

// DecodePayload turns envelope data into the typed payload for eventType.
// Producers and consumers share this table so both sides agree on shapes.
func DecodePayload(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	entry, ok := catalog[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
	if version > CurrentVersion {
		return nil, fmt.Errorf("%s: unsupported envelope version %d", eventType, version)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%s: empty payload", eventType)
	}
	value := entry.newValue()
	if err := json.Unmarshal(trimmed, value); err != nil {
		return nil, fmt.Errorf("%s: decode payload: %w", eventType, err)
	}
	return value, nil
}
