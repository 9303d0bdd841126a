package enums

import "fmt"

// OrderStatus is the lifecycle state of a service order.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "PENDING"
	OrderStatusPickupAssigned   OrderStatus = "PICKUP_ASSIGNED"
	OrderStatusPickedUp         OrderStatus = "PICKED_UP"
	OrderStatusProcessing       OrderStatus = "PROCESSING"
	OrderStatusQualityCheck     OrderStatus = "QUALITY_CHECK"
	OrderStatusReadyForDelivery OrderStatus = "READY_FOR_DELIVERY"
	OrderStatusOutForDelivery   OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered        OrderStatus = "DELIVERED"
	OrderStatusCompleted        OrderStatus = "COMPLETED"
	OrderStatusCancelled        OrderStatus = "CANCELLED"
	OrderStatusRefunded         OrderStatus = "REFUNDED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPickupAssigned,
	OrderStatusPickedUp,
	OrderStatusProcessing,
	OrderStatusQualityCheck,
	OrderStatusReadyForDelivery,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// orderTransitions lists every legal edge of the order state machine.
// Backward edges exist only for assignment rejection (PICKUP_ASSIGNED -> PENDING,
// OUT_FOR_DELIVERY -> READY_FOR_DELIVERY) and quality rework.
// REFUNDED is additionally gated on a PAID payment by the caller.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:          {OrderStatusPickupAssigned, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusPickupAssigned:   {OrderStatusPickedUp, OrderStatusPending, OrderStatusRefunded},
	OrderStatusPickedUp:         {OrderStatusProcessing, OrderStatusRefunded},
	OrderStatusProcessing:       {OrderStatusQualityCheck, OrderStatusRefunded},
	OrderStatusQualityCheck:     {OrderStatusReadyForDelivery, OrderStatusProcessing, OrderStatusRefunded},
	OrderStatusReadyForDelivery: {OrderStatusOutForDelivery, OrderStatusRefunded},
	OrderStatusOutForDelivery:   {OrderStatusDelivered, OrderStatusReadyForDelivery, OrderStatusRefunded},
	OrderStatusDelivered:        {OrderStatusCompleted, OrderStatusRefunded},
	OrderStatusCompleted:        {OrderStatusRefunded},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave the state.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
