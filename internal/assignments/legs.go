package assignments

import "github.com/angelmondragon/washfold-backend/pkg/enums"

// leg describes how an assignment of one type drives its order.
type leg struct {
	kind        enums.AssignmentType
	orderFrom   []enums.OrderStatus
	orderOnAsgn enums.OrderStatus
	orderRevert enums.OrderStatus
	orderDone   enums.OrderStatus
	stampColumn string
	label       string
}

var legs = map[enums.AssignmentType]leg{
	enums.AssignmentTypePickup: {
		kind:        enums.AssignmentTypePickup,
		orderFrom:   []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPickupAssigned},
		orderOnAsgn: enums.OrderStatusPickupAssigned,
		orderRevert: enums.OrderStatusPending,
		orderDone:   enums.OrderStatusPickedUp,
		stampColumn: "actual_pickup_time",
		label:       "pickup",
	},
	enums.AssignmentTypeDelivery: {
		kind:        enums.AssignmentTypeDelivery,
		orderFrom:   []enums.OrderStatus{enums.OrderStatusReadyForDelivery, enums.OrderStatusOutForDelivery},
		orderOnAsgn: enums.OrderStatusOutForDelivery,
		orderRevert: enums.OrderStatusReadyForDelivery,
		orderDone:   enums.OrderStatusDelivered,
		stampColumn: "actual_delivery_time",
		label:       "delivery",
	},
}

func (l leg) accepts(status enums.OrderStatus) bool {
	for _, candidate := range l.orderFrom {
		if candidate == status {
			return true
		}
	}
	return false
}
