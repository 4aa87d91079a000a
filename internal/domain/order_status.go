package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusPickedUp       OrderStatus = "picked_up"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusFailed         OrderStatus = "failed"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReadyForPickup,
	OrderStatusOutForDelivery,
	OrderStatusPickedUp,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusFailed,
}

var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusReadyForPickup, OrderStatusCancelled},
	OrderStatusReadyForPickup: {OrderStatusOutForDelivery, OrderStatusPickedUp, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusFailed},
	OrderStatusPickedUp:       {OrderStatusCompleted},
	OrderStatusDelivered:      {OrderStatusCompleted},
	OrderStatusCompleted:      {},
	OrderStatusCancelled:      {},
	OrderStatusFailed:         {OrderStatusPending, OrderStatusCancelled},
}

// cancellableStatuses is narrower than the table: later stages need a
// different compensation than cancelOrder performs.
var cancellableStatuses = map[OrderStatus]bool{
	OrderStatusPending:   true,
	OrderStatusConfirmed: true,
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusTransitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	next, ok := orderStatusTransitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether current -> target is an edge of the table.
func CanTransition(current, target OrderStatus) bool {
	for _, s := range orderStatusTransitions[current] {
		if s == target {
			return true
		}
	}
	return false
}

// Transitions returns a copy of the legal targets for status.
func Transitions(status OrderStatus) []OrderStatus {
	return append([]OrderStatus(nil), orderStatusTransitions[status]...)
}

func CanCancel(status OrderStatus) bool {
	return cancellableStatuses[status]
}

// ApplyStatus moves the order to target and stamps the stage timestamp.
// Callers must have checked CanTransition.
func (o *Order) ApplyStatus(target OrderStatus, actor string, now time.Time) OrderStatus {
	previous := o.Status
	o.Status = target
	o.UpdatedAt = now
	if actor != "" {
		o.UpdatedBy = actor
	}

	switch target {
	case OrderStatusPreparing:
		o.PreparationStartTime = &now
	case OrderStatusReadyForPickup:
		o.ReadyTime = &now
	case OrderStatusOutForDelivery:
		o.DeliveryStartTime = &now
	case OrderStatusDelivered:
		o.DeliveryTime = &now
	case OrderStatusCancelled:
		o.CancelledTime = &now
	}

	return previous
}
