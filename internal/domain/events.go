package domain

import "time"

type OrderEventType string

const (
	EventOrderCreated       OrderEventType = "orderCreated"
	EventOrderStatusChanged OrderEventType = "orderStatusChanged"
	EventOrderCompleted     OrderEventType = "orderCompleted"
)

// OrderEvent is published to subscribers wired outside the orchestrator.
// PreviousStatus, NewStatus and UpdatedBy are set for EventOrderStatusChanged only.
type OrderEvent struct {
	Type           OrderEventType `json:"type"`
	Order          *Order         `json:"order"`
	PreviousStatus OrderStatus    `json:"previousStatus,omitempty"`
	NewStatus      OrderStatus    `json:"newStatus,omitempty"`
	UpdatedBy      string         `json:"updatedBy,omitempty"`
	OccurredAt     time.Time      `json:"occurredAt"`
}

// Notification event names sent to customers and staff.
const (
	NotificationOrderCreated   = "order_created"
	NotificationStatusChanged  = "status_changed"
	NotificationOrderCompleted = "order_completed"
)
