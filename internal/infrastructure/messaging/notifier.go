package messaging

import (
	"context"
	"time"

	"o2o/internal/domain"
)

// NotificationMessage is consumed by the SMS/push and staff dashboard workers.
type NotificationMessage struct {
	Audience    string             `json:"audience"`
	Event       string             `json:"event"`
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	Status      domain.OrderStatus `json:"status"`
	Source      domain.OrderSource `json:"source"`
	Customer    *domain.Customer   `json:"customer,omitempty"`
	Total       string             `json:"total"`
	SentAt      time.Time          `json:"sentAt"`
}

const (
	AudienceCustomer = "customer"
	AudienceInternal = "internal"
)

type Notifier struct {
	customer *Producer
	internal *Producer
}

func NewNotifier(customer, internal *Producer) *Notifier {
	return &Notifier{customer: customer, internal: internal}
}

func (n *Notifier) NotifyCustomer(ctx context.Context, order *domain.Order, event string) error {
	msg := newNotificationMessage(AudienceCustomer, order, event)
	customer := order.Customer
	msg.Customer = &customer
	return n.customer.Publish(ctx, order.ID, msg)
}

func (n *Notifier) NotifyInternal(ctx context.Context, order *domain.Order, event string) error {
	return n.internal.Publish(ctx, order.ID, newNotificationMessage(AudienceInternal, order, event))
}

func newNotificationMessage(audience string, order *domain.Order, event string) NotificationMessage {
	return NotificationMessage{
		Audience:    audience,
		Event:       event,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Source:      order.Source,
		Total:       order.Amount.Total.StringFixed(2),
		SentAt:      time.Now().UTC(),
	}
}
