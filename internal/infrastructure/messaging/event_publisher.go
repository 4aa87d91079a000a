package messaging

import (
	"context"
	"errors"

	"o2o/internal/domain"
)

// OrderEventPublisher fans order lifecycle events out to the events topic.
type OrderEventPublisher struct {
	producer *Producer
}

func NewOrderEventPublisher(producer *Producer) *OrderEventPublisher {
	return &OrderEventPublisher{producer: producer}
}

func (p *OrderEventPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	if event.Order == nil {
		return errors.New("order event without order")
	}
	return p.producer.Publish(ctx, event.Order.ID, event)
}
