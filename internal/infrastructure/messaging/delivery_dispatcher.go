package messaging

import (
	"context"
	"time"

	"o2o/internal/domain"
)

type DeliveryCommandType string

const (
	DeliveryCommandCreate   DeliveryCommandType = "create_task"
	DeliveryCommandCancel   DeliveryCommandType = "cancel_task"
	DeliveryCommandStart    DeliveryCommandType = "start_delivery"
	DeliveryCommandComplete DeliveryCommandType = "complete_delivery"
)

// DeliveryCommand is consumed by the fleet service. Task is set for create only.
type DeliveryCommand struct {
	Type     DeliveryCommandType  `json:"type"`
	OrderID  string               `json:"orderId"`
	Task     *domain.DeliveryTask `json:"task,omitempty"`
	IssuedAt time.Time            `json:"issuedAt"`
}

// DeliveryDispatcher hands delivery work to the fleet service as commands.
type DeliveryDispatcher struct {
	producer *Producer
}

func NewDeliveryDispatcher(producer *Producer) *DeliveryDispatcher {
	return &DeliveryDispatcher{producer: producer}
}

func (d *DeliveryDispatcher) CreateTask(ctx context.Context, task domain.DeliveryTask) error {
	return d.send(ctx, DeliveryCommand{Type: DeliveryCommandCreate, OrderID: task.OrderID, Task: &task})
}

func (d *DeliveryDispatcher) CancelTask(ctx context.Context, orderID string) error {
	return d.send(ctx, DeliveryCommand{Type: DeliveryCommandCancel, OrderID: orderID})
}

func (d *DeliveryDispatcher) StartDelivery(ctx context.Context, orderID string) error {
	return d.send(ctx, DeliveryCommand{Type: DeliveryCommandStart, OrderID: orderID})
}

func (d *DeliveryDispatcher) CompleteDelivery(ctx context.Context, orderID string) error {
	return d.send(ctx, DeliveryCommand{Type: DeliveryCommandComplete, OrderID: orderID})
}

func (d *DeliveryDispatcher) send(ctx context.Context, cmd DeliveryCommand) error {
	cmd.IssuedAt = time.Now().UTC()
	return d.producer.Publish(ctx, cmd.OrderID, cmd)
}
