package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"o2o/internal/domain"
)

type CustomerNotifier interface {
	NotifyCustomer(ctx context.Context, order *domain.Order, event string) error
}

type InternalNotifier interface {
	NotifyInternal(ctx context.Context, order *domain.Order, event string) error
}

// NotificationDispatcher is best-effort: failures are logged and swallowed.
type NotificationDispatcher struct {
	customer CustomerNotifier
	internal InternalNotifier
	timeout  time.Duration
	logger   *zap.Logger
}

func NewNotificationDispatcher(
	customer CustomerNotifier,
	internal InternalNotifier,
	timeout time.Duration,
	logger *zap.Logger,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		customer: customer,
		internal: internal,
		timeout:  timeout,
		logger:   logger,
	}
}

// Dispatch notifies the customer and staff about event.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, order *domain.Order, event string) {
	d.NotifyCustomer(ctx, order, event)
	d.NotifyInternal(ctx, order, event)
}

func (d *NotificationDispatcher) NotifyCustomer(ctx context.Context, order *domain.Order, event string) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.customer.NotifyCustomer(callCtx, order, event); err != nil {
		d.logger.Warn("customer notification failed", zap.String("orderId", order.ID), zap.String("event", event), zap.Error(err))
	}
}

func (d *NotificationDispatcher) NotifyInternal(ctx context.Context, order *domain.Order, event string) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.internal.NotifyInternal(callCtx, order, event); err != nil {
		d.logger.Warn("internal notification failed", zap.String("orderId", order.ID), zap.String("event", event), zap.Error(err))
	}
}
