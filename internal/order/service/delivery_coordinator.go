package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"o2o/internal/domain"
	"o2o/internal/dto"
)

// DeliveryDispatcher hands delivery commands to the fleet system.
// CancelTask must succeed for orders that never had a task.
type DeliveryDispatcher interface {
	CreateTask(ctx context.Context, task domain.DeliveryTask) error
	CancelTask(ctx context.Context, orderID string) error
	StartDelivery(ctx context.Context, orderID string) error
	CompleteDelivery(ctx context.Context, orderID string) error
}

type DeliveryStatsProvider interface {
	DeliveryPerformance(ctx context.Context, dateRange *dto.DateRange) (dto.DeliveryPerformance, error)
}

type DeliveryCoordinator struct {
	dispatcher    DeliveryDispatcher
	stats         DeliveryStatsProvider
	pickupAddress string
	timeout       time.Duration
	logger        *zap.Logger
}

func NewDeliveryCoordinator(
	dispatcher DeliveryDispatcher,
	stats DeliveryStatsProvider,
	pickupAddress string,
	timeout time.Duration,
	logger *zap.Logger,
) *DeliveryCoordinator {
	return &DeliveryCoordinator{
		dispatcher:    dispatcher,
		stats:         stats,
		pickupAddress: pickupAddress,
		timeout:       timeout,
		logger:        logger,
	}
}

// CreateTask opens a delivery task from the restaurant to the order's address.
func (c *DeliveryCoordinator) CreateTask(ctx context.Context, order *domain.Order) error {
	task := domain.DeliveryTask{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		PickupAddress:    c.pickupAddress,
		DeliveryAddress:  order.DeliveryInfo.Address,
		Customer:         order.Customer,
		EstimatedMinutes: order.EstimatedPrepMinutes,
	}

	return c.call(ctx, "create_task", order.ID, func(callCtx context.Context) error {
		return c.dispatcher.CreateTask(callCtx, task)
	})
}

func (c *DeliveryCoordinator) CancelTask(ctx context.Context, orderID string) error {
	return c.call(ctx, "cancel_task", orderID, func(callCtx context.Context) error {
		return c.dispatcher.CancelTask(callCtx, orderID)
	})
}

func (c *DeliveryCoordinator) StartDelivery(ctx context.Context, orderID string) error {
	return c.call(ctx, "start_delivery", orderID, func(callCtx context.Context) error {
		return c.dispatcher.StartDelivery(callCtx, orderID)
	})
}

func (c *DeliveryCoordinator) CompleteDelivery(ctx context.Context, orderID string) error {
	return c.call(ctx, "complete_delivery", orderID, func(callCtx context.Context) error {
		return c.dispatcher.CompleteDelivery(callCtx, orderID)
	})
}

func (c *DeliveryCoordinator) GetPerformanceStats(ctx context.Context, dateRange *dto.DateRange) (dto.DeliveryPerformance, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	perf, err := c.stats.DeliveryPerformance(callCtx, dateRange)
	if err != nil {
		c.logger.Error("delivery performance query failed", zap.Error(err))
		return dto.DeliveryPerformance{}, err
	}
	if perf.DriverEfficiency == nil {
		perf.DriverEfficiency = map[string]float64{}
	}
	return perf, nil
}

func (c *DeliveryCoordinator) call(ctx context.Context, op, orderID string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := fn(callCtx); err != nil {
		c.logger.Error("delivery call failed", zap.String("operation", op), zap.String("orderId", orderID), zap.Error(err))
		return err
	}
	c.logger.Debug("delivery call succeeded", zap.String("operation", op), zap.String("orderId", orderID))
	return nil
}
