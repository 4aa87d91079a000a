package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"o2o/internal/domain"
	"o2o/internal/dto"
	dtoerrors "o2o/internal/errors"
	"o2o/internal/order/pricing"
	"o2o/internal/order/service"
)

const systemActor = "system"

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByExternalRef(ctx context.Context, platform, externalID string) (*domain.Order, error)
	FindWithFilter(ctx context.Context, filter dto.OrderFilter, page dto.Pagination) ([]domain.Order, int, error)
	FindDelivering(ctx context.Context, driverID string) ([]domain.Order, error)
	Statistics(ctx context.Context, dateRange *dto.DateRange) (dto.OrderStatistics, error)
}

type AmountCalculator interface {
	Calculate(items []dto.CreateOrderItem, delivery domain.DeliveryInfo, couponCode string) domain.Amount
}

type InventoryCoordinator interface {
	CheckAvailability(ctx context.Context, items []dto.CreateOrderItem) error
	ReserveAll(ctx context.Context, orderID string, items []domain.OrderItem) ([]domain.OrderItem, error)
	ReleaseAll(ctx context.Context, orderID string, items []domain.OrderItem) []*dtoerrors.CompensationFailureError
	ConfirmAll(ctx context.Context, orderID string, items []domain.OrderItem) []error
}

type PaymentCoordinator interface {
	Charge(ctx context.Context, req domain.ChargeRequest) domain.ChargeResult
	Refund(ctx context.Context, req domain.RefundRequest) error
}

type DeliveryCoordinator interface {
	CreateTask(ctx context.Context, order *domain.Order) error
	CancelTask(ctx context.Context, orderID string) error
	StartDelivery(ctx context.Context, orderID string) error
	CompleteDelivery(ctx context.Context, orderID string) error
	GetPerformanceStats(ctx context.Context, dateRange *dto.DateRange) (dto.DeliveryPerformance, error)
}

type NotificationDispatcher interface {
	Dispatch(ctx context.Context, order *domain.Order, event string)
}

// EventPublisher delivers order events to subscribers wired outside this package.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}

type OrchestratorDeps struct {
	Repository    OrderRepository
	Pricing       AmountCalculator
	Inventory     InventoryCoordinator
	Payment       PaymentCoordinator
	Delivery      DeliveryCoordinator
	Notifications NotificationDispatcher
	Events        EventPublisher
	Compensations CompensationRecorder
	Locker        *OrderLocker
}

// OrderOrchestrator drives an order through payment, reservation, delivery
// and notification, and unwinds completed steps when a later one fails.
type OrderOrchestrator struct {
	repo          OrderRepository
	pricing       AmountCalculator
	inventory     InventoryCoordinator
	payment       PaymentCoordinator
	delivery      DeliveryCoordinator
	notifications NotificationDispatcher
	events        EventPublisher
	compensations CompensationRecorder
	locker        *OrderLocker
	tracer        trace.Tracer
	logger        *zap.Logger
	now           func() time.Time
}

func NewOrderOrchestrator(deps OrchestratorDeps, logger *zap.Logger) *OrderOrchestrator {
	locker := deps.Locker
	if locker == nil {
		locker = NewOrderLocker()
	}
	compensations := deps.Compensations
	if compensations == nil {
		compensations = NewLogCompensationRecorder(logger)
	}

	return &OrderOrchestrator{
		repo:          deps.Repository,
		pricing:       deps.Pricing,
		inventory:     deps.Inventory,
		payment:       deps.Payment,
		delivery:      deps.Delivery,
		notifications: deps.Notifications,
		events:        deps.Events,
		compensations: compensations,
		locker:        locker,
		tracer:        otel.Tracer("o2o/order"),
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder runs the creation saga. From the charge on the saga ignores
// caller cancellation so a charge is never left without an order or a refund.
func (o *OrderOrchestrator) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*domain.Order, error) {
	ctx, span := o.tracer.Start(ctx, "OrderOrchestrator.CreateOrder")
	defer span.End()

	now := o.now()
	if err := validateCreateOrder(req, now); err != nil {
		return nil, err
	}

	if err := o.inventory.CheckAvailability(ctx, req.Items); err != nil {
		spanError(span, err)
		return nil, err
	}

	amount := o.pricing.Calculate(req.Items, *req.DeliveryInfo, req.CouponCode)
	order := o.buildOrder(req, amount, now)
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.number", order.OrderNumber))

	logger := o.logger.With(zap.String("orderId", order.ID), zap.String("orderNumber", order.OrderNumber))
	logger.Info("create order started", zap.String("source", string(order.Source)), zap.Int("itemCount", len(order.Items)), zap.String("total", order.Amount.Total.StringFixed(2)))

	// The charge is the commit point. From here on the saga runs to the end
	// even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	result := o.payment.Charge(ctx, domain.ChargeRequest{
		OrderID:  order.ID,
		Amount:   order.Amount.Total,
		Method:   order.PaymentMethod,
		Customer: order.Customer,
	})
	switch r := result.(type) {
	case domain.ChargeApproved:
		order.PaymentStatus = domain.PaymentStatusCompleted
		order.PaymentTransactionID = r.TransactionID
	case domain.ChargeDeclined:
		err := dtoerrors.NewPaymentFailedError(order.ID, r.Message)
		spanError(span, err)
		return nil, err
	case domain.ChargeUnknown:
		logger.Error("charge outcome unknown, reversing", zap.String("reason", r.Message))
		if f := o.refund(ctx, order, "charge outcome unknown"); f != nil {
			o.recordCompensations(ctx, []*dtoerrors.CompensationFailureError{f})
		}
		err := dtoerrors.NewPaymentFailedError(order.ID, "payment outcome unknown: "+r.Message)
		spanError(span, err)
		return nil, err
	default:
		err := dtoerrors.NewPaymentFailedError(order.ID, "unrecognized charge result")
		spanError(span, err)
		return nil, err
	}

	// Once persisted the order is visible to status updates and cancellation,
	// which must wait until reservation and its unwinding are done.
	unlock := o.locker.Lock(order.ID)
	defer unlock()

	if err := o.repo.Create(ctx, order); err != nil {
		logger.Error("persisting order failed, refunding", zap.Error(err))
		var failures []*dtoerrors.CompensationFailureError
		if f := o.refund(ctx, order, "order could not be saved"); f != nil {
			failures = append(failures, f)
		}
		o.recordCompensations(ctx, failures)
		perr := dtoerrors.NewPersistenceFailureError(order.ID, err, failures...)
		spanError(span, perr)
		return nil, perr
	}

	if reserved, err := o.reserve(ctx, order); err != nil {
		logger.Error("reserving inventory failed, compensating", zap.Error(err))
		rerr := o.abortAfterReservationFailure(ctx, order, reserved, err)
		spanError(span, rerr)
		return nil, rerr
	}

	o.notifications.Dispatch(ctx, order, domain.NotificationOrderCreated)

	if order.DeliveryInfo.IsDelivery() {
		if err := o.delivery.CreateTask(ctx, order); err != nil {
			logger.Warn("delivery task not created, dispatch must be retried", zap.Error(err))
		}
	}

	o.publish(ctx, domain.OrderEvent{Type: domain.EventOrderCreated, Order: order.Clone(), OccurredAt: now})

	logger.Info("order created", zap.String("transactionId", order.PaymentTransactionID))
	return order, nil
}

func (o *OrderOrchestrator) reserve(ctx context.Context, order *domain.Order) ([]domain.OrderItem, error) {
	ctx, span := o.tracer.Start(ctx, "OrderOrchestrator.reserve", trace.WithAttributes(attribute.Int("order.items", len(order.Items))))
	defer span.End()

	reserved, err := o.inventory.ReserveAll(ctx, order.ID, order.Items)
	if err != nil {
		spanError(span, err)
	}
	return reserved, err
}

// abortAfterReservationFailure releases what was reserved, refunds the charge
// and leaves the persisted order cancelled.
func (o *OrderOrchestrator) abortAfterReservationFailure(ctx context.Context, order *domain.Order, reserved []domain.OrderItem, cause error) error {
	failures := o.inventory.ReleaseAll(ctx, order.ID, reserved)

	if f := o.refund(ctx, order, "inventory reservation failed"); f != nil {
		failures = append(failures, f)
	} else {
		order.PaymentStatus = domain.PaymentStatusRefunded
	}

	now := o.now()
	previous := order.Status
	if domain.CanTransition(order.Status, domain.OrderStatusCancelled) {
		order.ApplyStatus(domain.OrderStatusCancelled, systemActor, now)
	}
	order.AppendNote(now, "Order aborted: inventory reservation failed")
	if err := o.repo.Update(ctx, order); err != nil {
		failures = append(failures, dtoerrors.NewCompensationFailureError(order.ID, "mark_cancelled", "", err))
	} else if order.Status != previous {
		o.notifications.Dispatch(ctx, order, domain.NotificationStatusChanged)
		o.publish(ctx, domain.OrderEvent{
			Type:           domain.EventOrderStatusChanged,
			Order:          order.Clone(),
			PreviousStatus: previous,
			NewStatus:      order.Status,
			UpdatedBy:      systemActor,
			OccurredAt:     now,
		})
	}

	o.recordCompensations(ctx, failures)

	dishID := ""
	var itemErr *service.ItemReservationError
	if errors.As(cause, &itemErr) {
		dishID = itemErr.Item.DishID
		cause = itemErr.Cause
	}
	return dtoerrors.NewReservationFailureError(order.ID, dishID, cause, failures...)
}

func (o *OrderOrchestrator) refund(ctx context.Context, order *domain.Order, reason string) *dtoerrors.CompensationFailureError {
	err := o.payment.Refund(ctx, domain.RefundRequest{
		OrderID:               order.ID,
		Amount:                order.Amount.Total,
		OriginalTransactionID: order.PaymentTransactionID,
		Reason:                reason,
	})
	if err != nil {
		return dtoerrors.NewCompensationFailureError(order.ID, "refund", order.PaymentTransactionID, err)
	}
	return nil
}

func (o *OrderOrchestrator) UpdateOrderStatus(ctx context.Context, orderID string, target domain.OrderStatus, actor, note string) (*domain.Order, error) {
	ctx, span := o.tracer.Start(ctx, "OrderOrchestrator.UpdateOrderStatus",
		trace.WithAttributes(attribute.String("order.id", orderID), attribute.String("order.target_status", string(target))))
	defer span.End()

	unlock := o.locker.Lock(orderID)
	defer unlock()

	order, err := o.repo.FindByID(ctx, orderID)
	if err != nil {
		spanError(span, err)
		return nil, err
	}

	if err := o.updateStatusLocked(ctx, order, target, actor, note); err != nil {
		spanError(span, err)
		return nil, err
	}
	return order, nil
}

// updateStatusLocked applies target to an order loaded under its lock.
func (o *OrderOrchestrator) updateStatusLocked(ctx context.Context, order *domain.Order, target domain.OrderStatus, actor, note string) error {
	if !domain.CanTransition(order.Status, target) {
		return dtoerrors.NewInvalidTransitionError(order.ID, string(order.Status), string(target))
	}

	now := o.now()
	snapshot := order.Clone()
	previous := order.ApplyStatus(target, actor, now)
	order.AppendNote(now, note)

	switch target {
	case domain.OrderStatusOutForDelivery:
		if err := o.delivery.StartDelivery(ctx, order.ID); err != nil {
			o.logger.Warn("start delivery failed", zap.String("orderId", order.ID), zap.Error(err))
		}
	case domain.OrderStatusDelivered:
		if err := o.delivery.CompleteDelivery(ctx, order.ID); err != nil {
			o.logger.Warn("complete delivery failed", zap.String("orderId", order.ID), zap.Error(err))
		}
	}

	if err := o.repo.Update(ctx, order); err != nil {
		*order = *snapshot
		o.logger.Error("persisting status change failed", zap.String("orderId", order.ID), zap.Error(err))
		return fmt.Errorf("persisting status change for order %s: %w", order.ID, err)
	}

	o.logger.Info("order status changed",
		zap.String("orderId", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(target)),
		zap.String("updatedBy", actor),
	)

	o.notifications.Dispatch(ctx, order, domain.NotificationStatusChanged)
	o.publish(ctx, domain.OrderEvent{
		Type:           domain.EventOrderStatusChanged,
		Order:          order.Clone(),
		PreviousStatus: previous,
		NewStatus:      target,
		UpdatedBy:      actor,
		OccurredAt:     now,
	})
	return nil
}

// CancelOrder refunds, releases and cancels delivery independently, then moves
// the order to cancelled whatever those calls returned.
func (o *OrderOrchestrator) CancelOrder(ctx context.Context, orderID, reason, actor string) (*dto.CancelResult, error) {
	ctx, span := o.tracer.Start(ctx, "OrderOrchestrator.CancelOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	unlock := o.locker.Lock(orderID)
	defer unlock()

	order, err := o.repo.FindByID(ctx, orderID)
	if err != nil {
		spanError(span, err)
		return nil, err
	}

	if !domain.CanCancel(order.Status) {
		err := dtoerrors.NewInvalidTransitionError(order.ID, string(order.Status), string(domain.OrderStatusCancelled))
		spanError(span, err)
		return nil, err
	}

	var failures []*dtoerrors.CompensationFailureError

	if order.PaymentStatus == domain.PaymentStatusCompleted {
		if f := o.refund(ctx, order, reason); f != nil {
			failures = append(failures, f)
		} else {
			order.PaymentStatus = domain.PaymentStatusRefunded
		}
	}

	failures = append(failures, o.inventory.ReleaseAll(ctx, order.ID, order.Items)...)

	if order.DeliveryInfo.IsDelivery() {
		if err := o.delivery.CancelTask(ctx, order.ID); err != nil {
			failures = append(failures, dtoerrors.NewCompensationFailureError(order.ID, "cancel_delivery", "", err))
		}
	}

	o.recordCompensations(ctx, failures)

	note := "Order cancelled"
	if reason != "" {
		note += ": " + reason
	}
	if err := o.updateStatusLocked(ctx, order, domain.OrderStatusCancelled, actor, note); err != nil {
		spanError(span, err)
		return nil, err
	}

	return &dto.CancelResult{Order: order, CompensationFailures: failures}, nil
}

// CompleteOrder finalizes the order and turns its reservations into deductions.
func (o *OrderOrchestrator) CompleteOrder(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	ctx, span := o.tracer.Start(ctx, "OrderOrchestrator.CompleteOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	unlock := o.locker.Lock(orderID)
	defer unlock()

	order, err := o.repo.FindByID(ctx, orderID)
	if err != nil {
		spanError(span, err)
		return nil, err
	}

	if err := o.updateStatusLocked(ctx, order, domain.OrderStatusCompleted, actor, ""); err != nil {
		spanError(span, err)
		return nil, err
	}

	for _, err := range o.inventory.ConfirmAll(ctx, order.ID, order.Items) {
		o.logger.Error("deduction not confirmed", zap.String("orderId", order.ID), zap.Error(err))
	}

	o.notifications.Dispatch(ctx, order, domain.NotificationOrderCompleted)
	o.publish(ctx, domain.OrderEvent{Type: domain.EventOrderCompleted, Order: order.Clone(), OccurredAt: o.now()})

	return order, nil
}

func (o *OrderOrchestrator) BatchUpdateOrderStatus(ctx context.Context, orderIDs []string, target domain.OrderStatus, actor string) dto.BatchUpdateResult {
	result := dto.BatchUpdateResult{
		Success: []string{},
		Failed:  []dto.BatchFailure{},
	}

	for _, id := range orderIDs {
		if _, err := o.UpdateOrderStatus(ctx, id, target, actor, ""); err != nil {
			result.Failed = append(result.Failed, dto.BatchFailure{OrderID: id, Error: err.Error()})
			continue
		}
		result.Success = append(result.Success, id)
	}

	o.logger.Info("batch status update finished",
		zap.String("status", string(target)),
		zap.Int("success", len(result.Success)),
		zap.Int("failed", len(result.Failed)),
	)
	return result
}

func (o *OrderOrchestrator) GetOrders(ctx context.Context, filter dto.OrderFilter, page dto.Pagination) (*dto.OrderPage, error) {
	page = page.Normalize()

	orders, total, err := o.repo.FindWithFilter(ctx, filter, page)
	if err != nil {
		o.logger.Error("get orders failed", zap.Error(err))
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	return &dto.OrderPage{
		Orders:     orders,
		Total:      total,
		Page:       page.Page,
		TotalPages: (total + page.Limit - 1) / page.Limit,
	}, nil
}

func (o *OrderOrchestrator) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return o.repo.FindByID(ctx, orderID)
}

func (o *OrderOrchestrator) GetOrderStatistics(ctx context.Context, dateRange *dto.DateRange) (*dto.OrderStatistics, error) {
	stats, err := o.repo.Statistics(ctx, dateRange)
	if err != nil {
		o.logger.Error("order statistics failed", zap.Error(err))
		return nil, err
	}

	perf, err := o.delivery.GetPerformanceStats(ctx, dateRange)
	if err != nil {
		return nil, err
	}
	stats.DeliveryPerformance = perf

	return &stats, nil
}

func (o *OrderOrchestrator) GetDeliveringOrders(ctx context.Context, driverID string) ([]domain.Order, error) {
	orders, err := o.repo.FindDelivering(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (o *OrderOrchestrator) buildOrder(req dto.CreateOrderRequest, amount domain.Amount, now time.Time) *domain.Order {
	items := make([]domain.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.OrderItem{
			ID:             uuid.NewString(),
			DishID:         item.DishID,
			DishName:       item.DishName,
			Quantity:       item.Quantity,
			UnitPrice:      item.Price,
			TotalPrice:     pricing.LineTotal(item.Price, item.Quantity),
			Customizations: item.Customizations,
		}
	}

	prep := req.EstimatedPrepMinutes
	if prep <= 0 {
		prep = domain.DefaultEstimatedPrepMinutes
	}

	order := &domain.Order{
		ID:                   uuid.NewString(),
		OrderNumber:          generateOrderNumber(now),
		Source:               req.Source,
		Customer:             *req.Customer,
		Items:                items,
		DeliveryInfo:         *req.DeliveryInfo,
		PaymentMethod:        req.PaymentMethod,
		PaymentStatus:        domain.PaymentStatusPending,
		CouponCode:           strings.TrimSpace(req.CouponCode),
		Amount:               amount,
		Status:               domain.OrderStatusPending,
		ScheduledTime:        req.ScheduledTime,
		EstimatedPrepMinutes: prep,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if req.ExternalRef != nil {
		ref := *req.ExternalRef
		order.ExternalRef = &ref
	}
	order.AppendNote(now, strings.TrimSpace(req.Notes))
	return order
}

const orderNumberLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// generateOrderNumber returns O2O, the last six digits of the unix-millis
// timestamp and four random uppercase letters.
func generateOrderNumber(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}

	var suffix [4]byte
	for i := range suffix {
		suffix[i] = orderNumberLetters[rand.IntN(len(orderNumberLetters))]
	}
	return "O2O" + millis + string(suffix[:])
}

func (o *OrderOrchestrator) publish(ctx context.Context, event domain.OrderEvent) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, event); err != nil {
		orderID := ""
		if event.Order != nil {
			orderID = event.Order.ID
		}
		o.logger.Warn("event publish failed", zap.String("event", string(event.Type)), zap.String("orderId", orderID), zap.Error(err))
	}
}

func (o *OrderOrchestrator) recordCompensations(ctx context.Context, failures []*dtoerrors.CompensationFailureError) {
	for _, f := range failures {
		o.compensations.Record(ctx, f)
	}
}

func spanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
