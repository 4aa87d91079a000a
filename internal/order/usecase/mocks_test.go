package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"o2o/internal/domain"
	"o2o/internal/dto"
	dtoerrors "o2o/internal/errors"
	"o2o/internal/infrastructure/idempotency"
	"o2o/internal/order/pricing"
	"o2o/internal/order/service"
)

// mockOrderRepository keeps orders in memory and lets tests override calls.
type mockOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order

	CreateFunc         func(ctx context.Context, order *domain.Order) error
	UpdateFunc         func(ctx context.Context, order *domain.Order) error
	FindWithFilterFunc func(ctx context.Context, filter dto.OrderFilter, page dto.Pagination) ([]domain.Order, int, error)
	StatisticsFunc     func(ctx context.Context, dateRange *dto.DateRange) (dto.OrderStatistics, error)

	createCalls int
	updateCalls int
}

func newMockOrderRepository(orders ...*domain.Order) *mockOrderRepository {
	m := &mockOrderRepository{orders: map[string]*domain.Order{}}
	for _, o := range orders {
		m.orders[o.ID] = o.Clone()
	}
	return m
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, order); err != nil {
			return err
		}
	}
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *mockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.UpdateFunc != nil {
		if err := m.UpdateFunc(ctx, order); err != nil {
			return err
		}
	}
	if _, ok := m.orders[order.ID]; !ok {
		return dtoerrors.NewNotFoundError("order with id " + order.ID + " not found")
	}
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, dtoerrors.NewNotFoundError("order with id " + id + " not found")
	}
	return o.Clone(), nil
}

func (m *mockOrderRepository) FindByExternalRef(ctx context.Context, platform, externalID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ExternalRef != nil && o.ExternalRef.Platform == platform && o.ExternalRef.ExternalID == externalID {
			return o.Clone(), nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepository) FindWithFilter(ctx context.Context, filter dto.OrderFilter, page dto.Pagination) ([]domain.Order, int, error) {
	return m.FindWithFilterFunc(ctx, filter, page)
}

func (m *mockOrderRepository) FindDelivering(ctx context.Context, driverID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.Status == domain.OrderStatusOutForDelivery && (driverID == "" || o.DeliveryDriverID == driverID) {
			out = append(out, *o.Clone())
		}
	}
	return out, nil
}

func (m *mockOrderRepository) Statistics(ctx context.Context, dateRange *dto.DateRange) (dto.OrderStatistics, error) {
	return m.StatisticsFunc(ctx, dateRange)
}

func (m *mockOrderRepository) stored(id string) *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Clone()
}

func (m *mockOrderRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type mockInventoryLedger struct {
	mu sync.Mutex

	CheckAvailabilityFunc func(ctx context.Context, dishID string, quantity int) (bool, error)
	ReserveFunc           func(ctx context.Context, dishID string, quantity int, orderItemID string) error
	ReleaseFunc           func(ctx context.Context, dishID string, quantity int, orderItemID string) error

	reserved  []string
	released  []string
	confirmed []string
}

func (m *mockInventoryLedger) CheckAvailability(ctx context.Context, dishID string, quantity int) (bool, error) {
	if m.CheckAvailabilityFunc == nil {
		return true, nil
	}
	return m.CheckAvailabilityFunc(ctx, dishID, quantity)
}

func (m *mockInventoryLedger) Reserve(ctx context.Context, dishID string, quantity int, orderItemID string) error {
	if m.ReserveFunc != nil {
		if err := m.ReserveFunc(ctx, dishID, quantity, orderItemID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.reserved = append(m.reserved, dishID)
	m.mu.Unlock()
	return nil
}

func (m *mockInventoryLedger) Release(ctx context.Context, dishID string, quantity int, orderItemID string) error {
	if m.ReleaseFunc != nil {
		if err := m.ReleaseFunc(ctx, dishID, quantity, orderItemID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.released = append(m.released, dishID)
	m.mu.Unlock()
	return nil
}

func (m *mockInventoryLedger) ConfirmDeduction(ctx context.Context, dishID string, quantity int, orderItemID string) error {
	m.mu.Lock()
	m.confirmed = append(m.confirmed, dishID)
	m.mu.Unlock()
	return nil
}

type mockPaymentCoordinator struct {
	ChargeFunc func(ctx context.Context, req domain.ChargeRequest) domain.ChargeResult
	RefundFunc func(ctx context.Context, req domain.RefundRequest) error

	chargeCalls int
	refunds     []domain.RefundRequest
}

func (m *mockPaymentCoordinator) Charge(ctx context.Context, req domain.ChargeRequest) domain.ChargeResult {
	m.chargeCalls++
	if m.ChargeFunc == nil {
		return domain.ChargeApproved{TransactionID: "txn-" + req.OrderID}
	}
	return m.ChargeFunc(ctx, req)
}

func (m *mockPaymentCoordinator) Refund(ctx context.Context, req domain.RefundRequest) error {
	m.refunds = append(m.refunds, req)
	if m.RefundFunc == nil {
		return nil
	}
	return m.RefundFunc(ctx, req)
}

type mockDeliveryCoordinator struct {
	CreateTaskFunc       func(ctx context.Context, order *domain.Order) error
	CancelTaskFunc       func(ctx context.Context, orderID string) error
	StartDeliveryFunc    func(ctx context.Context, orderID string) error
	CompleteDeliveryFunc func(ctx context.Context, orderID string) error
	PerformanceFunc      func(ctx context.Context, dateRange *dto.DateRange) (dto.DeliveryPerformance, error)

	calls []string
}

func (m *mockDeliveryCoordinator) CreateTask(ctx context.Context, order *domain.Order) error {
	m.calls = append(m.calls, "create:"+order.ID)
	if m.CreateTaskFunc == nil {
		return nil
	}
	return m.CreateTaskFunc(ctx, order)
}

func (m *mockDeliveryCoordinator) CancelTask(ctx context.Context, orderID string) error {
	m.calls = append(m.calls, "cancel:"+orderID)
	if m.CancelTaskFunc == nil {
		return nil
	}
	return m.CancelTaskFunc(ctx, orderID)
}

func (m *mockDeliveryCoordinator) StartDelivery(ctx context.Context, orderID string) error {
	m.calls = append(m.calls, "start:"+orderID)
	if m.StartDeliveryFunc == nil {
		return nil
	}
	return m.StartDeliveryFunc(ctx, orderID)
}

func (m *mockDeliveryCoordinator) CompleteDelivery(ctx context.Context, orderID string) error {
	m.calls = append(m.calls, "complete:"+orderID)
	if m.CompleteDeliveryFunc == nil {
		return nil
	}
	return m.CompleteDeliveryFunc(ctx, orderID)
}

func (m *mockDeliveryCoordinator) GetPerformanceStats(ctx context.Context, dateRange *dto.DateRange) (dto.DeliveryPerformance, error) {
	return m.PerformanceFunc(ctx, dateRange)
}

type mockNotificationDispatcher struct {
	mu     sync.Mutex
	events []string
}

func (m *mockNotificationDispatcher) Dispatch(ctx context.Context, order *domain.Order, event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

type mockEventPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (m *mockEventPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockEventPublisher) types() []domain.OrderEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.OrderEventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type mockCompensationRecorder struct {
	mu       sync.Mutex
	failures []*dtoerrors.CompensationFailureError
}

func (m *mockCompensationRecorder) Record(ctx context.Context, failure *dtoerrors.CompensationFailureError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, failure)
}

type testHarness struct {
	repo         *mockOrderRepository
	ledger       *mockInventoryLedger
	payment      *mockPaymentCoordinator
	delivery     *mockDeliveryCoordinator
	notifier     *mockNotificationDispatcher
	events       *mockEventPublisher
	recorder     *mockCompensationRecorder
	orchestrator *OrderOrchestrator
}

// newTestHarness wires the orchestrator with the real pricing and inventory
// coordinator on top of in-memory doubles.
func newTestHarness(orders ...*domain.Order) *testHarness {
	h := &testHarness{
		repo:     newMockOrderRepository(orders...),
		ledger:   &mockInventoryLedger{},
		payment:  &mockPaymentCoordinator{},
		delivery: &mockDeliveryCoordinator{},
		notifier: &mockNotificationDispatcher{},
		events:   &mockEventPublisher{},
		recorder: &mockCompensationRecorder{},
	}

	logger := zap.NewNop()
	h.orchestrator = NewOrderOrchestrator(OrchestratorDeps{
		Repository:    h.repo,
		Pricing:       pricing.NewAmountCalculator(pricing.DefaultRules()),
		Inventory:     service.NewInventoryCoordinator(h.ledger, idempotency.NewMemoryStore(), time.Second, logger),
		Payment:       h.payment,
		Delivery:      h.delivery,
		Notifications: h.notifier,
		Events:        h.events,
		Compensations: h.recorder,
	}, logger)
	return h
}

func scenarioRequest() dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		Source:   domain.OrderSourceWeb,
		Customer: &domain.Customer{CustomerID: "cust-1", Name: "Zhang Wei", Phone: "13800000000"},
		Items: []dto.CreateOrderItem{
			{DishID: "dish-a", DishName: "Dumplings", Quantity: 1, Price: decimal.NewFromInt(50)},
			{DishID: "dish-b", DishName: "Noodles", Quantity: 2, Price: decimal.NewFromInt(20)},
		},
		DeliveryInfo:  &domain.DeliveryInfo{Type: domain.DeliveryTypePickup},
		PaymentMethod: domain.PaymentMethodWechatPay,
		CouponCode:    "SAVE10",
	}
}

func existingOrder(id string, status domain.OrderStatus) *domain.Order {
	now := time.Now().UTC().Add(-time.Hour)
	return &domain.Order{
		ID:                   id,
		OrderNumber:          "O2O123456ABCD",
		Source:               domain.OrderSourceWeb,
		Customer:             domain.Customer{Name: "Zhang Wei", Phone: "13800000000"},
		Items:                []domain.OrderItem{{ID: id + "-item-1", DishID: "dish-a", Quantity: 1, UnitPrice: decimal.NewFromInt(50), TotalPrice: decimal.NewFromInt(50)}},
		DeliveryInfo:         domain.DeliveryInfo{Type: domain.DeliveryTypePickup},
		PaymentMethod:        domain.PaymentMethodCard,
		PaymentStatus:        domain.PaymentStatusCompleted,
		PaymentTransactionID: "txn-" + id,
		Amount:               domain.Amount{Total: decimal.NewFromInt(50)},
		Status:               status,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}
