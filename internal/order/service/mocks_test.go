package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"o2o/internal/domain"
	"o2o/internal/dto"
)

type mockInventoryLedger struct {
	mu sync.Mutex

	CheckAvailabilityFunc func(ctx context.Context, dishID string, quantity int) (bool, error)
	ReserveFunc           func(ctx context.Context, dishID string, quantity int, orderItemID string) error
	ReleaseFunc           func(ctx context.Context, dishID string, quantity int, orderItemID string) error
	ConfirmDeductionFunc  func(ctx context.Context, dishID string, quantity int, orderItemID string) error

	reserveCalls []string
	releaseCalls []string
	confirmCalls []string
}

func (m *mockInventoryLedger) CheckAvailability(ctx context.Context, dishID string, quantity int) (bool, error) {
	return m.CheckAvailabilityFunc(ctx, dishID, quantity)
}

func (m *mockInventoryLedger) Reserve(ctx context.Context, dishID string, quantity int, orderItemID string) error {
	m.mu.Lock()
	m.reserveCalls = append(m.reserveCalls, orderItemID)
	m.mu.Unlock()
	if m.ReserveFunc == nil {
		return nil
	}
	return m.ReserveFunc(ctx, dishID, quantity, orderItemID)
}

func (m *mockInventoryLedger) Release(ctx context.Context, dishID string, quantity int, orderItemID string) error {
	m.mu.Lock()
	m.releaseCalls = append(m.releaseCalls, orderItemID)
	m.mu.Unlock()
	if m.ReleaseFunc == nil {
		return nil
	}
	return m.ReleaseFunc(ctx, dishID, quantity, orderItemID)
}

func (m *mockInventoryLedger) ConfirmDeduction(ctx context.Context, dishID string, quantity int, orderItemID string) error {
	m.mu.Lock()
	m.confirmCalls = append(m.confirmCalls, orderItemID)
	m.mu.Unlock()
	if m.ConfirmDeductionFunc == nil {
		return nil
	}
	return m.ConfirmDeductionFunc(ctx, dishID, quantity, orderItemID)
}

type mockPaymentGateway struct {
	ChargeFunc func(ctx context.Context, req domain.ChargeRequest) (domain.ChargeResult, error)
	RefundFunc func(ctx context.Context, req domain.RefundRequest) error

	chargeCalls int
}

func (m *mockPaymentGateway) Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeResult, error) {
	m.chargeCalls++
	return m.ChargeFunc(ctx, req)
}

func (m *mockPaymentGateway) Refund(ctx context.Context, req domain.RefundRequest) error {
	return m.RefundFunc(ctx, req)
}

type mockDeliveryDispatcher struct {
	CreateTaskFunc       func(ctx context.Context, task domain.DeliveryTask) error
	CancelTaskFunc       func(ctx context.Context, orderID string) error
	StartDeliveryFunc    func(ctx context.Context, orderID string) error
	CompleteDeliveryFunc func(ctx context.Context, orderID string) error
}

func (m *mockDeliveryDispatcher) CreateTask(ctx context.Context, task domain.DeliveryTask) error {
	return m.CreateTaskFunc(ctx, task)
}

func (m *mockDeliveryDispatcher) CancelTask(ctx context.Context, orderID string) error {
	return m.CancelTaskFunc(ctx, orderID)
}

func (m *mockDeliveryDispatcher) StartDelivery(ctx context.Context, orderID string) error {
	return m.StartDeliveryFunc(ctx, orderID)
}

func (m *mockDeliveryDispatcher) CompleteDelivery(ctx context.Context, orderID string) error {
	return m.CompleteDeliveryFunc(ctx, orderID)
}

type mockDeliveryStats struct {
	DeliveryPerformanceFunc func(ctx context.Context, dateRange *dto.DateRange) (dto.DeliveryPerformance, error)
}

func (m *mockDeliveryStats) DeliveryPerformance(ctx context.Context, dateRange *dto.DateRange) (dto.DeliveryPerformance, error) {
	return m.DeliveryPerformanceFunc(ctx, dateRange)
}

type mockNotifier struct {
	NotifyFunc func(ctx context.Context, order *domain.Order, event string) error
	events     []string
}

func (m *mockNotifier) NotifyCustomer(ctx context.Context, order *domain.Order, event string) error {
	m.events = append(m.events, event)
	return m.NotifyFunc(ctx, order, event)
}

func (m *mockNotifier) NotifyInternal(ctx context.Context, order *domain.Order, event string) error {
	m.events = append(m.events, event)
	return m.NotifyFunc(ctx, order, event)
}

var errStoreDown = errors.New("store unavailable")

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errStoreDown
}

func (failingStore) Set(context.Context, string, string, time.Duration) error {
	return errStoreDown
}
