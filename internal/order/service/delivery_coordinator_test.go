package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"o2o/internal/domain"
	"o2o/internal/dto"
)

func TestDeliveryCoordinator_CreateTaskUsesPickupAddress(t *testing.T) {
	var got domain.DeliveryTask
	dispatcher := &mockDeliveryDispatcher{
		CreateTaskFunc: func(ctx context.Context, task domain.DeliveryTask) error {
			got = task
			return nil
		},
	}
	c := NewDeliveryCoordinator(dispatcher, &mockDeliveryStats{}, "1 Kitchen Rd", time.Second, zap.NewNop())

	order := &domain.Order{
		ID:                   "ord-1",
		OrderNumber:          "O2O1234ABCD",
		DeliveryInfo:         domain.DeliveryInfo{Type: domain.DeliveryTypeDelivery, Address: "9 Elm St"},
		Customer:             domain.Customer{Name: "Li", Phone: "555"},
		EstimatedPrepMinutes: 15,
	}

	require.NoError(t, c.CreateTask(context.Background(), order))
	assert.Equal(t, "1 Kitchen Rd", got.PickupAddress)
	assert.Equal(t, "9 Elm St", got.DeliveryAddress)
	assert.Equal(t, 15, got.EstimatedMinutes)
}

func TestDeliveryCoordinator_PropagatesDispatcherErrors(t *testing.T) {
	boom := errors.New("fleet offline")
	dispatcher := &mockDeliveryDispatcher{
		CancelTaskFunc:       func(ctx context.Context, orderID string) error { return boom },
		StartDeliveryFunc:    func(ctx context.Context, orderID string) error { return boom },
		CompleteDeliveryFunc: func(ctx context.Context, orderID string) error { return boom },
	}
	c := NewDeliveryCoordinator(dispatcher, &mockDeliveryStats{}, "", time.Second, zap.NewNop())

	assert.ErrorIs(t, c.CancelTask(context.Background(), "ord-1"), boom)
	assert.ErrorIs(t, c.StartDelivery(context.Background(), "ord-1"), boom)
	assert.ErrorIs(t, c.CompleteDelivery(context.Background(), "ord-1"), boom)
}

func TestDeliveryCoordinator_GetPerformanceStatsDefaultsDriverMap(t *testing.T) {
	stats := &mockDeliveryStats{
		DeliveryPerformanceFunc: func(ctx context.Context, dateRange *dto.DateRange) (dto.DeliveryPerformance, error) {
			return dto.DeliveryPerformance{AverageDeliveryMinutes: 22.5, OnTimeRate: 0.9}, nil
		},
	}
	c := NewDeliveryCoordinator(&mockDeliveryDispatcher{}, stats, "", time.Second, zap.NewNop())

	perf, err := c.GetPerformanceStats(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 22.5, perf.AverageDeliveryMinutes)
	assert.NotNil(t, perf.DriverEfficiency)
}
