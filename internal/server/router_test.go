package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"o2o/internal/domain"
	"o2o/internal/dto"
	"o2o/internal/inventory"
	"o2o/internal/order/controller"
)

type stubLookup struct{}

func (stubLookup) LookupStock(ctx context.Context, req inventory.StockLookupRequest) (*inventory.StockLookupResponse, error) {
	return &inventory.StockLookupResponse{}, nil
}

type stubOrders struct {
	controller.OrderService
}

func (stubOrders) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return &domain.Order{ID: orderID}, nil
}

func (stubOrders) GetOrders(ctx context.Context, filter dto.OrderFilter, page dto.Pagination) (*dto.OrderPage, error) {
	return &dto.OrderPage{Orders: []domain.Order{}}, nil
}

func newTestRouter() http.Handler {
	logger := zap.NewNop()
	return NewRouter(
		controller.NewOrderController(stubOrders{}, nil, logger),
		inventory.NewController(stubLookup{}, logger),
		logger,
	)
}

func TestRouter_Routes(t *testing.T) {
	h := newTestRouter()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/v1/orders/ord-1", http.StatusOK},
		{http.MethodGet, "/api/v1/orders", http.StatusOK},
		{http.MethodGet, "/orders/ord-1", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/orders/ord-1", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
