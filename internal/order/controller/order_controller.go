package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"o2o/internal/domain"
	"o2o/internal/dto"
	apperrors "o2o/internal/errors"
)

const maxBatchOrders = 100

type OrderService interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, target domain.OrderStatus, actor, note string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID, reason, actor string) (*dto.CancelResult, error)
	CompleteOrder(ctx context.Context, orderID, actor string) (*domain.Order, error)
	BatchUpdateOrderStatus(ctx context.Context, orderIDs []string, target domain.OrderStatus, actor string) dto.BatchUpdateResult
	GetOrders(ctx context.Context, filter dto.OrderFilter, page dto.Pagination) (*dto.OrderPage, error)
	GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderStatistics(ctx context.Context, dateRange *dto.DateRange) (*dto.OrderStatistics, error)
	GetDeliveringOrders(ctx context.Context, driverID string) ([]domain.Order, error)
}

type ExternalSyncer interface {
	Sync(ctx context.Context) (*dto.SyncResult, error)
}

type OrderController struct {
	orders OrderService
	syncer ExternalSyncer
	logger *zap.Logger
}

func NewOrderController(orders OrderService, syncer ExternalSyncer, logger *zap.Logger) *OrderController {
	return &OrderController{
		orders: orders,
		syncer: syncer,
		logger: logger,
	}
}

// Routes mounts the order endpoints on r.
func (c *OrderController) Routes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", c.CreateOrder)
		r.Get("/", c.GetOrders)
		r.Get("/statistics", c.GetStatistics)
		r.Get("/delivering", c.GetDeliveringOrders)
		r.Post("/batch-status", c.BatchUpdateStatus)
		r.Post("/sync-external", c.SyncExternalOrders)
		r.Get("/{orderId}", c.GetOrderByID)
		r.Patch("/{orderId}/status", c.UpdateStatus)
		r.Post("/{orderId}/cancel", c.CancelOrder)
		r.Post("/{orderId}/complete", c.CompleteOrder)
	})
}

func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace()

	var req dto.CreateOrderRequest
	if !c.decode(w, r, traceID, &req) {
		return
	}

	order, err := c.orders.CreateOrder(r.Context(), req)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	logger.Info("order created", zap.String("orderId", order.ID))
	c.writeJSON(w, http.StatusCreated, order)
}

func (c *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace()

	filter, page, err := parseOrderQuery(r)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	result, err := c.orders.GetOrders(r.Context(), filter, page)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}
	c.writeJSON(w, http.StatusOK, result)
}

func (c *OrderController) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace()

	order, err := c.orders.GetOrderByID(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}
	c.writeJSON(w, http.StatusOK, order)
}

func (c *OrderController) GetStatistics(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace()

	dateRange, err := parseDateRange(r)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	stats, err := c.orders.GetOrderStatistics(r.Context(), dateRange)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}
	c.writeJSON(w, http.StatusOK, stats)
}

func (c *OrderController) GetDeliveringOrders(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace()

	orders, err := c.orders.GetDeliveringOrders(r.Context(), r.URL.Query().Get("driverId"))
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}
	c.writeJSON(w, http.StatusOK, orders)
}

func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace()

	var req dto.UpdateStatusRequest
	if !c.decode(w, r, traceID, &req) {
		return
	}

	var details []apperrors.ValidationDetail
	if !req.Status.IsValid() {
		details = append(details, apperrors.ValidationDetail{Field: "status", Message: "status is not a known order status"})
	}
	if strings.TrimSpace(req.UpdatedBy) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "updatedBy", Message: "updatedBy is required"})
	}
	if len(details) > 0 {
		c.handleError(w, traceID, apperrors.NewValidationError("validation failed", details...), logger)
		return
	}

	order, err := c.orders.UpdateOrderStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status, req.UpdatedBy, req.Note)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}
	c.writeJSON(w, http.StatusOK, order)
}

func (c *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace()

	var req dto.CancelOrderRequest
	if !c.decode(w, r, traceID, &req) {
		return
	}

	var details []apperrors.ValidationDetail
	if strings.TrimSpace(req.Reason) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "reason", Message: "reason is required"})
	}
	if strings.TrimSpace(req.CancelledBy) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "cancelledBy", Message: "cancelledBy is required"})
	}
	if len(details) > 0 {
		c.handleError(w, traceID, apperrors.NewValidationError("validation failed", details...), logger)
		return
	}

	result, err := c.orders.CancelOrder(r.Context(), chi.URLParam(r, "orderId"), req.Reason, req.CancelledBy)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.CancelOrderResponse{
		Order:                result.Order,
		CompensationFailures: result.FailureMessages(),
	})
}

func (c *OrderController) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace()

	var req dto.CompleteOrderRequest
	if !c.decode(w, r, traceID, &req) {
		return
	}
	if strings.TrimSpace(req.CompletedBy) == "" {
		c.handleError(w, traceID, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "completedBy",
			Message: "completedBy is required",
		}), logger)
		return
	}

	order, err := c.orders.CompleteOrder(r.Context(), chi.URLParam(r, "orderId"), req.CompletedBy)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}
	c.writeJSON(w, http.StatusOK, order)
}

func (c *OrderController) BatchUpdateStatus(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace()

	var req dto.BatchStatusRequest
	if !c.decode(w, r, traceID, &req) {
		return
	}

	var details []apperrors.ValidationDetail
	if len(req.OrderIDs) == 0 {
		details = append(details, apperrors.ValidationDetail{Field: "orderIds", Message: "orderIds must not be empty"})
	}
	if len(req.OrderIDs) > maxBatchOrders {
		details = append(details, apperrors.ValidationDetail{Field: "orderIds", Message: "orderIds exceeds maximum of 100"})
	}
	if !req.Status.IsValid() {
		details = append(details, apperrors.ValidationDetail{Field: "status", Message: "status is not a known order status"})
	}
	if strings.TrimSpace(req.UpdatedBy) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "updatedBy", Message: "updatedBy is required"})
	}
	if len(details) > 0 {
		c.handleError(w, traceID, apperrors.NewValidationError("validation failed", details...), logger)
		return
	}

	c.writeJSON(w, http.StatusOK, c.orders.BatchUpdateOrderStatus(r.Context(), req.OrderIDs, req.Status, req.UpdatedBy))
}

func (c *OrderController) SyncExternalOrders(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace()

	result, err := c.syncer.Sync(r.Context())
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}
	c.writeJSON(w, http.StatusOK, result)
}

func (c *OrderController) trace() (string, *zap.Logger) {
	traceID := uuid.New().String()
	return traceID, c.logger.With(zap.String("traceId", traceID))
}

func (c *OrderController) decode(w http.ResponseWriter, r *http.Request, traceID string, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		c.writeError(w, traceID, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", []apperrors.ValidationDetail{{
			Field:   "body",
			Message: "request body must be valid JSON",
		}})
		return false
	}
	return true
}

func parseOrderQuery(r *http.Request) (dto.OrderFilter, dto.Pagination, error) {
	q := r.URL.Query()
	var details []apperrors.ValidationDetail

	filter := dto.OrderFilter{
		CustomerID:       q.Get("customerId"),
		DeliveryDriverID: q.Get("driverId"),
		Search:           q.Get("search"),
	}
	for _, s := range splitQuery(q.Get("status")) {
		status := domain.OrderStatus(s)
		if !status.IsValid() {
			details = append(details, apperrors.ValidationDetail{Field: "status", Message: "unknown status " + s})
			continue
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, s := range splitQuery(q.Get("source")) {
		filter.Sources = append(filter.Sources, domain.OrderSource(s))
	}

	dateRange, err := parseDateRange(r)
	if ve, ok := apperrors.IsValidationError(err); ok {
		details = append(details, ve.Details...)
	}
	filter.DateRange = dateRange

	page := dto.Pagination{
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	for field, dst := range map[string]*int{"page": &page.Page, "limit": &page.Limit} {
		raw := q.Get(field)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			details = append(details, apperrors.ValidationDetail{Field: field, Message: field + " must be a positive integer"})
			continue
		}
		*dst = n
	}

	if len(details) > 0 {
		return filter, page, apperrors.NewValidationError("invalid query", details...)
	}
	return filter, page, nil
}

// parseDateRange reads RFC3339 from/to. A missing bound leaves the range open.
func parseDateRange(r *http.Request) (*dto.DateRange, error) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" && to == "" {
		return nil, nil
	}

	var details []apperrors.ValidationDetail
	dateRange := &dto.DateRange{To: time.Now().UTC()}
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			details = append(details, apperrors.ValidationDetail{Field: "from", Message: "from must be RFC3339"})
		}
		dateRange.From = t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			details = append(details, apperrors.ValidationDetail{Field: "to", Message: "to must be RFC3339"})
		}
		dateRange.To = t
	}
	if len(details) == 0 && dateRange.To.Before(dateRange.From) {
		details = append(details, apperrors.ValidationDetail{Field: "to", Message: "to must not be before from"})
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid date range", details...)
	}
	return dateRange, nil
}

func splitQuery(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
