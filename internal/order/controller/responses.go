package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "o2o/internal/errors"
)

type errorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	OrderID   string    `json:"orderId,omitempty"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *OrderController) handleError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeError(w, traceID, http.StatusBadRequest, "VALIDATION_ERROR", ve.Message, ve.Details)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeError(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		return
	}

	if ite, ok := apperrors.IsInvalidTransitionError(err); ok {
		c.writeOrderError(w, traceID, ite.OrderID, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeError(w, traceID, http.StatusConflict, "CONFLICT", err.Error(), nil)
		return
	}

	if iue, ok := apperrors.IsInventoryUnavailableError(err); ok {
		c.writeError(w, traceID, http.StatusConflict, "INVENTORY_UNAVAILABLE", err.Error(), iue.Items)
		return
	}

	if pfe, ok := apperrors.IsPaymentFailedError(err); ok {
		c.writeOrderError(w, traceID, pfe.OrderID, http.StatusPaymentRequired, "PAYMENT_FAILED", err.Error(), nil)
		return
	}

	if pfe, ok := apperrors.IsPersistenceFailureError(err); ok {
		logger.Error("order not persisted", zap.String("orderId", pfe.OrderID), zap.Error(err), zap.Int("compensationFailures", len(pfe.Compensations)))
		c.writeOrderError(w, traceID, pfe.OrderID, http.StatusInternalServerError, "PERSISTENCE_FAILURE", "order could not be saved; payment was refunded", compensationMessages(pfe.Compensations))
		return
	}

	if rfe, ok := apperrors.IsReservationFailureError(err); ok {
		logger.Error("order aborted", zap.String("orderId", rfe.OrderID), zap.String("dishId", rfe.DishID), zap.Error(err))
		c.writeOrderError(w, traceID, rfe.OrderID, http.StatusInternalServerError, "RESERVATION_FAILURE", err.Error(), compensationMessages(rfe.Compensations))
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeError(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred", nil)
}

func compensationMessages(failures []*apperrors.CompensationFailureError) []string {
	if len(failures) == 0 {
		return nil
	}
	msgs := make([]string, len(failures))
	for i, f := range failures {
		msgs[i] = f.Error()
	}
	return msgs
}

func (c *OrderController) writeError(w http.ResponseWriter, traceID string, status int, code, message string, details any) {
	c.writeOrderError(w, traceID, "", status, code, message, details)
}

func (c *OrderController) writeOrderError(w http.ResponseWriter, traceID, orderID string, status int, code, message string, details any) {
	c.writeJSON(w, status, errorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   message,
		OrderID:   orderID,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
