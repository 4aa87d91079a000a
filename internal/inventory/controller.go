package inventory

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "o2o/internal/errors"
)

const maxLookupDishes = 100

type Controller struct {
	useCase LookupUseCase
	logger  *zap.Logger
}

func NewController(useCase LookupUseCase, logger *zap.Logger) *Controller {
	return &Controller{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *Controller) HandleLookupStock(w http.ResponseWriter, r *http.Request) {
	var req StockLookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := c.validateLookupRequest(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	resp, err := c.useCase.LookupStock(r.Context(), req)
	if err != nil {
		c.logger.Error("stock lookup failed", zap.Error(err))
		c.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "INTERNAL_ERROR",
			"message": "an unexpected error occurred",
		})
		return
	}

	c.writeJSON(w, http.StatusOK, resp)
}

func (c *Controller) validateLookupRequest(req StockLookupRequest) error {
	if len(req.DishIDs) == 0 {
		return apperrors.NewValidationError("dishIds is required", apperrors.ValidationDetail{
			Field:   "dishIds",
			Message: "dishIds must not be empty",
		})
	}

	if len(req.DishIDs) > maxLookupDishes {
		msg := "dishIds exceeds maximum of 100"
		return apperrors.NewValidationError(msg, apperrors.ValidationDetail{
			Field:   "dishIds",
			Message: msg,
		})
	}

	for _, id := range req.DishIDs {
		if strings.TrimSpace(id) == "" {
			msg := "each dishId must be non-empty"
			return apperrors.NewValidationError(msg, apperrors.ValidationDetail{
				Field:   "dishIds",
				Message: msg,
			})
		}
	}

	return nil
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *Controller) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
