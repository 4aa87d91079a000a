package dto

import "o2o/internal/domain"

type UpdateStatusRequest struct {
	Status    domain.OrderStatus `json:"status"`
	UpdatedBy string             `json:"updatedBy"`
	Note      string             `json:"note,omitempty"`
}

type CancelOrderRequest struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelledBy"`
}

type CompleteOrderRequest struct {
	CompletedBy string `json:"completedBy"`
}

type BatchStatusRequest struct {
	OrderIDs  []string           `json:"orderIds"`
	Status    domain.OrderStatus `json:"status"`
	UpdatedBy string             `json:"updatedBy"`
}

type CancelOrderResponse struct {
	Order                *domain.Order `json:"order"`
	CompensationFailures []string      `json:"compensationFailures"`
}
