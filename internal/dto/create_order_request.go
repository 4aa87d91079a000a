package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"o2o/internal/domain"
)

type CreateOrderRequest struct {
	Source               domain.OrderSource   `json:"source"`
	Customer             *domain.Customer     `json:"customer"`
	Items                []CreateOrderItem    `json:"items"`
	DeliveryInfo         *domain.DeliveryInfo `json:"deliveryInfo"`
	PaymentMethod        domain.PaymentMethod `json:"paymentMethod"`
	CouponCode           string               `json:"couponCode,omitempty"`
	Notes                string               `json:"notes,omitempty"`
	ScheduledTime        *time.Time           `json:"scheduledTime,omitempty"`
	EstimatedPrepMinutes int                  `json:"estimatedPrepMinutes,omitempty"`
	ExternalRef          *domain.ExternalRef  `json:"externalRef,omitempty"`
}

type CreateOrderItem struct {
	DishID         string          `json:"dishId"`
	DishName       string          `json:"dishName,omitempty"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Customizations map[string]any  `json:"customizations,omitempty"`
}
