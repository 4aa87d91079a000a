package domain

import "time"

// ExternalOrder is an order as reported by a third-party delivery platform feed.
type ExternalOrder struct {
	Platform      string              `json:"platform" yaml:"platform"`
	ExternalID    string              `json:"externalId" yaml:"externalId"`
	Status        string              `json:"status" yaml:"status"`
	Customer      Customer            `json:"customer" yaml:"customer"`
	Items         []ExternalOrderItem `json:"items" yaml:"items"`
	DeliveryInfo  DeliveryInfo        `json:"deliveryInfo" yaml:"deliveryInfo"`
	PaymentMethod PaymentMethod       `json:"paymentMethod" yaml:"paymentMethod"`
	Notes         string              `json:"notes,omitempty" yaml:"notes"`
	PlacedAt      time.Time           `json:"placedAt" yaml:"placedAt"`
}

type ExternalOrderItem struct {
	DishID   string  `json:"dishId" yaml:"dishId"`
	Quantity int     `json:"quantity" yaml:"quantity"`
	Price    float64 `json:"price" yaml:"price"`
}
