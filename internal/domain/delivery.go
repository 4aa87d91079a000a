package domain

type DeliveryTask struct {
	OrderID          string   `json:"orderId"`
	OrderNumber      string   `json:"orderNumber"`
	PickupAddress    string   `json:"pickupAddress"`
	DeliveryAddress  string   `json:"deliveryAddress"`
	Customer         Customer `json:"customer"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
}
