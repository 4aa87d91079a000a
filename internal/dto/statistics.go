package dto

import (
	"github.com/shopspring/decimal"

	"o2o/internal/domain"
)

type HourCount struct {
	Hour       int `json:"hour"`
	OrderCount int `json:"orderCount"`
}

type DeliveryPerformance struct {
	AverageDeliveryMinutes float64            `json:"averageDeliveryTime"`
	OnTimeRate             float64            `json:"onTimeRate"`
	DriverEfficiency       map[string]float64 `json:"driverEfficiency"`
}

type OrderStatistics struct {
	TotalOrders             int                        `json:"totalOrders"`
	TotalRevenue            decimal.Decimal            `json:"totalRevenue"`
	AverageOrderValue       decimal.Decimal            `json:"averageOrderValue"`
	OrderStatusDistribution map[domain.OrderStatus]int `json:"orderStatusDistribution"`
	SourceDistribution      map[domain.OrderSource]int `json:"sourceDistribution"`
	PeakHours               []HourCount                `json:"peakHours"`
	DeliveryPerformance     DeliveryPerformance        `json:"deliveryPerformance"`
}
