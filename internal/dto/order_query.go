package dto

import (
	"time"

	"o2o/internal/domain"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type OrderFilter struct {
	Statuses         []domain.OrderStatus `json:"statuses,omitempty"`
	Sources          []domain.OrderSource `json:"sources,omitempty"`
	CustomerID       string               `json:"customerId,omitempty"`
	DeliveryDriverID string               `json:"deliveryDriverId,omitempty"`
	DateRange        *DateRange           `json:"dateRange,omitempty"`
	Search           string               `json:"search,omitempty"`
}

type Pagination struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	SortBy    string `json:"sortBy,omitempty"`
	SortOrder string `json:"sortOrder,omitempty"`
}

// Normalize clamps page and limit into range and defaults the sort.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.SortBy == "" {
		p.SortBy = "createdAt"
	}
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

type OrderPage struct {
	Orders     []domain.Order `json:"orders"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}
