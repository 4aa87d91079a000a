package inventory

import (
	"context"

	"o2o/internal/domain"
)

type LookupUseCase interface {
	LookupStock(ctx context.Context, req StockLookupRequest) (*StockLookupResponse, error)
}

type Service interface {
	GetStockLevels(ctx context.Context, dishIDs []string) (found []domain.StockLevel, notFoundIDs []string, err error)
}

type Repository interface {
	FindByDishIDs(ctx context.Context, dishIDs []string) ([]domain.StockLevel, error)
}
