package inventory

import (
	"context"
)

type lookupUseCase struct {
	service Service
}

func NewLookupUseCase(service Service) LookupUseCase {
	return &lookupUseCase{service: service}
}

func (uc *lookupUseCase) LookupStock(ctx context.Context, req StockLookupRequest) (*StockLookupResponse, error) {
	found, notFoundIDs, err := uc.service.GetStockLevels(ctx, req.DishIDs)
	if err != nil {
		return nil, err
	}

	items := make([]StockLevelDTO, 0, len(found))
	for _, s := range found {
		items = append(items, StockLevelDTO{
			DishID:         s.DishID,
			Stock:          s.Stock,
			ReservedStock:  s.ReservedStock,
			AvailableStock: s.AvailableStock(),
			IsActive:       s.IsActive,
		})
	}

	if notFoundIDs == nil {
		notFoundIDs = []string{}
	}

	return &StockLookupResponse{
		Items:    items,
		NotFound: notFoundIDs,
	}, nil
}
