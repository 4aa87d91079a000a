package inventory

import (
	"context"

	"o2o/internal/domain"
)

type stockService struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &stockService{repo: repo}
}

func (s *stockService) GetStockLevels(ctx context.Context, dishIDs []string) ([]domain.StockLevel, []string, error) {
	found, err := s.repo.FindByDishIDs(ctx, dishIDs)
	if err != nil {
		return nil, nil, err
	}

	foundSet := make(map[string]struct{}, len(found))
	for _, s := range found {
		foundSet[s.DishID] = struct{}{}
	}

	var notFoundIDs []string
	for _, id := range dishIDs {
		if _, ok := foundSet[id]; !ok {
			notFoundIDs = append(notFoundIDs, id)
		}
	}

	return found, notFoundIDs, nil
}
