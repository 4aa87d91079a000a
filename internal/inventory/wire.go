package inventory

import (
	"database/sql"

	"go.uber.org/zap"

	"o2o/internal/inventory/repository"
)

type Module struct {
	Controller *Controller
	// Ledger backs order reservations.
	Ledger *repository.MySQLStockRepository
}

func NewModule(db *sql.DB, maxRetryAttempts int, logger *zap.Logger) *Module {
	repo := repository.NewMySQLStockRepository(db, maxRetryAttempts)
	svc := NewService(repo)
	uc := NewLookupUseCase(svc)
	return &Module{
		Controller: NewController(uc, logger),
		Ledger:     repo,
	}
}
