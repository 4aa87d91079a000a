package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"o2o/internal/domain"
	dtoerrors "o2o/internal/errors"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// MySQLStockRepository is the inventory ledger. DishStock holds stock and
// reserved_stock per dish; InventoryReservations holds one row per order
// item so reserve/release/confirm are idempotent by orderItemID.
type MySQLStockRepository struct {
	db               *sql.DB
	maxRetryAttempts int
}

func NewMySQLStockRepository(db *sql.DB, maxRetryAttempts int) *MySQLStockRepository {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &MySQLStockRepository{db: db, maxRetryAttempts: maxRetryAttempts}
}

func (r *MySQLStockRepository) FindByDishIDs(ctx context.Context, dishIDs []string) ([]domain.StockLevel, error) {
	if len(dishIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(dishIDs))
	args := make([]interface{}, len(dishIDs))
	for i, id := range dishIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT dishId, stock, reserved_stock, isActive
		FROM DishStock
		WHERE dishId IN (%s)
		ORDER BY dishId`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stock levels: %w", err)
	}
	defer rows.Close()

	var levels []domain.StockLevel
	for rows.Next() {
		var s domain.StockLevel
		if err := rows.Scan(&s.DishID, &s.Stock, &s.ReservedStock, &s.IsActive); err != nil {
			return nil, fmt.Errorf("scanning stock row: %w", err)
		}
		levels = append(levels, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stock rows: %w", err)
	}

	return levels, nil
}

func (r *MySQLStockRepository) CheckAvailability(ctx context.Context, dishID string, quantity int) (bool, error) {
	var s domain.StockLevel
	err := r.db.QueryRowContext(ctx,
		`SELECT dishId, stock, reserved_stock, isActive FROM DishStock WHERE dishId = ?`, dishID,
	).Scan(&s.DishID, &s.Stock, &s.ReservedStock, &s.IsActive)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying stock for dish %s: %w", dishID, err)
	}
	return s.AvailableStock() >= quantity, nil
}

// Reserve holds quantity for orderItemID. A second call for the same item is a no-op.
func (r *MySQLStockRepository) Reserve(ctx context.Context, dishID string, quantity int, orderItemID string) error {
	return r.withRetry(ctx, func(tx *sql.Tx) error {
		level, err := r.findForUpdate(ctx, tx, dishID)
		if err != nil {
			return err
		}

		inserted, err := r.insertReservation(ctx, tx, orderItemID, dishID, quantity)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		if level.AvailableStock() < quantity {
			return fmt.Errorf("dish %s: %w", dishID, ErrInsufficientStock)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE DishStock SET reserved_stock = reserved_stock + ? WHERE dishId = ?`, quantity, dishID)
		if err != nil {
			return fmt.Errorf("incrementing reserved stock: %w", err)
		}
		return nil
	})
}

// Release frees a held reservation. Unknown or already settled items are no-ops.
func (r *MySQLStockRepository) Release(ctx context.Context, dishID string, quantity int, orderItemID string) error {
	return r.settle(ctx, orderItemID, domain.ReservationReleased,
		`UPDATE DishStock SET reserved_stock = GREATEST(reserved_stock - ?, 0) WHERE dishId = ?`)
}

// ConfirmDeduction turns a held reservation into a stock decrement.
func (r *MySQLStockRepository) ConfirmDeduction(ctx context.Context, dishID string, quantity int, orderItemID string) error {
	return r.settle(ctx, orderItemID, domain.ReservationConfirmed,
		`UPDATE DishStock SET stock = stock - ?, reserved_stock = GREATEST(reserved_stock - ?, 0) WHERE dishId = ?`)
}

func (r *MySQLStockRepository) settle(ctx context.Context, orderItemID string, to domain.ReservationState, stockUpdate string) error {
	return r.withRetry(ctx, func(tx *sql.Tx) error {
		var res domain.InventoryReservation
		err := tx.QueryRowContext(ctx, `
			SELECT orderItemId, dishId, quantity, state
			FROM InventoryReservations
			WHERE orderItemId = ?
			FOR UPDATE`, orderItemID,
		).Scan(&res.OrderItemID, &res.DishID, &res.Quantity, &res.State)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("locking reservation: %w", err)
		}
		if res.State != domain.ReservationReserved {
			return nil
		}

		args := []interface{}{res.Quantity, res.DishID}
		if to == domain.ReservationConfirmed {
			args = []interface{}{res.Quantity, res.Quantity, res.DishID}
		}
		if _, err := tx.ExecContext(ctx, stockUpdate, args...); err != nil {
			return fmt.Errorf("updating dish stock: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE InventoryReservations SET state = ? WHERE orderItemId = ?`, to, orderItemID)
		if err != nil {
			return fmt.Errorf("updating reservation state: %w", err)
		}
		return nil
	})
}

func (r *MySQLStockRepository) findForUpdate(ctx context.Context, tx *sql.Tx, dishID string) (*domain.StockLevel, error) {
	var s domain.StockLevel
	err := tx.QueryRowContext(ctx, `
		SELECT dishId, stock, reserved_stock, isActive
		FROM DishStock
		WHERE dishId = ?
		FOR UPDATE`, dishID,
	).Scan(&s.DishID, &s.Stock, &s.ReservedStock, &s.IsActive)
	if err == sql.ErrNoRows {
		return nil, dtoerrors.NewNotFoundError(fmt.Sprintf("dish %s not found", dishID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying dish stock for update: %w", err)
	}
	return &s, nil
}

func (r *MySQLStockRepository) insertReservation(ctx context.Context, tx *sql.Tx, orderItemID, dishID string, quantity int) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT IGNORE INTO InventoryReservations (orderItemId, dishId, quantity, state)
		VALUES (?, ?, ?, ?)`,
		orderItemID, dishID, quantity, domain.ReservationReserved,
	)
	if err != nil {
		return false, fmt.Errorf("inserting reservation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// withRetry runs fn in a REPEATABLE READ transaction and retries it on
// deadlock or lock wait timeout.
func (r *MySQLStockRepository) withRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	var err error
	for attempt := 1; attempt <= r.maxRetryAttempts; attempt++ {
		err = r.inTx(ctx, fn)
		if err == nil || !isDeadlockError(err) {
			return err
		}
		if attempt == r.maxRetryAttempts {
			break
		}

		base := backoffs[min(attempt, len(backoffs)-1)]
		jitter := time.Duration(float64(base) * (rand.Float64()*0.4 - 0.2))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(base + jitter):
		}
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}

func (r *MySQLStockRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	// MySQL ignores rollback after commit.
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
