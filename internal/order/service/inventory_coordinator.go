package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"o2o/internal/domain"
	"o2o/internal/dto"
	dtoerrors "o2o/internal/errors"
	"o2o/internal/infrastructure/idempotency"
)

// InventoryLedger is the stock system of record. Reserve, Release and
// ConfirmDeduction are keyed by orderItemID so the ledger can dedupe retries.
type InventoryLedger interface {
	CheckAvailability(ctx context.Context, dishID string, quantity int) (bool, error)
	Reserve(ctx context.Context, dishID string, quantity int, orderItemID string) error
	Release(ctx context.Context, dishID string, quantity int, orderItemID string) error
	ConfirmDeduction(ctx context.Context, dishID string, quantity int, orderItemID string) error
}

type InventoryCoordinator struct {
	ledger  InventoryLedger
	store   idempotency.Store
	timeout time.Duration
	logger  *zap.Logger
}

func NewInventoryCoordinator(
	ledger InventoryLedger,
	store idempotency.Store,
	timeout time.Duration,
	logger *zap.Logger,
) *InventoryCoordinator {
	return &InventoryCoordinator{
		ledger:  ledger,
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// CheckAvailability evaluates the request as one unit: quantities of lines
// sharing a dish are summed before asking the ledger.
func (c *InventoryCoordinator) CheckAvailability(ctx context.Context, items []dto.CreateOrderItem) error {
	requested := make(map[string]int)
	for _, item := range items {
		requested[item.DishID] += item.Quantity
	}

	dishIDs := make([]string, 0, len(requested))
	for dishID := range requested {
		dishIDs = append(dishIDs, dishID)
	}
	sort.Strings(dishIDs)

	var shortages []dtoerrors.ItemShortage
	for _, dishID := range dishIDs {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		ok, err := c.ledger.CheckAvailability(callCtx, dishID, requested[dishID])
		cancel()
		if err != nil {
			c.logger.Error("availability check failed", zap.String("dishId", dishID), zap.Error(err))
			return dtoerrors.NewInternalError("checking inventory availability", err)
		}
		if !ok {
			shortages = append(shortages, dtoerrors.ItemShortage{DishID: dishID, Requested: requested[dishID]})
		}
	}

	if len(shortages) > 0 {
		c.logger.Warn("inventory unavailable", zap.Int("shortageCount", len(shortages)))
		return dtoerrors.NewInventoryUnavailableError(shortages...)
	}
	return nil
}

// ItemReservationError identifies the first item whose reservation failed.
type ItemReservationError struct {
	Item  domain.OrderItem
	Cause error
}

func (e *ItemReservationError) Error() string {
	return fmt.Sprintf("reserving dish %s (item %s): %v", e.Item.DishID, e.Item.ID, e.Cause)
}

func (e *ItemReservationError) Unwrap() error {
	return e.Cause
}

// ReserveAll reserves every item concurrently and waits for all of them.
// It returns the items that did reserve, in input order, so the caller can
// release exactly those. The error is the first *ItemReservationError.
func (c *InventoryCoordinator) ReserveAll(ctx context.Context, orderID string, items []domain.OrderItem) ([]domain.OrderItem, error) {
	ok := make([]bool, len(items))
	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			if err := c.Reserve(ctx, orderID, item); err != nil {
				return &ItemReservationError{Item: item, Cause: err}
			}
			ok[i] = true
			return nil
		})
	}
	err := g.Wait()

	reserved := make([]domain.OrderItem, 0, len(items))
	for i, item := range items {
		if ok[i] {
			reserved = append(reserved, item)
		}
	}
	return reserved, err
}

// Reserve is a no-op when the item already has a reservation record.
func (c *InventoryCoordinator) Reserve(ctx context.Context, orderID string, item domain.OrderItem) error {
	key := idempotency.ReservationKey(orderID, item.ID)
	if state, found := c.lookup(ctx, key); found {
		c.logger.Debug("reservation already recorded", zap.String("orderId", orderID), zap.String("orderItemId", item.ID), zap.String("state", state))
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.ledger.Reserve(callCtx, item.DishID, item.Quantity, item.ID); err != nil {
		c.logger.Warn("reservation failed", zap.String("orderId", orderID), zap.String("dishId", item.DishID), zap.Int("quantity", item.Quantity), zap.Error(err))
		return err
	}

	c.record(ctx, key, domain.ReservationReserved)
	c.logger.Info("item reserved", zap.String("orderId", orderID), zap.String("dishId", item.DishID), zap.Int("quantity", item.Quantity))
	return nil
}

// Release undoes a reservation. Items never reserved, or already released
// or confirmed, are skipped.
func (c *InventoryCoordinator) Release(ctx context.Context, orderID string, item domain.OrderItem) error {
	key := idempotency.ReservationKey(orderID, item.ID)
	state, found := c.lookup(ctx, key)
	if found && domain.ReservationState(state) != domain.ReservationReserved {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.ledger.Release(callCtx, item.DishID, item.Quantity, item.ID); err != nil {
		c.logger.Error("release failed", zap.String("orderId", orderID), zap.String("dishId", item.DishID), zap.Error(err))
		return err
	}

	c.record(ctx, key, domain.ReservationReleased)
	c.logger.Info("reservation released", zap.String("orderId", orderID), zap.String("dishId", item.DishID), zap.Int("quantity", item.Quantity))
	return nil
}

// ReleaseAll releases every item and collects the failures.
func (c *InventoryCoordinator) ReleaseAll(ctx context.Context, orderID string, items []domain.OrderItem) []*dtoerrors.CompensationFailureError {
	var failures []*dtoerrors.CompensationFailureError
	for _, item := range items {
		if err := c.Release(ctx, orderID, item); err != nil {
			failures = append(failures, dtoerrors.NewCompensationFailureError(orderID, "release", item.ID, err))
		}
	}
	return failures
}

// ConfirmDeduction turns a reservation into a permanent stock deduction.
func (c *InventoryCoordinator) ConfirmDeduction(ctx context.Context, orderID string, item domain.OrderItem) error {
	key := idempotency.ReservationKey(orderID, item.ID)
	if state, found := c.lookup(ctx, key); found && domain.ReservationState(state) != domain.ReservationReserved {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.ledger.ConfirmDeduction(callCtx, item.DishID, item.Quantity, item.ID); err != nil {
		c.logger.Error("deduction confirm failed", zap.String("orderId", orderID), zap.String("dishId", item.DishID), zap.Error(err))
		return err
	}

	c.record(ctx, key, domain.ReservationConfirmed)
	return nil
}

func (c *InventoryCoordinator) ConfirmAll(ctx context.Context, orderID string, items []domain.OrderItem) []error {
	var errs []error
	for _, item := range items {
		if err := c.ConfirmDeduction(ctx, orderID, item); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// lookup treats an unreachable store as "no record": the ledger dedupes by
// orderItemID anyway.
func (c *InventoryCoordinator) lookup(ctx context.Context, key string) (string, bool) {
	value, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, found
}

func (c *InventoryCoordinator) record(ctx context.Context, key string, state domain.ReservationState) {
	if err := c.store.Set(ctx, key, string(state), idempotency.DefaultTTL); err != nil {
		c.logger.Warn("idempotency record failed", zap.String("key", key), zap.Error(err))
	}
}
