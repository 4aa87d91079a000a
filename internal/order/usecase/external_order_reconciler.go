package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"o2o/internal/domain"
	"o2o/internal/dto"
)

// ExternalFeed lists orders a third-party platform still considers open.
type ExternalFeed interface {
	FetchPending(ctx context.Context) ([]domain.ExternalOrder, error)
}

type ExternalOrderFinder interface {
	FindByExternalRef(ctx context.Context, platform, externalID string) (*domain.Order, error)
}

type OrderSaga interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, target domain.OrderStatus, actor, note string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID, reason, actor string) (*dto.CancelResult, error)
}

// ExternalOrderReconciler mirrors platform orders locally. New orders go
// through the creation saga; known ones only follow legal status changes, so
// re-processing never charges or reserves twice. A platform cancellation runs
// the cancel saga so the charge and reservations are unwound.
type ExternalOrderReconciler struct {
	feed   ExternalFeed
	finder ExternalOrderFinder
	orders OrderSaga
	locker *OrderLocker
	logger *zap.Logger
}

func NewExternalOrderReconciler(feed ExternalFeed, finder ExternalOrderFinder, orders OrderSaga, logger *zap.Logger) *ExternalOrderReconciler {
	return &ExternalOrderReconciler{
		feed:   feed,
		finder: finder,
		orders: orders,
		locker: NewOrderLocker(),
		logger: logger,
	}
}

// Sync processes one feed snapshot. Failures are counted per order and never
// stop the rest of the batch.
func (r *ExternalOrderReconciler) Sync(ctx context.Context) (*dto.SyncResult, error) {
	pending, err := r.feed.FetchPending(ctx)
	if err != nil {
		r.logger.Error("fetching external orders failed", zap.Error(err))
		return nil, fmt.Errorf("fetching external orders: %w", err)
	}

	result := &dto.SyncResult{Errors: []string{}}
	for _, ext := range pending {
		if err := r.syncOne(ctx, ext); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", ext.Platform, ext.ExternalID, err))
			r.logger.Warn("external order sync failed",
				zap.String("platform", ext.Platform),
				zap.String("externalId", ext.ExternalID),
				zap.Error(err),
			)
			continue
		}
		result.Synced++
	}

	r.logger.Info("external order sync finished", zap.Int("synced", result.Synced), zap.Int("failed", result.Failed))
	return result, nil
}

// Run syncs every interval until ctx is done.
func (r *ExternalOrderReconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sync(ctx); err != nil {
				r.logger.Warn("scheduled external sync failed", zap.Error(err))
			}
		}
	}
}

func (r *ExternalOrderReconciler) syncOne(ctx context.Context, ext domain.ExternalOrder) error {
	if ext.Platform == "" || ext.ExternalID == "" {
		return fmt.Errorf("platform and externalId are required")
	}

	unlock := r.locker.Lock(ext.Platform + ":" + ext.ExternalID)
	defer unlock()

	existing, err := r.finder.FindByExternalRef(ctx, ext.Platform, ext.ExternalID)
	if err != nil {
		return err
	}

	if existing == nil {
		order, err := r.orders.CreateOrder(ctx, toCreateOrderRequest(ext))
		if err != nil {
			return err
		}
		r.logger.Info("external order imported", zap.String("platform", ext.Platform), zap.String("externalId", ext.ExternalID), zap.String("orderId", order.ID))
		return nil
	}

	return r.applyExternalStatus(ctx, existing, ext)
}

func (r *ExternalOrderReconciler) applyExternalStatus(ctx context.Context, existing *domain.Order, ext domain.ExternalOrder) error {
	target := domain.OrderStatus(strings.ToLower(strings.TrimSpace(ext.Status)))
	if target == "" || target == existing.Status || !target.IsValid() {
		return nil
	}

	if !domain.CanTransition(existing.Status, target) {
		r.logger.Debug("external status not reachable, skipped",
			zap.String("orderId", existing.ID),
			zap.String("localStatus", string(existing.Status)),
			zap.String("externalStatus", string(target)),
		)
		return nil
	}

	actor := "sync:" + ext.Platform
	if target == domain.OrderStatusCancelled {
		return r.cancel(ctx, existing, ext.Platform, actor)
	}

	_, err := r.orders.UpdateOrderStatus(ctx, existing.ID, target, actor, "Status synced from "+ext.Platform)
	return err
}

func (r *ExternalOrderReconciler) cancel(ctx context.Context, existing *domain.Order, platform, actor string) error {
	if !domain.CanCancel(existing.Status) {
		r.logger.Warn("external cancellation of an order in progress needs manual handling",
			zap.String("orderId", existing.ID),
			zap.String("platform", platform),
			zap.String("localStatus", string(existing.Status)),
		)
		return nil
	}

	result, err := r.orders.CancelOrder(ctx, existing.ID, "cancelled on "+platform, actor)
	if err != nil {
		return err
	}
	if len(result.CompensationFailures) > 0 {
		r.logger.Warn("external cancellation left compensations pending",
			zap.String("orderId", existing.ID),
			zap.Int("failures", len(result.CompensationFailures)),
		)
	}
	return nil
}

func toCreateOrderRequest(ext domain.ExternalOrder) dto.CreateOrderRequest {
	items := make([]dto.CreateOrderItem, len(ext.Items))
	for i, item := range ext.Items {
		items[i] = dto.CreateOrderItem{
			DishID:   item.DishID,
			Quantity: item.Quantity,
			Price:    decimal.NewFromFloat(item.Price),
		}
	}

	method := ext.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodPlatformPrepaid
	}

	customer := ext.Customer
	delivery := ext.DeliveryInfo
	if delivery.Type == "" {
		delivery.Type = domain.DeliveryTypeDelivery
	}

	return dto.CreateOrderRequest{
		Source:        PlatformSource(ext.Platform),
		Customer:      &customer,
		Items:         items,
		DeliveryInfo:  &delivery,
		PaymentMethod: method,
		Notes:         ext.Notes,
		ExternalRef:   &domain.ExternalRef{Platform: ext.Platform, ExternalID: ext.ExternalID},
	}
}
