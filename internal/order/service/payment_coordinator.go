package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"o2o/internal/domain"
	"o2o/internal/infrastructure/idempotency"
)

type PaymentGateway interface {
	Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeResult, error)
	Refund(ctx context.Context, req domain.RefundRequest) error
}

type PaymentCoordinator struct {
	gateway PaymentGateway
	store   idempotency.Store
	timeout time.Duration
	logger  *zap.Logger
}

func NewPaymentCoordinator(
	gateway PaymentGateway,
	store idempotency.Store,
	timeout time.Duration,
	logger *zap.Logger,
) *PaymentCoordinator {
	return &PaymentCoordinator{
		gateway: gateway,
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// Charge charges an order at most once. A repeated call for the same order
// returns the recorded approval without reaching the gateway. Transport
// errors come back as ChargeUnknown since the gateway may have committed.
func (c *PaymentCoordinator) Charge(ctx context.Context, req domain.ChargeRequest) domain.ChargeResult {
	key := idempotency.ChargeKey(req.OrderID)

	txID, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
	} else if found {
		c.logger.Info("charge already recorded", zap.String("orderId", req.OrderID), zap.String("transactionId", txID))
		return domain.ChargeApproved{TransactionID: txID}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.gateway.Charge(callCtx, req)
	if err != nil {
		c.logger.Error("payment gateway error, outcome unknown", zap.String("orderId", req.OrderID), zap.Error(err))
		return domain.ChargeUnknown{Message: err.Error()}
	}

	switch r := result.(type) {
	case domain.ChargeApproved:
		if err := c.store.Set(ctx, key, r.TransactionID, idempotency.DefaultTTL); err != nil {
			c.logger.Warn("idempotency record failed", zap.String("key", key), zap.Error(err))
		}
		c.logger.Info("payment approved", zap.String("orderId", req.OrderID), zap.String("transactionId", r.TransactionID), zap.String("amount", req.Amount.StringFixed(2)))
		return r
	case domain.ChargeDeclined:
		c.logger.Warn("payment declined", zap.String("orderId", req.OrderID), zap.String("reason", r.Message))
		return r
	default:
		return domain.ChargeDeclined{Message: "unrecognized gateway response"}
	}
}

func (c *PaymentCoordinator) Refund(ctx context.Context, req domain.RefundRequest) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.gateway.Refund(callCtx, req); err != nil {
		c.logger.Error("refund failed", zap.String("orderId", req.OrderID), zap.String("transactionId", req.OriginalTransactionID), zap.Error(err))
		return err
	}

	c.logger.Info("payment refunded", zap.String("orderId", req.OrderID), zap.String("transactionId", req.OriginalTransactionID), zap.String("reason", req.Reason))
	return nil
}
