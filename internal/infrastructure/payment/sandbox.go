// Package payment holds the payment gateway adapters.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"o2o/internal/domain"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type transaction struct {
	orderID  string
	amount   decimal.Decimal
	refunded bool
}

// SandboxGateway settles charges in memory. Charges above the limit are
// declined, which is how staging exercises the decline path.
type SandboxGateway struct {
	mu           sync.Mutex
	limit        decimal.Decimal
	transactions map[string]*transaction
	logger       *zap.Logger
}

func NewSandboxGateway(limit decimal.Decimal, logger *zap.Logger) *SandboxGateway {
	return &SandboxGateway{
		limit:        limit,
		transactions: make(map[string]*transaction),
		logger:       logger,
	}
}

func (g *SandboxGateway) Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !req.Amount.IsPositive() && req.Method != domain.PaymentMethodCash {
		return domain.ChargeDeclined{Message: "amount must be positive"}, nil
	}
	if g.limit.IsPositive() && req.Amount.GreaterThan(g.limit) {
		g.logger.Info("sandbox charge declined", zap.String("orderId", req.OrderID), zap.String("amount", req.Amount.StringFixed(2)))
		return domain.ChargeDeclined{Message: fmt.Sprintf("amount %s exceeds limit %s", req.Amount.StringFixed(2), g.limit.StringFixed(2))}, nil
	}

	txnID := "sbx_" + uuid.NewString()
	g.transactions[txnID] = &transaction{orderID: req.OrderID, amount: req.Amount}
	g.logger.Info("sandbox charge approved",
		zap.String("orderId", req.OrderID),
		zap.String("transactionId", txnID),
		zap.String("method", string(req.Method)),
	)
	return domain.ChargeApproved{TransactionID: txnID}, nil
}

// Refund is idempotent per transaction. Without a transaction id the charge
// is looked up by order, which is how an unknown charge outcome is reversed.
func (g *SandboxGateway) Refund(ctx context.Context, req domain.RefundRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	txnID := req.OriginalTransactionID
	if txnID == "" {
		txnID = g.transactionForOrder(req.OrderID)
	}

	txn, ok := g.transactions[txnID]
	if !ok || txn.orderID != req.OrderID {
		return fmt.Errorf("refunding %s for order %s: %w", txnID, req.OrderID, ErrTransactionNotFound)
	}
	if req.Amount.GreaterThan(txn.amount) {
		return fmt.Errorf("refund %s exceeds charged amount %s", req.Amount.StringFixed(2), txn.amount.StringFixed(2))
	}
	if txn.refunded {
		return nil
	}

	txn.refunded = true
	g.logger.Info("sandbox refund settled",
		zap.String("orderId", req.OrderID),
		zap.String("transactionId", txnID),
		zap.String("reason", req.Reason),
	)
	return nil
}

func (g *SandboxGateway) transactionForOrder(orderID string) string {
	for id, txn := range g.transactions {
		if txn.orderID == orderID {
			return id
		}
	}
	return ""
}
