package domain

import "github.com/shopspring/decimal"

type ChargeRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Method   PaymentMethod
	Customer Customer
}

type RefundRequest struct {
	OrderID               string
	Amount                decimal.Decimal
	OriginalTransactionID string
	Reason                string
}

// ChargeResult is ChargeApproved, ChargeDeclined or ChargeUnknown.
type ChargeResult interface {
	isChargeResult()
}

type ChargeApproved struct {
	TransactionID string
}

type ChargeDeclined struct {
	Message string
}

// ChargeUnknown means the gateway call failed in transit. The charge may have
// been taken, so the caller has to reverse it by order reference.
type ChargeUnknown struct {
	Message string
}

func (ChargeApproved) isChargeResult() {}
func (ChargeDeclined) isChargeResult() {}
func (ChargeUnknown) isChargeResult() {}
