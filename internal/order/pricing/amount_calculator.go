// Package pricing computes order amounts. It performs no I/O.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"o2o/internal/domain"
	"o2o/internal/dto"
)

// Coupon grants Percent of the subtotal off, capped at Cap when Cap is positive.
type Coupon struct {
	Percent decimal.Decimal
	Cap     decimal.Decimal
}

type Rules struct {
	TaxRate          decimal.Decimal
	DeliveryBaseFee  decimal.Decimal
	DeliveryFeePerKm decimal.Decimal
	Coupons          map[string]Coupon
}

func DefaultRules() Rules {
	return Rules{
		TaxRate:          decimal.NewFromFloat(0.1),
		DeliveryBaseFee:  decimal.NewFromInt(5),
		DeliveryFeePerKm: decimal.NewFromInt(2),
		Coupons: map[string]Coupon{
			"SAVE10": {Percent: decimal.NewFromInt(10), Cap: decimal.NewFromInt(10)},
		},
	}
}

type AmountCalculator struct {
	rules Rules
}

func NewAmountCalculator(rules Rules) *AmountCalculator {
	return &AmountCalculator{rules: rules}
}

// Calculate returns the order amount. Total is clamped at zero.
func (c *AmountCalculator) Calculate(items []dto.CreateOrderItem, delivery domain.DeliveryInfo, couponCode string) domain.Amount {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(LineTotal(item.Price, item.Quantity))
	}

	tax := subtotal.Mul(c.rules.TaxRate).Round(2)
	deliveryFee := c.DeliveryFee(delivery)
	discount := c.Discount(couponCode, subtotal)

	total := subtotal.Add(tax).Add(deliveryFee).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return domain.Amount{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: deliveryFee,
		Discount:    discount,
		Total:       total,
	}
}

func (c *AmountCalculator) DeliveryFee(delivery domain.DeliveryInfo) decimal.Decimal {
	if !delivery.IsDelivery() {
		return decimal.Zero
	}
	distanceFee := decimal.Zero
	if delivery.DistanceKm > 0 {
		distanceFee = decimal.NewFromFloat(delivery.DistanceKm).Mul(c.rules.DeliveryFeePerKm)
	}
	return c.rules.DeliveryBaseFee.Add(distanceFee).Round(2)
}

// Discount returns zero for unknown or empty coupon codes.
func (c *AmountCalculator) Discount(couponCode string, subtotal decimal.Decimal) decimal.Decimal {
	code := strings.ToUpper(strings.TrimSpace(couponCode))
	if code == "" {
		return decimal.Zero
	}
	coupon, ok := c.rules.Coupons[code]
	if !ok {
		return decimal.Zero
	}
	discount := subtotal.Mul(coupon.Percent).Div(decimal.NewFromInt(100)).Round(2)
	if coupon.Cap.IsPositive() && discount.GreaterThan(coupon.Cap) {
		discount = coupon.Cap
	}
	return discount
}

func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
