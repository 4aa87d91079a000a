package usecase

import (
	"fmt"
	"strings"
	"time"

	"o2o/internal/domain"
	"o2o/internal/dto"
	dtoerrors "o2o/internal/errors"
)

// maxSourceLength matches the orders.source column.
const maxSourceLength = 20

var (
	validSources = map[domain.OrderSource]bool{
		domain.OrderSourceInStore: true,
		domain.OrderSourceWeb:     true,
		domain.OrderSourceMobile:  true,
		domain.OrderSourceMeituan: true,
		domain.OrderSourceEleme:   true,
	}
	validPaymentMethods = map[domain.PaymentMethod]bool{
		domain.PaymentMethodCash:            true,
		domain.PaymentMethodCard:            true,
		domain.PaymentMethodWechatPay:       true,
		domain.PaymentMethodAlipay:          true,
		domain.PaymentMethodPlatformPrepaid: true,
	}
)

// validateCreateOrder collects every problem with req into one ValidationError.
func validateCreateOrder(req dto.CreateOrderRequest, now time.Time) error {
	var details []dtoerrors.ValidationDetail
	add := func(field, message string) {
		details = append(details, dtoerrors.ValidationDetail{Field: field, Message: message})
	}

	if !validSources[req.Source] && !isPlatformSource(req) {
		add("source", "source must be one of in_store, web, mobile, meituan, eleme or the external platform name")
	}

	if req.Customer == nil {
		add("customer", "customer is required")
	} else {
		if strings.TrimSpace(req.Customer.Name) == "" {
			add("customer.name", "customer name is required")
		}
		if strings.TrimSpace(req.Customer.Phone) == "" {
			add("customer.phone", "customer phone is required")
		}
	}

	if len(req.Items) == 0 {
		add("items", "at least one item is required")
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.DishID) == "" {
			add(fmt.Sprintf("items[%d].dishId", i), "dishId is required")
		}
		if item.Quantity <= 0 {
			add(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive")
		}
		if item.Price.IsNegative() {
			add(fmt.Sprintf("items[%d].price", i), "price must be non-negative")
		}
	}

	if req.DeliveryInfo == nil {
		add("deliveryInfo", "deliveryInfo is required")
	} else {
		switch req.DeliveryInfo.Type {
		case domain.DeliveryTypePickup:
		case domain.DeliveryTypeDelivery:
			if strings.TrimSpace(req.DeliveryInfo.Address) == "" {
				add("deliveryInfo.address", "address is required for delivery orders")
			}
			if req.DeliveryInfo.DistanceKm < 0 {
				add("deliveryInfo.distanceKm", "distance must be non-negative")
			}
		default:
			add("deliveryInfo.type", "type must be pickup or delivery")
		}
	}

	if req.PaymentMethod == "" {
		add("paymentMethod", "paymentMethod is required")
	} else if !validPaymentMethods[req.PaymentMethod] {
		add("paymentMethod", "unsupported payment method")
	}

	if req.ScheduledTime != nil && !req.ScheduledTime.After(now) {
		add("scheduledTime", "scheduledTime must be in the future")
	}

	if req.EstimatedPrepMinutes < 0 {
		add("estimatedPrepMinutes", "estimatedPrepMinutes must be non-negative")
	}

	if len(details) > 0 {
		return dtoerrors.NewValidationError("validation failed", details...)
	}
	return nil
}

// isPlatformSource accepts an imported order whose source is the name of the
// platform it came from.
func isPlatformSource(req dto.CreateOrderRequest) bool {
	if req.ExternalRef == nil || req.Source == "" || len(req.Source) > maxSourceLength {
		return false
	}
	return req.Source == PlatformSource(req.ExternalRef.Platform)
}

// PlatformSource is the order source recorded for a third-party platform.
func PlatformSource(platform string) domain.OrderSource {
	return domain.OrderSource(strings.ToLower(strings.TrimSpace(platform)))
}
