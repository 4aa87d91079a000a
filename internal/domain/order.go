package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderSource string

const (
	OrderSourceInStore OrderSource = "in_store"
	OrderSourceWeb     OrderSource = "web"
	OrderSourceMobile  OrderSource = "mobile"
	OrderSourceMeituan OrderSource = "meituan"
	OrderSourceEleme   OrderSource = "eleme"
)

type PaymentMethod string

const (
	PaymentMethodCash            PaymentMethod = "cash"
	PaymentMethodCard            PaymentMethod = "card"
	PaymentMethodWechatPay       PaymentMethod = "wechat_pay"
	PaymentMethodAlipay          PaymentMethod = "alipay"
	PaymentMethodPlatformPrepaid PaymentMethod = "platform_prepaid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type DeliveryType string

const (
	DeliveryTypePickup   DeliveryType = "pickup"
	DeliveryTypeDelivery DeliveryType = "delivery"
)

const DefaultEstimatedPrepMinutes = 15

type Customer struct {
	CustomerID string `json:"customerId,omitempty" yaml:"customerId"`
	Name       string `json:"name" yaml:"name"`
	Phone      string `json:"phone" yaml:"phone"`
	Email      string `json:"email,omitempty" yaml:"email"`
}

type DeliveryInfo struct {
	Type       DeliveryType `json:"type" yaml:"type"`
	Address    string       `json:"address,omitempty" yaml:"address"`
	DistanceKm float64      `json:"distanceKm,omitempty" yaml:"distanceKm"`
}

func (d DeliveryInfo) IsDelivery() bool {
	return d.Type == DeliveryTypeDelivery
}

type Amount struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// ExternalRef identifies an order mirrored from a third-party platform.
type ExternalRef struct {
	Platform   string `json:"platform"`
	ExternalID string `json:"externalId"`
}

type OrderItem struct {
	ID             string          `json:"id"`
	DishID         string          `json:"dishId"`
	DishName       string          `json:"dishName,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	Customizations map[string]any  `json:"customizations,omitempty"`
}

type Order struct {
	ID                   string        `json:"id"`
	OrderNumber          string        `json:"orderNumber"`
	Source               OrderSource   `json:"source"`
	ExternalRef          *ExternalRef  `json:"externalRef,omitempty"`
	Customer             Customer      `json:"customer"`
	Items                []OrderItem   `json:"items"`
	DeliveryInfo         DeliveryInfo  `json:"deliveryInfo"`
	DeliveryDriverID     string        `json:"deliveryDriverId,omitempty"`
	PaymentMethod        PaymentMethod `json:"paymentMethod"`
	PaymentStatus        PaymentStatus `json:"paymentStatus"`
	PaymentTransactionID string        `json:"paymentTransactionId,omitempty"`
	CouponCode           string        `json:"couponCode,omitempty"`
	Amount               Amount        `json:"amount"`
	Status               OrderStatus   `json:"status"`
	ScheduledTime        *time.Time    `json:"scheduledTime,omitempty"`
	EstimatedPrepMinutes int           `json:"estimatedPrepMinutes"`

	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	PreparationStartTime *time.Time `json:"preparationStartTime,omitempty"`
	ReadyTime            *time.Time `json:"readyTime,omitempty"`
	DeliveryStartTime    *time.Time `json:"deliveryStartTime,omitempty"`
	DeliveryTime         *time.Time `json:"deliveryTime,omitempty"`
	CancelledTime        *time.Time `json:"cancelledTime,omitempty"`

	Notes     []string `json:"notes,omitempty"`
	UpdatedBy string   `json:"updatedBy,omitempty"`
}

// AppendNote adds a timestamped annotation. Notes are never rewritten.
func (o *Order) AppendNote(at time.Time, note string) {
	if note == "" {
		return
	}
	o.Notes = append(o.Notes, fmt.Sprintf("[%s] %s", at.UTC().Format(time.RFC3339), note))
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.ExternalRef != nil {
		ref := *o.ExternalRef
		c.ExternalRef = &ref
	}
	c.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		c.Items[i] = item
		if item.Customizations != nil {
			c.Items[i].Customizations = make(map[string]any, len(item.Customizations))
			for k, v := range item.Customizations {
				c.Items[i].Customizations[k] = v
			}
		}
	}
	c.Notes = append([]string(nil), o.Notes...)
	c.ScheduledTime = cloneTime(o.ScheduledTime)
	c.PreparationStartTime = cloneTime(o.PreparationStartTime)
	c.ReadyTime = cloneTime(o.ReadyTime)
	c.DeliveryStartTime = cloneTime(o.DeliveryStartTime)
	c.DeliveryTime = cloneTime(o.DeliveryTime)
	c.CancelledTime = cloneTime(o.CancelledTime)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
