// Package idempotency records the outcome of side effects that must happen
// at most once, keyed by a caller-chosen idempotency key.
package idempotency

import (
	"context"
	"time"
)

// DefaultTTL keeps records long enough to cover an order's whole lifecycle.
const DefaultTTL = 7 * 24 * time.Hour

type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

func ChargeKey(orderID string) string {
	return "charge:" + orderID
}

func ReservationKey(orderID, orderItemID string) string {
	return "reservation:" + orderID + ":" + orderItemID
}
