package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"o2o/internal/domain"
)

const sampleFeed = `
orders:
  - platform: meituan
    externalId: mt-1001
    status: confirmed
    customer:
      name: Li Na
      phone: "13900000000"
    items:
      - dishId: dish-a
        quantity: 2
        price: 18.5
    deliveryInfo:
      type: delivery
      address: 88 Jianguo Rd
      distanceKm: 2.4
    paymentMethod: platform_prepaid
    placedAt: 2026-10-16T11:30:00Z
  - platform: eleme
    externalId: el-7
    status: pending
    customer:
      name: Wang Fang
      phone: "13700000000"
    items:
      - dishId: dish-b
        quantity: 1
        price: 20
`

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestYAMLFeed_FetchPending(t *testing.T) {
	f := NewYAMLFeed(writeFeed(t, sampleFeed))

	orders, err := f.FetchPending(context.Background())

	require.NoError(t, err)
	require.Len(t, orders, 2)

	mt := orders[0]
	assert.Equal(t, "meituan", mt.Platform)
	assert.Equal(t, "mt-1001", mt.ExternalID)
	assert.Equal(t, "13900000000", mt.Customer.Phone)
	assert.Equal(t, 18.5, mt.Items[0].Price)
	assert.Equal(t, domain.DeliveryTypeDelivery, mt.DeliveryInfo.Type)
	assert.Equal(t, 2.4, mt.DeliveryInfo.DistanceKm)
	assert.Equal(t, domain.PaymentMethodPlatformPrepaid, mt.PaymentMethod)
	assert.Equal(t, 11, mt.PlacedAt.Hour())
}

func TestYAMLFeed_FiltersPlatforms(t *testing.T) {
	f := NewYAMLFeed(writeFeed(t, sampleFeed), "Eleme")

	orders, err := f.FetchPending(context.Background())

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "el-7", orders[0].ExternalID)
}

func TestYAMLFeed_MissingFile(t *testing.T) {
	f := NewYAMLFeed(filepath.Join(t.TempDir(), "none.yaml"))

	_, err := f.FetchPending(context.Background())

	assert.Error(t, err)
}
