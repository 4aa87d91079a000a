package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"o2o/internal/domain"
	"o2o/internal/dto"
	"o2o/internal/errors"
	"o2o/internal/testutil"
)

// Unit Tests

func TestNewMySQLOrderRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLOrderRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestBuildOrderFilter(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	where, args := buildOrderFilter(dto.OrderFilter{
		Statuses:  []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusConfirmed},
		Sources:   []domain.OrderSource{domain.OrderSourceWeb},
		DateRange: &dto.DateRange{From: from, To: to},
		Search:    " O2O12 ",
	})

	assert.Equal(t,
		" WHERE status IN (?, ?) AND source IN (?) AND createdAt >= ? AND createdAt <= ?"+
			" AND (orderNumber LIKE ? OR customerName LIKE ? OR customerPhone LIKE ?)",
		where)
	assert.Len(t, args, 8)
	assert.Equal(t, "%O2O12%", args[5])
}

func TestBuildOrderFilter_Empty(t *testing.T) {
	where, args := buildOrderFilter(dto.OrderFilter{})

	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestSummarizeDeliveries(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []DeliveryRecord{
		// promised 12:45, delivered 12:40
		{DriverID: "d1", CreatedAt: base, StartedAt: base.Add(20 * time.Minute), DeliveredAt: base.Add(40 * time.Minute), PrepMinutes: 15},
		// promised 12:45, delivered 13:00
		{DriverID: "d1", CreatedAt: base, StartedAt: base.Add(30 * time.Minute), DeliveredAt: base.Add(60 * time.Minute), PrepMinutes: 15},
		{DriverID: "d2", CreatedAt: base, StartedAt: base.Add(15 * time.Minute), DeliveredAt: base.Add(25 * time.Minute), PrepMinutes: 15},
	}

	perf := SummarizeDeliveries(records)

	assert.InDelta(t, 20.0, perf.AverageDeliveryMinutes, 0.001)
	assert.InDelta(t, 2.0/3.0, perf.OnTimeRate, 0.001)
	assert.Equal(t, 0.5, perf.DriverEfficiency["d1"])
	assert.Equal(t, 1.0, perf.DriverEfficiency["d2"])
}

func TestSummarizeDeliveries_Empty(t *testing.T) {
	perf := SummarizeDeliveries(nil)

	assert.Zero(t, perf.AverageDeliveryMinutes)
	assert.NotNil(t, perf.DriverEfficiency)
}

// Integration Tests

func newTestOrder(number string, status domain.OrderStatus, createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID:          uuid.NewString(),
		OrderNumber: number,
		Source:      domain.OrderSourceWeb,
		Customer:    domain.Customer{CustomerID: "cust-1", Name: "Wang Fang", Phone: "13800000000"},
		Items: []domain.OrderItem{
			{ID: uuid.NewString(), DishID: "dish-a", DishName: "Dumplings", Quantity: 1,
				UnitPrice: decimal.NewFromInt(50), TotalPrice: decimal.NewFromInt(50),
				Customizations: map[string]any{"spicy": true}},
			{ID: uuid.NewString(), DishID: "dish-b", Quantity: 2,
				UnitPrice: decimal.NewFromInt(20), TotalPrice: decimal.NewFromInt(40)},
		},
		DeliveryInfo:  domain.DeliveryInfo{Type: domain.DeliveryTypePickup},
		PaymentMethod: domain.PaymentMethodCard,
		PaymentStatus: domain.PaymentStatusCompleted,
		Amount: domain.Amount{
			Subtotal: decimal.NewFromInt(90), Tax: decimal.NewFromInt(9),
			DeliveryFee: decimal.Zero, Discount: decimal.NewFromInt(9), Total: decimal.NewFromInt(90),
		},
		Status:               status,
		EstimatedPrepMinutes: 15,
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
		Notes:                []string{"[2026-03-01T12:00:00Z] no onions"},
	}
}

func TestOrderRepository_CreateAndFindByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	order := newTestOrder("O2O000001ABCD", domain.OrderStatusPending, time.Now().UTC().Truncate(time.Millisecond))

	require.NoError(t, repo.Create(context.Background(), order))

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, found.OrderNumber)
	assert.Equal(t, domain.OrderStatusPending, found.Status)
	assert.True(t, order.Amount.Total.Equal(found.Amount.Total))
	assert.Equal(t, order.Notes, found.Notes)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "dish-a", found.Items[0].DishID)
	assert.Equal(t, true, found.Items[0].Customizations["spicy"])
	assert.Nil(t, found.ExternalRef)
	assert.Nil(t, found.PreparationStartTime)
}

func TestOrderRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)

	order, err := repo.FindByID(context.Background(), "missing")
	assert.Error(t, err)
	assert.Nil(t, order)

	nfe, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.NotNil(t, nfe)
}

func TestOrderRepository_Create_DuplicateExternalRef(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	now := time.Now().UTC()

	first := newTestOrder("O2O000002ABCD", domain.OrderStatusPending, now)
	first.ExternalRef = &domain.ExternalRef{Platform: "meituan", ExternalID: "mt-1"}
	require.NoError(t, repo.Create(context.Background(), first))

	second := newTestOrder("O2O000003ABCD", domain.OrderStatusPending, now)
	second.ExternalRef = &domain.ExternalRef{Platform: "meituan", ExternalID: "mt-1"}
	err := repo.Create(context.Background(), second)

	_, ok := errors.IsConflictError(err)
	assert.True(t, ok)

	found, err := repo.FindByExternalRef(context.Background(), "meituan", "mt-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	missing, err := repo.FindByExternalRef(context.Background(), "eleme", "mt-1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepository_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	now := time.Now().UTC().Truncate(time.Millisecond)
	order := newTestOrder("O2O000004ABCD", domain.OrderStatusConfirmed, now)
	require.NoError(t, repo.Create(context.Background(), order))

	later := now.Add(time.Minute)
	order.ApplyStatus(domain.OrderStatusPreparing, "chef-1", later)
	order.AppendNote(later, "started")
	require.NoError(t, repo.Update(context.Background(), order))

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPreparing, found.Status)
	assert.Equal(t, "chef-1", found.UpdatedBy)
	require.NotNil(t, found.PreparationStartTime)
	assert.WithinDuration(t, later, *found.PreparationStartTime, time.Millisecond)
	assert.Len(t, found.Notes, 2)
}

func TestOrderRepository_Update_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)

	err := repo.Update(context.Background(), newTestOrder("O2O000005ABCD", domain.OrderStatusPending, time.Now()))

	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_FindWithFilterAndDelivering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)

	for i, status := range []domain.OrderStatus{
		domain.OrderStatusPending, domain.OrderStatusPending, domain.OrderStatusOutForDelivery,
	} {
		o := newTestOrder("O2O00001"+string(rune('0'+i))+"ABCD", status, base.Add(time.Duration(i)*time.Minute))
		if status == domain.OrderStatusOutForDelivery {
			o.DeliveryDriverID = "driver-7"
			o.DeliveryStartTime = &base
		}
		require.NoError(t, repo.Create(ctx, o))
	}

	orders, total, err := repo.FindWithFilter(ctx,
		dto.OrderFilter{Statuses: []domain.OrderStatus{domain.OrderStatusPending}},
		dto.Pagination{Page: 1, Limit: 1}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, orders, 1)
	assert.Equal(t, "O2O000011ABCD", orders[0].OrderNumber)
	assert.Len(t, orders[0].Items, 2)

	delivering, err := repo.FindDelivering(ctx, "driver-7")
	require.NoError(t, err)
	require.Len(t, delivering, 1)
	assert.Equal(t, domain.OrderStatusOutForDelivery, delivering[0].Status)

	none, err := repo.FindDelivering(ctx, "driver-0")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOrderRepository_Statistics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTestOrder("O2O000021ABCD", domain.OrderStatusCompleted, base)))
	require.NoError(t, repo.Create(ctx, newTestOrder("O2O000022ABCD", domain.OrderStatusPending, base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newTestOrder("O2O000023ABCD", domain.OrderStatusCancelled, base.Add(time.Hour))))

	stats, err := repo.Statistics(ctx, &dto.DateRange{From: base.Add(-time.Hour), To: base.Add(2 * time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalOrders)
	assert.True(t, decimal.NewFromInt(180).Equal(stats.TotalRevenue))
	assert.True(t, decimal.NewFromInt(90).Equal(stats.AverageOrderValue))
	assert.Equal(t, 1, stats.OrderStatusDistribution[domain.OrderStatusCancelled])
	assert.Equal(t, 3, stats.SourceDistribution[domain.OrderSourceWeb])
	require.NotEmpty(t, stats.PeakHours)
	assert.Equal(t, 12, stats.PeakHours[0].Hour)
	assert.Equal(t, 2, stats.PeakHours[0].OrderCount)
}
