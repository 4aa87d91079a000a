package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"o2o/internal/domain"
	"o2o/internal/dto"
	dtoerrors "o2o/internal/errors"
)

const mysqlDuplicateEntry = 1062

const orderColumns = `
	id, orderNumber, source, externalPlatform, externalId,
	customerId, customerName, customerPhone, customerEmail,
	deliveryType, deliveryAddress, deliveryDistanceKm, deliveryDriverId,
	paymentMethod, paymentStatus, paymentTransactionId, couponCode,
	subtotal, tax, deliveryFee, discount, total,
	status, scheduledTime, estimatedPrepMinutes,
	createdAt, updatedAt, preparationStartTime, readyTime,
	deliveryStartTime, deliveryTime, cancelledTime,
	notes, updatedBy`

// sortColumns whitelists the sortBy values accepted by FindWithFilter.
var sortColumns = map[string]string{
	"createdAt":   "createdAt",
	"updatedAt":   "updatedAt",
	"total":       "total",
	"status":      "status",
	"orderNumber": "orderNumber",
}

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

// Create inserts the order and its items in one transaction.
func (r *MySQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	notes, err := json.Marshal(order.Notes)
	if err != nil {
		return fmt.Errorf("encoding order notes: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	platform, externalID := externalRefArgs(order.ExternalRef)

	_, err = tx.ExecContext(ctx, `INSERT INTO Orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.OrderNumber, order.Source, platform, externalID,
		order.Customer.CustomerID, order.Customer.Name, order.Customer.Phone, order.Customer.Email,
		order.DeliveryInfo.Type, order.DeliveryInfo.Address, order.DeliveryInfo.DistanceKm, order.DeliveryDriverID,
		order.PaymentMethod, order.PaymentStatus, order.PaymentTransactionID, order.CouponCode,
		order.Amount.Subtotal, order.Amount.Tax, order.Amount.DeliveryFee, order.Amount.Discount, order.Amount.Total,
		order.Status, order.ScheduledTime, order.EstimatedPrepMinutes,
		order.CreatedAt, order.UpdatedAt, order.PreparationStartTime, order.ReadyTime,
		order.DeliveryStartTime, order.DeliveryTime, order.CancelledTime,
		notes, order.UpdatedBy,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return dtoerrors.NewConflictError(fmt.Sprintf("order %s already exists", order.ID))
		}
		return fmt.Errorf("inserting order: %w", err)
	}

	for i, item := range order.Items {
		customizations, err := json.Marshal(item.Customizations)
		if err != nil {
			return fmt.Errorf("encoding item customizations: %w", err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO OrderItems
			(id, orderId, position, dishId, dishName, quantity, unitPrice, totalPrice, customizations)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, order.ID, i, item.DishID, item.DishName, item.Quantity,
			item.UnitPrice, item.TotalPrice, customizations,
		)
		if err != nil {
			return fmt.Errorf("inserting order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing order: %w", err)
	}
	return nil
}

// Update rewrites the mutable order columns. Items are immutable after creation.
func (r *MySQLOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	notes, err := json.Marshal(order.Notes)
	if err != nil {
		return fmt.Errorf("encoding order notes: %w", err)
	}

	query := `
		UPDATE Orders SET
			status = ?, paymentStatus = ?, paymentTransactionId = ?, deliveryDriverId = ?,
			updatedAt = ?, preparationStartTime = ?, readyTime = ?,
			deliveryStartTime = ?, deliveryTime = ?, cancelledTime = ?,
			notes = ?, updatedBy = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		order.Status, order.PaymentStatus, order.PaymentTransactionID, order.DeliveryDriverID,
		order.UpdatedAt, order.PreparationStartTime, order.ReadyTime,
		order.DeliveryStartTime, order.DeliveryTime, order.CancelledTime,
		notes, order.UpdatedBy, order.ID,
	)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return dtoerrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", order.ID))
	}

	return nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM Orders WHERE id = ?`, id)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, dtoerrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// FindByExternalRef returns nil, nil when no order mirrors the external one.
func (r *MySQLOrderRepository) FindByExternalRef(ctx context.Context, platform, externalID string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM Orders WHERE externalPlatform = ? AND externalId = ?`,
		platform, externalID,
	)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by external ref: %w", err)
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *MySQLOrderRepository) FindWithFilter(ctx context.Context, filter dto.OrderFilter, page dto.Pagination) ([]domain.Order, int, error) {
	where, args := buildOrderFilter(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	column, ok := sortColumns[page.SortBy]
	if !ok {
		column = "createdAt"
	}
	direction := "DESC"
	if page.SortOrder == "asc" {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM Orders%s ORDER BY %s %s LIMIT ? OFFSET ?`, orderColumns, where, column, direction)
	orders, err := r.queryOrders(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FindDelivering returns orders out for delivery, optionally for one driver.
func (r *MySQLOrderRepository) FindDelivering(ctx context.Context, driverID string) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE status = ?`
	args := []interface{}{domain.OrderStatusOutForDelivery}
	if driverID != "" {
		query += ` AND deliveryDriverId = ?`
		args = append(args, driverID)
	}
	query += ` ORDER BY deliveryStartTime ASC`

	return r.queryOrders(ctx, query, args...)
}

func (r *MySQLOrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var ptrs []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		ptrs = append(ptrs, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}

	if err := r.loadItems(ctx, ptrs); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, len(ptrs))
	for i, o := range ptrs {
		orders[i] = *o
	}
	return orders, nil
}

func (r *MySQLOrderRepository) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Order, len(orders))
	placeholders := make([]string, len(orders))
	args := make([]interface{}, len(orders))
	for i, o := range orders {
		byID[o.ID] = o
		placeholders[i] = "?"
		args[i] = o.ID
	}

	query := fmt.Sprintf(`
		SELECT id, orderId, dishId, dishName, quantity, unitPrice, totalPrice, customizations
		FROM OrderItems
		WHERE orderId IN (%s)
		ORDER BY orderId, position`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item           domain.OrderItem
			orderID        string
			customizations []byte
		)
		if err := rows.Scan(&item.ID, &orderID, &item.DishID, &item.DishName, &item.Quantity,
			&item.UnitPrice, &item.TotalPrice, &customizations); err != nil {
			return fmt.Errorf("scanning order item row: %w", err)
		}
		if len(customizations) > 0 {
			if err := json.Unmarshal(customizations, &item.Customizations); err != nil {
				return fmt.Errorf("decoding item customizations: %w", err)
			}
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o          domain.Order
		platform   sql.NullString
		externalID sql.NullString
		notes      []byte
	)

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.Source, &platform, &externalID,
		&o.Customer.CustomerID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Email,
		&o.DeliveryInfo.Type, &o.DeliveryInfo.Address, &o.DeliveryInfo.DistanceKm, &o.DeliveryDriverID,
		&o.PaymentMethod, &o.PaymentStatus, &o.PaymentTransactionID, &o.CouponCode,
		&o.Amount.Subtotal, &o.Amount.Tax, &o.Amount.DeliveryFee, &o.Amount.Discount, &o.Amount.Total,
		&o.Status, &o.ScheduledTime, &o.EstimatedPrepMinutes,
		&o.CreatedAt, &o.UpdatedAt, &o.PreparationStartTime, &o.ReadyTime,
		&o.DeliveryStartTime, &o.DeliveryTime, &o.CancelledTime,
		&notes, &o.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	if platform.Valid && externalID.Valid {
		o.ExternalRef = &domain.ExternalRef{Platform: platform.String, ExternalID: externalID.String}
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &o.Notes); err != nil {
			return nil, fmt.Errorf("decoding order notes: %w", err)
		}
	}
	return &o, nil
}

func buildOrderFilter(filter dto.OrderFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}
	if len(filter.Sources) > 0 {
		clauses = append(clauses, "source IN ("+placeholders(len(filter.Sources))+")")
		for _, s := range filter.Sources {
			args = append(args, s)
		}
	}
	if filter.CustomerID != "" {
		clauses = append(clauses, "customerId = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.DeliveryDriverID != "" {
		clauses = append(clauses, "deliveryDriverId = ?")
		args = append(args, filter.DeliveryDriverID)
	}
	if filter.DateRange != nil {
		if !filter.DateRange.From.IsZero() {
			clauses = append(clauses, "createdAt >= ?")
			args = append(args, filter.DateRange.From)
		}
		if !filter.DateRange.To.IsZero() {
			clauses = append(clauses, "createdAt <= ?")
			args = append(args, filter.DateRange.To)
		}
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		clauses = append(clauses, "(orderNumber LIKE ? OR customerName LIKE ? OR customerPhone LIKE ?)")
		args = append(args, like, like, like)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func externalRefArgs(ref *domain.ExternalRef) (interface{}, interface{}) {
	if ref == nil {
		return nil, nil
	}
	return ref.Platform, ref.ExternalID
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

func rangeArgs(dateRange *dto.DateRange) (string, []interface{}) {
	if dateRange == nil {
		return "", nil
	}
	return " WHERE createdAt BETWEEN ? AND ?", []interface{}{dateRange.From, dateRange.To}
}

// Statistics aggregates everything except delivery performance, which the
// delivery coordinator supplies.
func (r *MySQLOrderRepository) Statistics(ctx context.Context, dateRange *dto.DateRange) (dto.OrderStatistics, error) {
	where, args := rangeArgs(dateRange)
	stats := dto.OrderStatistics{
		TotalRevenue:            decimal.Zero,
		AverageOrderValue:       decimal.Zero,
		OrderStatusDistribution: map[domain.OrderStatus]int{},
		SourceDistribution:      map[domain.OrderSource]int{},
		PeakHours:               []dto.HourCount{},
	}

	revenueWhere := " WHERE status <> ?"
	revenueArgs := []interface{}{domain.OrderStatusCancelled}
	if dateRange != nil {
		revenueWhere += " AND createdAt BETWEEN ? AND ?"
		revenueArgs = append(revenueArgs, dateRange.From, dateRange.To)
	}

	var revenueOrders int
	var revenue decimal.NullDecimal
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), SUM(total) FROM Orders`+revenueWhere, revenueArgs...).
		Scan(&revenueOrders, &revenue); err != nil {
		return stats, fmt.Errorf("querying revenue: %w", err)
	}
	if revenue.Valid {
		stats.TotalRevenue = revenue.Decimal
	}
	if revenueOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(int64(revenueOrders))).Round(2)
	}

	err := r.groupCount(ctx, `SELECT status, COUNT(*) FROM Orders`+where+` GROUP BY status`, args, func(key string, n int) {
		stats.OrderStatusDistribution[domain.OrderStatus(key)] = n
		stats.TotalOrders += n
	})
	if err != nil {
		return stats, fmt.Errorf("querying status distribution: %w", err)
	}

	err = r.groupCount(ctx, `SELECT source, COUNT(*) FROM Orders`+where+` GROUP BY source`, args, func(key string, n int) {
		stats.SourceDistribution[domain.OrderSource(key)] = n
	})
	if err != nil {
		return stats, fmt.Errorf("querying source distribution: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT HOUR(createdAt) AS h, COUNT(*) AS n FROM Orders`+where+` GROUP BY h ORDER BY n DESC, h ASC LIMIT 5`, args...)
	if err != nil {
		return stats, fmt.Errorf("querying peak hours: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var hc dto.HourCount
		if err := rows.Scan(&hc.Hour, &hc.OrderCount); err != nil {
			return stats, fmt.Errorf("scanning peak hour: %w", err)
		}
		stats.PeakHours = append(stats.PeakHours, hc)
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterating peak hours: %w", err)
	}

	return stats, nil
}

func (r *MySQLOrderRepository) groupCount(ctx context.Context, query string, args []interface{}, fn func(string, int)) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		fn(key, n)
	}
	return rows.Err()
}

// DeliveryPerformance reads finished deliveries and summarises them.
func (r *MySQLOrderRepository) DeliveryPerformance(ctx context.Context, dateRange *dto.DateRange) (dto.DeliveryPerformance, error) {
	query := `
		SELECT deliveryDriverId, createdAt, deliveryStartTime, deliveryTime, estimatedPrepMinutes
		FROM Orders
		WHERE deliveryStartTime IS NOT NULL AND deliveryTime IS NOT NULL`
	var args []interface{}
	if dateRange != nil {
		query += ` AND createdAt BETWEEN ? AND ?`
		args = append(args, dateRange.From, dateRange.To)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return dto.DeliveryPerformance{}, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var records []DeliveryRecord
	for rows.Next() {
		var rec DeliveryRecord
		if err := rows.Scan(&rec.DriverID, &rec.CreatedAt, &rec.StartedAt, &rec.DeliveredAt, &rec.PrepMinutes); err != nil {
			return dto.DeliveryPerformance{}, fmt.Errorf("scanning delivery row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return dto.DeliveryPerformance{}, fmt.Errorf("iterating delivery rows: %w", err)
	}

	return SummarizeDeliveries(records), nil
}

// OnTimeDeliveryWindow is added to an order's prep time to get its promised
// delivery time.
const OnTimeDeliveryWindow = 30 * time.Minute

type DeliveryRecord struct {
	DriverID    string
	CreatedAt   time.Time
	StartedAt   time.Time
	DeliveredAt time.Time
	PrepMinutes int
}

// SummarizeDeliveries computes the average ride time, the share of orders
// delivered within prep time plus OnTimeDeliveryWindow, and each driver's
// on-time rate.
func SummarizeDeliveries(records []DeliveryRecord) dto.DeliveryPerformance {
	perf := dto.DeliveryPerformance{DriverEfficiency: map[string]float64{}}
	if len(records) == 0 {
		return perf
	}

	type tally struct{ total, onTime int }
	drivers := map[string]*tally{}

	var rideMinutes float64
	onTime := 0
	for _, rec := range records {
		rideMinutes += rec.DeliveredAt.Sub(rec.StartedAt).Minutes()

		promised := rec.CreatedAt.Add(time.Duration(rec.PrepMinutes)*time.Minute + OnTimeDeliveryWindow)
		punctual := !rec.DeliveredAt.After(promised)
		if punctual {
			onTime++
		}

		if rec.DriverID == "" {
			continue
		}
		t, ok := drivers[rec.DriverID]
		if !ok {
			t = &tally{}
			drivers[rec.DriverID] = t
		}
		t.total++
		if punctual {
			t.onTime++
		}
	}

	perf.AverageDeliveryMinutes = rideMinutes / float64(len(records))
	perf.OnTimeRate = float64(onTime) / float64(len(records))
	for id, t := range drivers {
		perf.DriverEfficiency[id] = float64(t.onTime) / float64(t.total)
	}
	return perf
}
