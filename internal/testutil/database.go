package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

const defaultTestDSN = "root:@tcp(localhost:3306)/o2o_test?parseTime=true"

// SetupTestDB opens the MySQL test database named by O2O_TEST_DSN (default
// o2o_test on localhost:3306) and skips the test when it is unreachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("O2O_TEST_DSN")
	if dsn == "" {
		dsn = defaultTestDSN
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Verify connection
	err = db.Ping()
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties every table and closes the connection.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"OrderItems", "Orders", "InventoryReservations", "DishStock"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the schema used by the repositories.
func SetupTestTables(t *testing.T, db *sql.DB) {
	for _, tbl := range Schema {
		_, err := db.Exec(tbl.Query)
		if err != nil {
			t.Logf("failed to create table %s: %v", tbl.Name, err)
		}
	}
}

type Table struct {
	Name  string
	Query string
}

var Schema = []Table{
	{"DishStock", `
	CREATE TABLE IF NOT EXISTS DishStock (
		dishId VARCHAR(64) NOT NULL PRIMARY KEY,
		stock INT NOT NULL DEFAULT 0,
		reserved_stock INT NOT NULL DEFAULT 0,
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`},
	{"InventoryReservations", `
	CREATE TABLE IF NOT EXISTS InventoryReservations (
		orderItemId VARCHAR(36) NOT NULL PRIMARY KEY,
		dishId VARCHAR(64) NOT NULL,
		quantity INT NOT NULL,
		state VARCHAR(20) NOT NULL,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_dish (dishId)
	)`},
	{"Orders", `
	CREATE TABLE IF NOT EXISTS Orders (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		orderNumber VARCHAR(32) NOT NULL UNIQUE,
		source VARCHAR(20) NOT NULL,
		externalPlatform VARCHAR(32) NULL,
		externalId VARCHAR(64) NULL,
		customerId VARCHAR(64) NOT NULL DEFAULT '',
		customerName VARCHAR(150) NOT NULL,
		customerPhone VARCHAR(30) NOT NULL,
		customerEmail VARCHAR(150) NOT NULL DEFAULT '',
		deliveryType VARCHAR(20) NOT NULL,
		deliveryAddress VARCHAR(255) NOT NULL DEFAULT '',
		deliveryDistanceKm DOUBLE NOT NULL DEFAULT 0,
		deliveryDriverId VARCHAR(64) NOT NULL DEFAULT '',
		paymentMethod VARCHAR(32) NOT NULL,
		paymentStatus VARCHAR(20) NOT NULL,
		paymentTransactionId VARCHAR(64) NOT NULL DEFAULT '',
		couponCode VARCHAR(32) NOT NULL DEFAULT '',
		subtotal DECIMAL(12,2) NOT NULL,
		tax DECIMAL(12,2) NOT NULL,
		deliveryFee DECIMAL(12,2) NOT NULL,
		discount DECIMAL(12,2) NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		status VARCHAR(32) NOT NULL,
		scheduledTime DATETIME(3) NULL,
		estimatedPrepMinutes INT NOT NULL DEFAULT 15,
		createdAt DATETIME(3) NOT NULL,
		updatedAt DATETIME(3) NOT NULL,
		preparationStartTime DATETIME(3) NULL,
		readyTime DATETIME(3) NULL,
		deliveryStartTime DATETIME(3) NULL,
		deliveryTime DATETIME(3) NULL,
		cancelledTime DATETIME(3) NULL,
		notes JSON NULL,
		updatedBy VARCHAR(64) NOT NULL DEFAULT '',
		UNIQUE KEY uq_external (externalPlatform, externalId),
		INDEX idx_status (status),
		INDEX idx_created (createdAt),
		INDEX idx_driver (deliveryDriverId)
	)`},
	{"OrderItems", `
	CREATE TABLE IF NOT EXISTS OrderItems (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		orderId VARCHAR(36) NOT NULL,
		position INT NOT NULL,
		dishId VARCHAR(64) NOT NULL,
		dishName VARCHAR(150) NOT NULL DEFAULT '',
		quantity INT NOT NULL,
		unitPrice DECIMAL(12,2) NOT NULL,
		totalPrice DECIMAL(12,2) NOT NULL,
		customizations JSON NULL,
		FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
		INDEX idx_order (orderId)
	)`},
}
