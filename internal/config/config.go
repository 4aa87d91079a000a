package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"o2o/internal/order/pricing"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Timeouts   TimeoutConfig
	Pricing    pricing.Rules
	Payment    PaymentConfig
	Reconciler ReconcilerConfig
	Restaurant RestaurantConfig
	Inventory  InventoryConfig
	Log        LogConfig
}

// ServerConfig sizes the HTTP server. WriteTimeout has to cover a full
// creation saga, so it stays above the sum of the collaborator timeouts.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// RedisConfig backs the idempotency store. An empty Addr selects the
// in-process store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers                    []string
	EventsTopic                string
	CustomerNotificationsTopic string
	InternalNotificationsTopic string
	DeliveryCommandsTopic      string
	CompensationsTopic         string
}

// TimeoutConfig bounds each call to an external collaborator.
type TimeoutConfig struct {
	Inventory    time.Duration
	Payment      time.Duration
	Delivery     time.Duration
	Notification time.Duration
}

type PaymentConfig struct {
	SandboxLimit decimal.Decimal
}

type ReconcilerConfig struct {
	Enabled   bool
	Interval  time.Duration
	FeedPath  string
	Platforms []string
}

type RestaurantConfig struct {
	PickupAddress string
}

type InventoryConfig struct {
	MaxRetryAttempts int
}

// LogConfig sets the level and the fields stamped on every entry. An empty
// Instance falls back to the host name.
type LogConfig struct {
	Level    string
	Service  string
	Instance string
}

// Load reads CONFIG_FILE when set, then lets environment variables override.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "10s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "60s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "o2o")
	v.SetDefault("DB_PASSWORD", "secret")
	v.SetDefault("DB_NAME", "o2o")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_PING_TIMEOUT", "5s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_EVENTS_TOPIC", "o2o.order-events")
	v.SetDefault("KAFKA_CUSTOMER_NOTIFICATIONS_TOPIC", "o2o.notifications.customer")
	v.SetDefault("KAFKA_INTERNAL_NOTIFICATIONS_TOPIC", "o2o.notifications.internal")
	v.SetDefault("KAFKA_DELIVERY_COMMANDS_TOPIC", "o2o.delivery-commands")
	v.SetDefault("KAFKA_COMPENSATIONS_TOPIC", "o2o.compensations")
	v.SetDefault("INVENTORY_TIMEOUT", "3s")
	v.SetDefault("PAYMENT_TIMEOUT", "10s")
	v.SetDefault("DELIVERY_TIMEOUT", "5s")
	v.SetDefault("NOTIFICATION_TIMEOUT", "3s")
	v.SetDefault("PRICING_TAX_RATE", "0.1")
	v.SetDefault("PRICING_DELIVERY_BASE_FEE", "5")
	v.SetDefault("PRICING_DELIVERY_FEE_PER_KM", "2")
	v.SetDefault("PRICING_COUPONS", "SAVE10:10:10")
	v.SetDefault("PAYMENT_SANDBOX_LIMIT", "500")
	v.SetDefault("RECONCILER_ENABLED", false)
	v.SetDefault("RECONCILER_INTERVAL", "1m")
	v.SetDefault("RECONCILER_FEED_PATH", "external_orders.yaml")
	v.SetDefault("RECONCILER_PLATFORMS", "")
	v.SetDefault("RESTAURANT_PICKUP_ADDRESS", "Restaurant")
	v.SetDefault("INVENTORY_MAX_RETRY_ATTEMPTS", 3)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_SERVICE", "o2o-orders")
	v.SetDefault("LOG_INSTANCE", "")

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Brokers:                    splitList(v.GetString("KAFKA_BROKERS")),
			EventsTopic:                v.GetString("KAFKA_EVENTS_TOPIC"),
			CustomerNotificationsTopic: v.GetString("KAFKA_CUSTOMER_NOTIFICATIONS_TOPIC"),
			InternalNotificationsTopic: v.GetString("KAFKA_INTERNAL_NOTIFICATIONS_TOPIC"),
			DeliveryCommandsTopic:      v.GetString("KAFKA_DELIVERY_COMMANDS_TOPIC"),
			CompensationsTopic:         v.GetString("KAFKA_COMPENSATIONS_TOPIC"),
		},
		Reconciler: ReconcilerConfig{
			Enabled:   v.GetBool("RECONCILER_ENABLED"),
			FeedPath:  v.GetString("RECONCILER_FEED_PATH"),
			Platforms: splitList(v.GetString("RECONCILER_PLATFORMS")),
		},
		Restaurant: RestaurantConfig{
			PickupAddress: v.GetString("RESTAURANT_PICKUP_ADDRESS"),
		},
		Inventory: InventoryConfig{
			MaxRetryAttempts: v.GetInt("INVENTORY_MAX_RETRY_ATTEMPTS"),
		},
		Log: LogConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Service:  v.GetString("LOG_SERVICE"),
			Instance: v.GetString("LOG_INSTANCE"),
		},
	}

	durations := map[string]*time.Duration{
		"SERVER_READ_TIMEOUT":     &cfg.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":    &cfg.Server.WriteTimeout,
		"SERVER_IDLE_TIMEOUT":     &cfg.Server.IdleTimeout,
		"SERVER_SHUTDOWN_TIMEOUT": &cfg.Server.ShutdownTimeout,
		"DB_CONN_MAX_LIFETIME":    &cfg.Database.ConnMaxLifetime,
		"DB_PING_TIMEOUT":         &cfg.Database.PingTimeout,
		"INVENTORY_TIMEOUT":       &cfg.Timeouts.Inventory,
		"PAYMENT_TIMEOUT":         &cfg.Timeouts.Payment,
		"DELIVERY_TIMEOUT":        &cfg.Timeouts.Delivery,
		"NOTIFICATION_TIMEOUT":    &cfg.Timeouts.Notification,
		"RECONCILER_INTERVAL":     &cfg.Reconciler.Interval,
	}
	for key, dst := range durations {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", key, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("%s must be positive", key)
		}
		*dst = d
	}

	rules, err := parsePricing(v)
	if err != nil {
		return nil, err
	}
	cfg.Pricing = rules

	limit, err := decimal.NewFromString(v.GetString("PAYMENT_SANDBOX_LIMIT"))
	if err != nil {
		return nil, fmt.Errorf("parsing PAYMENT_SANDBOX_LIMIT: %w", err)
	}
	cfg.Payment.SandboxLimit = limit

	return cfg, nil
}

func parsePricing(v *viper.Viper) (pricing.Rules, error) {
	rules := pricing.Rules{Coupons: map[string]pricing.Coupon{}}

	amounts := map[string]*decimal.Decimal{
		"PRICING_TAX_RATE":            &rules.TaxRate,
		"PRICING_DELIVERY_BASE_FEE":   &rules.DeliveryBaseFee,
		"PRICING_DELIVERY_FEE_PER_KM": &rules.DeliveryFeePerKm,
	}
	for key, dst := range amounts {
		d, err := decimal.NewFromString(v.GetString(key))
		if err != nil {
			return rules, fmt.Errorf("parsing %s: %w", key, err)
		}
		*dst = d
	}

	// CODE:percent[:cap], comma separated
	for _, entry := range splitList(v.GetString("PRICING_COUPONS")) {
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return rules, fmt.Errorf("invalid coupon %q", entry)
		}
		percent, err := decimal.NewFromString(parts[1])
		if err != nil {
			return rules, fmt.Errorf("invalid coupon %q: %w", entry, err)
		}
		coupon := pricing.Coupon{Percent: percent}
		if len(parts) == 3 {
			if coupon.Cap, err = decimal.NewFromString(parts[2]); err != nil {
				return rules, fmt.Errorf("invalid coupon %q: %w", entry, err)
			}
		}
		rules.Coupons[strings.ToUpper(strings.TrimSpace(parts[0]))] = coupon
	}

	return rules, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
