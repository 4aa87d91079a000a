package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"o2o/internal/config"
	"o2o/internal/infrastructure/idempotency"
	"o2o/internal/infrastructure/logger"
	"o2o/internal/infrastructure/messaging"
	"o2o/internal/infrastructure/mysql"
	"o2o/internal/inventory"
	"o2o/internal/order"
	"o2o/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(context.Background(), cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	store := newIdempotencyStore(cfg.Redis, zapLogger)

	producers := messaging.NewProducers(cfg.Kafka)
	defer func() {
		if err := producers.Close(); err != nil {
			zapLogger.Error("closing kafka producers", zap.Error(err))
		}
	}()

	inventoryModule := inventory.NewModule(db, cfg.Inventory.MaxRetryAttempts, zapLogger)
	orderModule := order.NewModule(db, cfg, inventoryModule.Ledger, store, producers, zapLogger)

	router := server.NewRouter(orderModule.Controller, inventoryModule.Controller, zapLogger)
	srv := server.New(cfg.Server, router, zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reconciler.Enabled {
		go orderModule.Reconciler.Run(ctx, cfg.Reconciler.Interval)
		zapLogger.Info("external order reconciler started",
			zap.Duration("interval", cfg.Reconciler.Interval),
			zap.String("feed", cfg.Reconciler.FeedPath),
		)
	}

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown failed", zap.Error(err))
		os.Exit(1)
	}

	zapLogger.Info("server stopped gracefully")
}

// newIdempotencyStore falls back to the in-process store when Redis is not
// configured. That is only safe for a single instance.
func newIdempotencyStore(cfg config.RedisConfig, zapLogger *zap.Logger) idempotency.Store {
	if cfg.Addr == "" {
		zapLogger.Warn("redis not configured, using in-memory idempotency store")
		return idempotency.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("connecting to redis", zap.Error(err), zap.String("addr", cfg.Addr))
	}

	zapLogger.Info("redis connected", zap.String("addr", cfg.Addr))
	return idempotency.NewRedisStore(client, "o2o")
}
