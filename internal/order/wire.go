package order

import (
	"database/sql"

	"go.uber.org/zap"

	"o2o/internal/config"
	"o2o/internal/infrastructure/feed"
	"o2o/internal/infrastructure/idempotency"
	"o2o/internal/infrastructure/messaging"
	"o2o/internal/infrastructure/payment"
	"o2o/internal/order/controller"
	"o2o/internal/order/pricing"
	orderrepo "o2o/internal/order/repository"
	"o2o/internal/order/service"
	"o2o/internal/order/usecase"
)

type Module struct {
	Controller   *controller.OrderController
	Orchestrator *usecase.OrderOrchestrator
	Reconciler   *usecase.ExternalOrderReconciler
}

func NewModule(
	db *sql.DB,
	cfg *config.Config,
	ledger service.InventoryLedger,
	store idempotency.Store,
	producers *messaging.Producers,
	logger *zap.Logger,
) *Module {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)

	inventoryCoord := service.NewInventoryCoordinator(ledger, store, cfg.Timeouts.Inventory, logger)
	paymentCoord := service.NewPaymentCoordinator(
		payment.NewSandboxGateway(cfg.Payment.SandboxLimit, logger),
		store,
		cfg.Timeouts.Payment,
		logger,
	)
	deliveryCoord := service.NewDeliveryCoordinator(
		messaging.NewDeliveryDispatcher(producers.DeliveryCommands),
		orderRepo,
		cfg.Restaurant.PickupAddress,
		cfg.Timeouts.Delivery,
		logger,
	)
	notifier := messaging.NewNotifier(producers.CustomerNotifications, producers.InternalNotifications)
	notifications := service.NewNotificationDispatcher(notifier, notifier, cfg.Timeouts.Notification, logger)

	orchestrator := usecase.NewOrderOrchestrator(usecase.OrchestratorDeps{
		Repository:    orderRepo,
		Pricing:       pricing.NewAmountCalculator(cfg.Pricing),
		Inventory:     inventoryCoord,
		Payment:       paymentCoord,
		Delivery:      deliveryCoord,
		Notifications: notifications,
		Events:        messaging.NewOrderEventPublisher(producers.Events),
		Compensations: messaging.NewCompensationPublisher(producers.Compensations, logger),
	}, logger)

	reconciler := usecase.NewExternalOrderReconciler(
		feed.NewYAMLFeed(cfg.Reconciler.FeedPath, cfg.Reconciler.Platforms...),
		orderRepo,
		orchestrator,
		logger,
	)

	return &Module{
		Controller:   controller.NewOrderController(orchestrator, reconciler, logger),
		Orchestrator: orchestrator,
		Reconciler:   reconciler,
	}
}
