package messaging

import (
	"errors"

	"o2o/internal/config"
)

// Producers holds one producer per outbound topic.
type Producers struct {
	Events                *Producer
	CustomerNotifications *Producer
	InternalNotifications *Producer
	DeliveryCommands      *Producer
	Compensations         *Producer
}

func NewProducers(cfg config.KafkaConfig) *Producers {
	return &Producers{
		Events:                NewProducer(cfg.Brokers, cfg.EventsTopic),
		CustomerNotifications: NewProducer(cfg.Brokers, cfg.CustomerNotificationsTopic),
		InternalNotifications: NewProducer(cfg.Brokers, cfg.InternalNotificationsTopic),
		DeliveryCommands:      NewProducer(cfg.Brokers, cfg.DeliveryCommandsTopic),
		Compensations:         NewProducer(cfg.Brokers, cfg.CompensationsTopic),
	}
}

// Close flushes every producer and returns the joined errors.
func (p *Producers) Close() error {
	var errs []error
	for _, producer := range []*Producer{p.Events, p.CustomerNotifications, p.InternalNotifications, p.DeliveryCommands, p.Compensations} {
		if producer == nil {
			continue
		}
		if err := producer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
