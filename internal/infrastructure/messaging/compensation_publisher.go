package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	dtoerrors "o2o/internal/errors"
)

// CompensationMessage is picked up by the operator retry queue.
type CompensationMessage struct {
	OrderID    string    `json:"orderId"`
	Action     string    `json:"action"`
	Target     string    `json:"target,omitempty"`
	Error      string    `json:"error"`
	RecordedAt time.Time `json:"recordedAt"`
}

// CompensationPublisher records failed compensations on a topic. The failure
// is always logged so it survives a broker outage.
type CompensationPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

func NewCompensationPublisher(producer *Producer, logger *zap.Logger) *CompensationPublisher {
	return &CompensationPublisher{producer: producer, logger: logger}
}

func (p *CompensationPublisher) Record(ctx context.Context, failure *dtoerrors.CompensationFailureError) {
	fields := []zap.Field{
		zap.String("orderId", failure.OrderID),
		zap.String("action", failure.Action),
		zap.String("target", failure.Target),
		zap.Error(failure.Cause),
	}
	p.logger.Error("compensation failed", fields...)

	msg := CompensationMessage{
		OrderID:    failure.OrderID,
		Action:     failure.Action,
		Target:     failure.Target,
		RecordedAt: time.Now().UTC(),
	}
	if failure.Cause != nil {
		msg.Error = failure.Cause.Error()
	}

	if err := p.producer.Publish(ctx, failure.OrderID, msg); err != nil {
		p.logger.Error("compensation not queued for retry", append(fields, zap.NamedError("publishError", err))...)
	}
}
