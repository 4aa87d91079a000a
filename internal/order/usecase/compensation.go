package usecase

import (
	"context"

	"go.uber.org/zap"

	dtoerrors "o2o/internal/errors"
)

// CompensationRecorder receives compensation calls that failed so they can be
// retried out of band.
type CompensationRecorder interface {
	Record(ctx context.Context, failure *dtoerrors.CompensationFailureError)
}

type LogCompensationRecorder struct {
	logger *zap.Logger
}

func NewLogCompensationRecorder(logger *zap.Logger) *LogCompensationRecorder {
	return &LogCompensationRecorder{logger: logger}
}

func (r *LogCompensationRecorder) Record(_ context.Context, failure *dtoerrors.CompensationFailureError) {
	r.logger.Error("compensation failed",
		zap.String("orderId", failure.OrderID),
		zap.String("action", failure.Action),
		zap.String("target", failure.Target),
		zap.Error(failure.Cause),
	)
}
