package dto

import (
	"o2o/internal/domain"
	apperrors "o2o/internal/errors"
)

type BatchFailure struct {
	OrderID string `json:"orderId"`
	Error   string `json:"error"`
}

type BatchUpdateResult struct {
	Success []string       `json:"success"`
	Failed  []BatchFailure `json:"failed"`
}

type SyncResult struct {
	Synced int      `json:"synced"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

// CancelResult carries the cancelled order together with any compensation
// that could not be completed and needs operator follow-up.
type CancelResult struct {
	Order                *domain.Order                         `json:"order"`
	CompensationFailures []*apperrors.CompensationFailureError `json:"-"`
}

func (r *CancelResult) FailureMessages() []string {
	msgs := make([]string, len(r.CompensationFailures))
	for i, f := range r.CompensationFailures {
		msgs[i] = f.Error()
	}
	return msgs
}
