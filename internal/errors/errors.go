package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if stderrors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// InvalidTransitionError is returned before any side effect runs.
type InvalidTransitionError struct {
	OrderID string
	From    string
	To      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s for order %s", e.From, e.To, e.OrderID)
}

func NewInvalidTransitionError(orderID, from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{OrderID: orderID, From: from, To: to}
}

func IsInvalidTransitionError(err error) (*InvalidTransitionError, bool) {
	var ite *InvalidTransitionError
	if stderrors.As(err, &ite) {
		return ite, true
	}
	return nil, false
}

type ItemShortage struct {
	DishID    string `json:"dishId"`
	Requested int    `json:"requested"`
}

type InventoryUnavailableError struct {
	Items []ItemShortage
}

func (e *InventoryUnavailableError) Error() string {
	ids := make([]string, len(e.Items))
	for i, item := range e.Items {
		ids[i] = item.DishID
	}
	return "insufficient inventory for items: " + strings.Join(ids, ", ")
}

func NewInventoryUnavailableError(items ...ItemShortage) *InventoryUnavailableError {
	return &InventoryUnavailableError{Items: items}
}

func IsInventoryUnavailableError(err error) (*InventoryUnavailableError, bool) {
	var iue *InventoryUnavailableError
	if stderrors.As(err, &iue) {
		return iue, true
	}
	return nil, false
}

type PaymentFailedError struct {
	OrderID string
	Message string
}

func (e *PaymentFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment failed for order %s", e.OrderID)
	}
	return fmt.Sprintf("payment failed for order %s: %s", e.OrderID, e.Message)
}

func NewPaymentFailedError(orderID, message string) *PaymentFailedError {
	return &PaymentFailedError{OrderID: orderID, Message: message}
}

func IsPaymentFailedError(err error) (*PaymentFailedError, bool) {
	var pfe *PaymentFailedError
	if stderrors.As(err, &pfe) {
		return pfe, true
	}
	return nil, false
}

// CompensationFailureError records one refund/release/cancel call that failed
// while unwinding. It is collected, never returned on its own.
type CompensationFailureError struct {
	OrderID string
	Action  string
	Target  string
	Cause   error
}

func (e *CompensationFailureError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("compensation %s (%s) failed for order %s: %v", e.Action, e.Target, e.OrderID, e.Cause)
	}
	return fmt.Sprintf("compensation %s failed for order %s: %v", e.Action, e.OrderID, e.Cause)
}

func (e *CompensationFailureError) Unwrap() error {
	return e.Cause
}

func NewCompensationFailureError(orderID, action, target string, cause error) *CompensationFailureError {
	return &CompensationFailureError{OrderID: orderID, Action: action, Target: target, Cause: cause}
}

func IsCompensationFailureError(err error) (*CompensationFailureError, bool) {
	var cfe *CompensationFailureError
	if stderrors.As(err, &cfe) {
		return cfe, true
	}
	return nil, false
}

// PersistenceFailureError is surfaced after the charge for the order was refunded.
type PersistenceFailureError struct {
	OrderID       string
	Cause         error
	Compensations []*CompensationFailureError
}

func (e *PersistenceFailureError) Error() string {
	return fmt.Sprintf("persisting order %s failed: %v", e.OrderID, e.Cause)
}

func (e *PersistenceFailureError) Unwrap() error {
	return e.Cause
}

func NewPersistenceFailureError(orderID string, cause error, compensations ...*CompensationFailureError) *PersistenceFailureError {
	return &PersistenceFailureError{OrderID: orderID, Cause: cause, Compensations: compensations}
}

func IsPersistenceFailureError(err error) (*PersistenceFailureError, bool) {
	var pfe *PersistenceFailureError
	if stderrors.As(err, &pfe) {
		return pfe, true
	}
	return nil, false
}

// ReservationFailureError is surfaced after partial reservations were released
// and the charge refunded.
type ReservationFailureError struct {
	OrderID       string
	DishID        string
	Cause         error
	Compensations []*CompensationFailureError
}

func (e *ReservationFailureError) Error() string {
	return fmt.Sprintf("reserving inventory for item %s of order %s failed: %v", e.DishID, e.OrderID, e.Cause)
}

func (e *ReservationFailureError) Unwrap() error {
	return e.Cause
}

func NewReservationFailureError(orderID, dishID string, cause error, compensations ...*CompensationFailureError) *ReservationFailureError {
	return &ReservationFailureError{OrderID: orderID, DishID: dishID, Cause: cause, Compensations: compensations}
}

func IsReservationFailureError(err error) (*ReservationFailureError, bool) {
	var rfe *ReservationFailureError
	if stderrors.As(err, &rfe) {
		return rfe, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
