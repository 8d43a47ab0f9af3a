package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every concrete error below unwraps to one of these, so callers can
// match the kind with errors.Is and read the detail with errors.As.
var (
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrVerification      = errors.New("verification error")
	ErrPaymentGate       = errors.New("payment gate")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConcurrency       = errors.New("concurrency error")
)

// ValidationError reports a caller-correctable input problem on a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports that the requested range overlaps an active booking.
type ConflictError struct {
	CarID string
	Range DateRange
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("car %s is not available for %s", e.CarID, e.Range)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError reports an unknown car, booking, driver or payment.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// VerificationError reports malformed driver document data.
type VerificationError struct {
	DocType DocumentType
	Field   string
	Reason  string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification error: %s %s %s", e.DocType, e.Field, e.Reason)
}

func (e *VerificationError) Unwrap() error { return ErrVerification }

// PaymentGateError reports a payment attempted before the booking was eligible.
type PaymentGateError struct {
	BookingID string
	Reason    string
}

func (e *PaymentGateError) Error() string {
	return fmt.Sprintf("payment not allowed for booking %s: %s", e.BookingID, e.Reason)
}

func (e *PaymentGateError) Unwrap() error { return ErrPaymentGate }

// InvalidTransitionError reports a lifecycle event that is not allowed from the current status.
type InvalidTransitionError struct {
	From   BookingStatus
	Event  Event
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition: %s from %s: %s", e.Event, e.From, e.Reason)
	}
	return fmt.Sprintf("invalid transition: %s from %s", e.Event, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ConcurrencyError reports a lost race for the per-car reservation lock.
type ConcurrencyError struct {
	CarID string
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("car %s is being reserved by another request", e.CarID)
}

func (e *ConcurrencyError) Unwrap() error { return ErrConcurrency }
