package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
)

// Payment is a checkout session opened with the payment provider for a booking.
type Payment struct {
	ID             string
	BookingID      string
	SessionID      string
	CheckoutURL    string
	AmountCents    int64
	Currency       string
	Status         PaymentStatus
	Reference      string
	IdempotencyKey string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}
