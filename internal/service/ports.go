package service

import (
	"context"
	"io"
	"time"
)

// CheckoutProvider opens payment sessions with the external payment processor.
// The provider reports the outcome later through the payment webhook.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
}

// CheckoutSessionRequest describes the amount to collect for a booking.
type CheckoutSessionRequest struct {
	BookingID      string
	AmountCents    int64
	Currency       string
	IdempotencyKey string
	ExpiresAt      time.Time
}

// CheckoutSession is an opened payment session.
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// EventPublisher delivers booking notifications to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// DocumentUploadPort stores an uploaded driver document and returns a reference
// that can later be attached to a driver. Storage format is opaque to callers.
type DocumentUploadPort interface {
	Store(ctx context.Context, upload DocumentUpload) (string, error)
}

// DocumentUpload is a document file with its metadata.
type DocumentUpload struct {
	DriverID    string
	Type        string
	FileName    string
	ContentType string
	Body        io.Reader
}
