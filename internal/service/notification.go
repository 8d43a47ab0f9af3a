package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rental/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationBookingCreated    NotificationType = "BOOKING_CREATED"
	NotificationBookingTransition NotificationType = "BOOKING_STATUS_CHANGED"
	NotificationDocumentVerified  NotificationType = "DOCUMENT_VERIFIED"
	NotificationDocumentRejected  NotificationType = "DOCUMENT_REJECTED"
)

// BookingEvent is the payload published for every booking notification.
type BookingEvent struct {
	Type       NotificationType `json:"type"`
	BookingID  string           `json:"booking_id,omitempty"`
	CarID      string           `json:"car_id,omitempty"`
	UserID     string           `json:"user_id,omitempty"`
	DriverID   string           `json:"driver_id,omitempty"`
	Document   string           `json:"document,omitempty"`
	Event      string           `json:"event,omitempty"`
	From       string           `json:"from,omitempty"`
	To         string           `json:"to,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NotificationService dispatches booking notifications. Delivery is fire and
// forget: failures are logged and never reach the caller.
type NotificationService struct {
	publisher EventPublisher
	logger    *zap.Logger
}

// NewNotificationService creates a new NotificationService. A nil publisher
// only logs.
func NewNotificationService(publisher EventPublisher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		logger:    logger,
	}
}

// NotifyBookingCreated announces a new booking.
func (s *NotificationService) NotifyBookingCreated(ctx context.Context, b *domain.Booking) {
	s.send(ctx, BookingEvent{
		Type:       NotificationBookingCreated,
		BookingID:  b.ID,
		CarID:      b.CarID,
		UserID:     b.UserID,
		DriverID:   b.DriverID,
		To:         string(b.Status),
		OccurredAt: b.CreatedAt,
	})
}

// NotifyTransition announces a lifecycle transition.
func (s *NotificationService) NotifyTransition(ctx context.Context, b *domain.Booking, from domain.BookingStatus, ev domain.Event) {
	s.send(ctx, BookingEvent{
		Type:       NotificationBookingTransition,
		BookingID:  b.ID,
		CarID:      b.CarID,
		UserID:     b.UserID,
		DriverID:   b.DriverID,
		Event:      string(ev),
		From:       string(from),
		To:         string(b.Status),
		Reason:     b.CancelReason,
		OccurredAt: b.UpdatedAt,
	})
}

// NotifyDocument announces a document verification decision.
func (s *NotificationService) NotifyDocument(ctx context.Context, d *domain.Driver, doc domain.DocumentType) {
	typ := NotificationDocumentRejected
	if d.Verified(doc) {
		typ = NotificationDocumentVerified
	}
	s.send(ctx, BookingEvent{
		Type:       typ,
		UserID:     d.UserID,
		DriverID:   d.ID,
		Document:   string(doc),
		OccurredAt: d.UpdatedAt,
	})
}

func (s *NotificationService) send(ctx context.Context, event BookingEvent) {
	s.logger.Info("notification",
		zap.String("type", string(event.Type)),
		zap.String("booking_id", event.BookingID),
		zap.String("driver_id", event.DriverID),
		zap.String("to", event.To),
	)

	if s.publisher == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish notification",
				zap.String("type", string(event.Type)),
				zap.String("booking_id", event.BookingID),
				zap.Error(err),
			)
		}
	}()
}
