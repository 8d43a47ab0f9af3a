package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"rental/internal/domain"
	"rental/internal/repository"
)

// MockCheckoutProvider is a CheckoutProvider for local runs and tests.
// Sessions always open; outcomes arrive through the webhook.
type MockCheckoutProvider struct {
	BaseURL string
}

// NewMockCheckoutProvider creates a new mock checkout provider.
func NewMockCheckoutProvider() *MockCheckoutProvider {
	return &MockCheckoutProvider{BaseURL: "https://checkout.example.com/session/"}
}

// CreateSession opens a fake checkout session.
func (p *MockCheckoutProvider) CreateSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	id := "cs_mock_" + uuid.New().String()
	return &CheckoutSession{
		ID:        id,
		URL:       p.BaseURL + id,
		ExpiresAt: req.ExpiresAt,
	}, nil
}

// PaymentService opens checkout sessions for payment eligible bookings and
// applies the provider's callbacks.
type PaymentService struct {
	paymentRepo  repository.PaymentRepository
	reservations *ReservationService
	provider     CheckoutProvider
	currency     string
	now          func() time.Time
	logger       *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo repository.PaymentRepository, reservations *ReservationService, provider CheckoutProvider, currency string, now func() time.Time, logger *zap.Logger) *PaymentService {
	if now == nil {
		now = time.Now
	}
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{
		paymentRepo:  paymentRepo,
		reservations: reservations,
		provider:     provider,
		currency:     currency,
		now:          now,
		logger:       logger,
	}
}

// Checkout opens a payment session for a booking, or returns the open one.
// Only PAYMENT_PENDING bookings with a fully verified driver can be paid.
func (s *PaymentService) Checkout(ctx context.Context, bookingID string) (*domain.Payment, error) {
	defer newrelic.FromContext(ctx).StartSegment("PaymentService/Checkout").End()

	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	booking, err := s.reservations.CheckPaymentGate(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// One payment record per booking.
	idempotencyKey := fmt.Sprintf("checkout:%s", bookingID)

	existing, err := s.paymentRepo.GetByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if existing != nil {
		if existing.Status == domain.PaymentStatusSuccess {
			return existing, nil
		}
		if existing.Status == domain.PaymentStatusPending && now.Before(existing.ExpiresAt) {
			return existing, nil
		}
	}

	session, err := s.provider.CreateSession(ctx, CheckoutSessionRequest{
		BookingID:      booking.ID,
		AmountCents:    booking.Price.TotalCents,
		Currency:       s.currency,
		IdempotencyKey: idempotencyKey,
		ExpiresAt:      booking.PaymentDueAt,
	})
	if err != nil {
		s.logger.Error("failed to open checkout session", zap.String("booking_id", booking.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCheckoutProviderUnavailable, err)
	}

	if existing != nil {
		// Reopen a failed or lapsed session under the same record.
		existing.SessionID = session.ID
		existing.CheckoutURL = session.URL
		existing.ExpiresAt = session.ExpiresAt
		existing.Status = domain.PaymentStatusPending
		existing.Reference = ""
		if err := s.paymentRepo.UpdateSession(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.Info("checkout session reopened",
			zap.String("booking_id", booking.ID),
			zap.String("payment_id", existing.ID),
		)
		return existing, nil
	}

	payment := &domain.Payment{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		SessionID:      session.ID,
		CheckoutURL:    session.URL,
		AmountCents:    booking.Price.TotalCents,
		Currency:       s.currency,
		Status:         domain.PaymentStatusPending,
		IdempotencyKey: idempotencyKey,
		ExpiresAt:      session.ExpiresAt,
		CreatedAt:      now,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("checkout session opened",
		zap.String("booking_id", booking.ID),
		zap.String("payment_id", payment.ID),
		zap.Int64("amount_cents", payment.AmountCents),
	)
	return payment, nil
}

// WebhookOutcome is the result reported by the checkout provider.
type WebhookOutcome string

const (
	WebhookSucceeded WebhookOutcome = "succeeded"
	WebhookFailed    WebhookOutcome = "failed"
	WebhookExpired   WebhookOutcome = "expired"
)

// WebhookEvent is a checkout provider callback.
type WebhookEvent struct {
	SessionID string
	Outcome   WebhookOutcome
	Reference string
}

// HandleWebhook applies a provider callback. A successful payment confirms
// the booking through RecordPayment. Repeated callbacks for a settled payment
// are ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, ev WebhookEvent) (*domain.Payment, error) {
	defer newrelic.FromContext(ctx).StartSegment("PaymentService/HandleWebhook").End()

	if ev.SessionID == "" {
		return nil, &domain.ValidationError{Field: "session_id", Reason: "is required"}
	}

	payment, err := s.paymentRepo.GetBySessionID(ctx, ev.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "payment", ID: ev.SessionID}
		}
		return nil, err
	}
	if payment.Status == domain.PaymentStatusSuccess {
		return payment, nil
	}

	switch ev.Outcome {
	case WebhookSucceeded:
		ref := ev.Reference
		if ref == "" {
			ref = ev.SessionID
		}
		if _, err := s.reservations.RecordPayment(ctx, payment.BookingID, ref); err != nil {
			// The provider has taken the money but the booking cannot be
			// confirmed; leave the payment pending for manual follow-up.
			s.logger.Warn("payment received for a booking that cannot be confirmed",
				zap.String("booking_id", payment.BookingID),
				zap.String("payment_id", payment.ID),
				zap.String("reference", ref),
				zap.Error(err),
			)
			return nil, err
		}
		return s.settle(ctx, payment, domain.PaymentStatusSuccess, ref)
	case WebhookFailed:
		return s.settle(ctx, payment, domain.PaymentStatusFailed, ev.Reference)
	case WebhookExpired:
		return s.settle(ctx, payment, domain.PaymentStatusExpired, ev.Reference)
	default:
		return nil, &domain.ValidationError{Field: "outcome", Reason: "must be succeeded, failed or expired"}
	}
}

func (s *PaymentService) settle(ctx context.Context, payment *domain.Payment, status domain.PaymentStatus, reference string) (*domain.Payment, error) {
	if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, status, reference); err != nil {
		return nil, err
	}
	payment.Status = status
	payment.Reference = reference

	s.logger.Info("payment settled",
		zap.String("booking_id", payment.BookingID),
		zap.String("payment_id", payment.ID),
		zap.String("status", string(status)),
	)
	return payment, nil
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "payment", ID: paymentID}
		}
		return nil, err
	}
	return payment, nil
}
