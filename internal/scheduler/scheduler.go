// Package scheduler runs the periodic payment-session expiry sweep.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rental/internal/domain"
)

type sessionExpirer interface {
	ExpirePaymentSessions(ctx context.Context) ([]*domain.Booking, error)
}

// Scheduler cancels bookings whose payment window has closed.
type Scheduler struct {
	reservations sessionExpirer
	interval     time.Duration
	logger       *zap.Logger
}

// New creates a new Scheduler.
func New(
	reservations sessionExpirer,
	interval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		reservations: reservations,
		interval:     interval,
		logger:       logger,
	}
}

// Start sweeps every interval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("payment expiry sweeper started",
		zap.Duration("interval", s.interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("payment expiry sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	expired, err := s.reservations.ExpirePaymentSessions(ctx)
	if err != nil {
		s.logger.Error("failed to expire payment sessions", zap.Error(err))
	}

	for _, b := range expired {
		s.logger.Info("payment session expired",
			zap.String("booking_id", b.ID),
			zap.String("car_id", b.CarID),
			zap.String("range", b.Range.String()),
		)
	}
}
