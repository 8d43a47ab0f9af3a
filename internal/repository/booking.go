package repository

import (
	"context"
	"time"

	"rental/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
// Bookings are never deleted; cancellation is a status.
type BookingRepository interface {
	// Create persists a new booking. It returns a *domain.ConflictError when the
	// store rejects an overlapping active range for the same car.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// Update writes the mutable fields of a booking, but only if its stored
	// status still equals from. Returns ErrStaleStatus otherwise.
	Update(ctx context.Context, booking *domain.Booking, from domain.BookingStatus) error

	// ListActiveByCar returns the bookings of a car that occupy their range.
	ListActiveByCar(ctx context.Context, carID string) ([]*domain.Booking, error)

	// ListActive returns every booking that occupies its range.
	ListActive(ctx context.Context) ([]*domain.Booking, error)

	// ListByDriver returns the driver's bookings in the given status.
	ListByDriver(ctx context.Context, driverID string, status domain.BookingStatus) ([]*domain.Booking, error)

	// ListPaymentOverdue returns PAYMENT_PENDING bookings whose payment window closed before now.
	ListPaymentOverdue(ctx context.Context, now time.Time) ([]*domain.Booking, error)
}
