package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rental/internal/domain"
	"rental/internal/repository"
)

// BookingRepository is an in-memory implementation of repository.BookingRepository.
// Like the Postgres exclusion constraint, Create refuses overlapping active ranges.
type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
}

// NewBookingRepository creates a new in-memory booking repository.
func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: make(map[string]*domain.Booking)}
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.Status.IsActive() {
		for _, b := range r.bookings {
			if b.CarID == booking.CarID && b.Status.IsActive() && b.Range.Overlaps(booking.Range) {
				return &domain.ConflictError{CarID: booking.CarID, Range: booking.Range}
			}
		}
	}

	r.bookings[booking.ID] = clone(booking)
	return nil
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(b), nil
}

// Update writes the booking if its stored status is still from.
func (r *BookingRepository) Update(ctx context.Context, booking *domain.Booking, from domain.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[booking.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != from {
		return repository.ErrStaleStatus
	}
	r.bookings[booking.ID] = clone(booking)
	return nil
}

// ListActiveByCar returns the active bookings of a car ordered by start date.
func (r *BookingRepository) ListActiveByCar(ctx context.Context, carID string) ([]*domain.Booking, error) {
	return r.filter(func(b *domain.Booking) bool {
		return b.CarID == carID && b.Status.IsActive()
	}), nil
}

// ListActive returns every active booking.
func (r *BookingRepository) ListActive(ctx context.Context) ([]*domain.Booking, error) {
	return r.filter(func(b *domain.Booking) bool { return b.Status.IsActive() }), nil
}

// ListByDriver returns the driver's bookings in status.
func (r *BookingRepository) ListByDriver(ctx context.Context, driverID string, status domain.BookingStatus) ([]*domain.Booking, error) {
	return r.filter(func(b *domain.Booking) bool {
		return b.DriverID == driverID && b.Status == status
	}), nil
}

// ListPaymentOverdue returns PAYMENT_PENDING bookings whose due time is before now.
func (r *BookingRepository) ListPaymentOverdue(ctx context.Context, now time.Time) ([]*domain.Booking, error) {
	return r.filter(func(b *domain.Booking) bool {
		return b.Status == domain.BookingStatusPaymentPending && !b.PaymentDueAt.IsZero() && b.PaymentDueAt.Before(now)
	}), nil
}

// Count returns the number of stored bookings.
func (r *BookingRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bookings)
}

func (r *BookingRepository) filter(keep func(*domain.Booking) bool) []*domain.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.Start.Equal(out[j].Range.Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Range.Start.Before(out[j].Range.Start)
	})
	return out
}

func clone(b *domain.Booking) *domain.Booking {
	c := *b
	if b.Price.Days != nil {
		c.Price.Days = append([]domain.DayPrice(nil), b.Price.Days...)
	}
	return &c
}
