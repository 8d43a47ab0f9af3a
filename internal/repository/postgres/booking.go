package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rental/internal/domain"
	"rental/internal/repository"
)

const bookingColumns = `
	id, car_id, user_id, COALESCE(driver_id, ''), start_date, end_date, status,
	subtotal_cents, service_fee_cents, tax_cents, total_cents,
	payment_due_at, payment_ref, cancel_reason, created_at, updated_at
`

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
// Overlapping active ranges of one car are rejected by the bookings_no_overlap
// exclusion constraint.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id, car_id, user_id, driver_id, start_date, end_date, status,
			subtotal_cents, service_fee_cents, tax_cents, total_cents,
			payment_due_at, payment_ref, cancel_reason, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.q.ExecContext(ctx, query,
		b.ID,
		b.CarID,
		b.UserID,
		nullString(b.DriverID),
		b.Range.Start,
		b.Range.End,
		b.Status,
		b.Price.SubtotalCents,
		b.Price.ServiceFeeCents,
		b.Price.TaxCents,
		b.Price.TotalCents,
		nullTime(b.PaymentDueAt),
		b.PaymentRef,
		b.CancelReason,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		switch pgErrorCode(err) {
		case codeExclusionViolation, codeUniqueViolation:
			return &domain.ConflictError{CarID: b.CarID, Range: b.Range}
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// Update writes the mutable fields of a booking if its status is still from.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking, from domain.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, driver_id = $2, payment_due_at = $3, payment_ref = $4,
			cancel_reason = $5, updated_at = $6
		WHERE id = $7 AND status = $8
	`

	result, err := r.q.ExecContext(ctx, query,
		b.Status,
		nullString(b.DriverID),
		nullTime(b.PaymentDueAt),
		b.PaymentRef,
		b.CancelReason,
		b.UpdatedAt,
		b.ID,
		from,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, b.ID); err != nil {
			return err
		}
		return repository.ErrStaleStatus
	}

	return nil
}

// ListActiveByCar returns the bookings of a car that occupy their range.
func (r *BookingRepository) ListActiveByCar(ctx context.Context, carID string) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE car_id = $1 AND status = ANY($2)
		ORDER BY start_date`
	return r.list(ctx, query, carID, pq.Array(domain.ActiveStatuses))
}

// ListActive returns every booking that occupies its range.
func (r *BookingRepository) ListActive(ctx context.Context) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = ANY($1)
		ORDER BY car_id, start_date`
	return r.list(ctx, query, pq.Array(domain.ActiveStatuses))
}

// ListByDriver returns the driver's bookings in the given status.
func (r *BookingRepository) ListByDriver(ctx context.Context, driverID string, status domain.BookingStatus) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE driver_id = $1 AND status = $2
		ORDER BY start_date`
	return r.list(ctx, query, driverID, status)
}

// ListPaymentOverdue returns PAYMENT_PENDING bookings whose payment window closed before now.
func (r *BookingRepository) ListPaymentOverdue(ctx context.Context, now time.Time) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1 AND payment_due_at < $2
		ORDER BY payment_due_at`
	return r.list(ctx, query, domain.BookingStatusPaymentPending, now)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var start, end time.Time
	var dueAt sql.NullTime

	err := row.Scan(
		&b.ID,
		&b.CarID,
		&b.UserID,
		&b.DriverID,
		&start,
		&end,
		&b.Status,
		&b.Price.SubtotalCents,
		&b.Price.ServiceFeeCents,
		&b.Price.TaxCents,
		&b.Price.TotalCents,
		&dueAt,
		&b.PaymentRef,
		&b.CancelReason,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Range = domain.NewDateRange(start, end)
	if dueAt.Valid {
		b.PaymentDueAt = dueAt.Time
	}
	return &b, nil
}
