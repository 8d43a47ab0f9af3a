package domain

import "time"

// BookingStatus represents the lifecycle status of a booking.
type BookingStatus string

const (
	BookingStatusPending        BookingStatus = "PENDING"
	BookingStatusPaymentPending BookingStatus = "PAYMENT_PENDING"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusActive         BookingStatus = "ACTIVE"
	BookingStatusCompleted      BookingStatus = "COMPLETED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
	BookingStatusRejected       BookingStatus = "REJECTED"
)

// ActiveStatuses are the statuses whose bookings occupy their date range.
var ActiveStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusPaymentPending,
	BookingStatusConfirmed,
	BookingStatusActive,
}

// IsActive reports whether a booking in this status holds its range.
func (s BookingStatus) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected:
		return true
	}
	return false
}

// DayPrice is the price of a single rental day.
type DayPrice struct {
	Date        time.Time
	Tier        string
	AmountCents int64
}

// Quote is a priced date range. All amounts are in minor units.
type Quote struct {
	SubtotalCents   int64
	ServiceFeeCents int64
	TaxCents        int64
	TotalCents      int64
	Days            []DayPrice
}

// Booking represents a reservation of a car for a date range.
type Booking struct {
	ID           string
	CarID        string
	UserID       string
	Range        DateRange
	Status       BookingStatus
	DriverID     string
	Price        Quote
	PaymentDueAt time.Time
	PaymentRef   string
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Apply moves the booking through the lifecycle and stamps UpdatedAt.
// The booking is left untouched when the transition is rejected.
func (b *Booking) Apply(ev Event, now time.Time) error {
	next, err := Transition(b.Status, ev, TransitionContext{Today: Date(now), Range: b.Range})
	if err != nil {
		return err
	}
	b.Status = next
	b.UpdatedAt = now
	return nil
}
