package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_HappyPath(t *testing.T) {
	t.Parallel()

	r := NewDateRange(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC))
	tc := TransitionContext{Today: r.Start, Range: r}

	steps := []struct {
		event Event
		want  BookingStatus
	}{
		{EventAttachDriver, BookingStatusPending},
		{EventDocumentsVerified, BookingStatusPaymentPending},
		{EventPaymentSucceeded, BookingStatusConfirmed},
		{EventPickupRecorded, BookingStatusActive},
		{EventReturnRecorded, BookingStatusCompleted},
	}

	status := BookingStatusPending
	for _, s := range steps {
		next, err := Transition(status, s.event, tc)
		require.NoError(t, err, "event %s from %s", s.event, status)
		assert.Equal(t, s.want, next)
		status = next
	}
}

func TestTransition_CancelFromAnyNonTerminal(t *testing.T) {
	t.Parallel()

	for _, from := range ActiveStatuses {
		next, err := Transition(from, EventCancel, TransitionContext{})
		require.NoError(t, err, "cancel from %s", from)
		assert.Equal(t, BookingStatusCancelled, next)
	}
}

func TestTransition_TerminalStatesRejectEverything(t *testing.T) {
	t.Parallel()

	terminal := []BookingStatus{BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected}
	events := []Event{
		EventAttachDriver, EventDocumentsVerified, EventDocumentRejected, EventPaymentSucceeded,
		EventPaymentSessionExpired, EventPickupRecorded, EventReturnRecorded, EventCancel,
	}

	for _, from := range terminal {
		for _, ev := range events {
			next, err := Transition(from, ev, TransitionContext{})
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s from %s", ev, from)
			assert.Equal(t, from, next)
		}
	}
}

func TestTransition_UnlistedEventsAreInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from  BookingStatus
		event Event
	}{
		{BookingStatusPending, EventPaymentSucceeded},
		{BookingStatusPending, EventPickupRecorded},
		{BookingStatusPaymentPending, EventDocumentRejected},
		{BookingStatusPaymentPending, EventAttachDriver},
		{BookingStatusConfirmed, EventPaymentSessionExpired},
		{BookingStatusConfirmed, EventReturnRecorded},
		{BookingStatusActive, EventPickupRecorded},
	}
	for _, tt := range tests {
		_, err := Transition(tt.from, tt.event, TransitionContext{})
		var terr *InvalidTransitionError
		require.ErrorAs(t, err, &terr, "%s from %s", tt.event, tt.from)
		assert.Equal(t, tt.from, terr.From)
		assert.Equal(t, tt.event, terr.Event)
	}
}

func TestTransition_PickupGuard(t *testing.T) {
	t.Parallel()

	r := NewDateRange(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))

	_, err := Transition(BookingStatusConfirmed, EventPickupRecorded, TransitionContext{
		Today: time.Date(2024, 6, 9, 23, 0, 0, 0, time.UTC),
		Range: r,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	next, err := Transition(BookingStatusConfirmed, EventPickupRecorded, TransitionContext{
		Today: time.Date(2024, 6, 10, 8, 30, 0, 0, time.UTC),
		Range: r,
	})
	require.NoError(t, err)
	assert.Equal(t, BookingStatusActive, next)
}

func TestBooking_Apply(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	b := &Booking{ID: "b-1", Status: BookingStatusPaymentPending}

	require.NoError(t, b.Apply(EventPaymentSucceeded, now))
	assert.Equal(t, BookingStatusConfirmed, b.Status)
	assert.Equal(t, now, b.UpdatedAt)

	b.Status = BookingStatusCancelled
	err := b.Apply(EventPaymentSucceeded, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, BookingStatusCancelled, b.Status)
	assert.Equal(t, now, b.UpdatedAt)
}
