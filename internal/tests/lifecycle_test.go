package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental/internal/domain"
	"rental/internal/service"
)

// ──────────────────────────────────────────────
// 8. LIFECYCLE
// ──────────────────────────────────────────────

func TestCancelBooking_ReleasesRange(t *testing.T) {
	t.Parallel()

	for _, verified := range []bool{false, true} {
		h := NewHarness(t)
		h.AddCar(t, "car-1", 10000, nil)
		h.AddDriver(t, "driver-1", verified, verified)
		ctx := context.Background()

		r := Range(t, "2024-06-01", "2024-06-04")
		b, err := h.Reservations.CreateBooking(ctx, service.CreateBookingRequest{
			CarID:  "car-1",
			UserID: "user-1",
			Range:  r,
			Driver: service.DriverSelection{DriverID: "driver-1"},
		})
		require.NoError(t, err)

		cancelled, err := h.Reservations.CancelBooking(ctx, b.ID, "plans changed")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
		assert.Equal(t, "plans changed", cancelled.CancelReason)
		assert.True(t, h.Index.IsRangeFree("car-1", r))

		// The freed range can be booked again right away.
		_, err = h.Reservations.CreateBooking(ctx, service.CreateBookingRequest{
			CarID:  "car-1",
			UserID: "user-2",
			Range:  r,
		})
		assert.NoError(t, err)
	}
}

func TestCancelBooking_ConfirmedAndActive(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.BookingStatus{domain.BookingStatusConfirmed, domain.BookingStatusActive} {
		h := NewHarness(t)
		h.AddCar(t, "car-1", 10000, nil)
		r := Range(t, "2024-06-01", "2024-06-04")
		h.AddBooking(t, "b1", "car-1", r, status)
		require.NoError(t, h.Reservations.WarmUp(context.Background()))
		require.False(t, h.Index.IsRangeFree("car-1", r))

		b, err := h.Reservations.CancelBooking(context.Background(), "b1", "")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, b.Status)
		assert.True(t, h.Index.IsRangeFree("car-1", r))
	}
}

func TestCancelBooking_TerminalAndUnknown(t *testing.T) {
	t.Parallel()

	h := NewHarness(t)
	h.AddCar(t, "car-1", 10000, nil)
	h.AddBooking(t, "done", "car-1", Range(t, "2024-06-01", "2024-06-04"), domain.BookingStatusCompleted)
	ctx := context.Background()

	_, err := h.Reservations.CancelBooking(ctx, "done", "")
	var terr *domain.InvalidTransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, domain.BookingStatusCompleted, terr.From)

	_, err = h.Reservations.CancelBooking(ctx, "missing", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.Reservations.CancelBooking(ctx, "", "")
	assert.ErrorIs(t, err, service.ErrInvalidBookingID)
}

func TestPickupAndReturn(t *testing.T) {
	t.Parallel()

	h := NewHarness(t)
	h.AddCar(t, "car-1", 10000, nil)
	h.AddDriver(t, "driver-1", true, true)
	ctx := context.Background()

	r := Range(t, "2024-06-01", "2024-06-04")
	b, err := h.Reservations.CreateBooking(ctx, service.CreateBookingRequest{
		CarID:  "car-1",
		UserID: "user-1",
		Range:  r,
		Driver: service.DriverSelection{DriverID: "driver-1"},
	})
	require.NoError(t, err)

	// Pickup before payment is a lifecycle violation.
	_, err = h.Reservations.RecordPickup(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = h.Reservations.RecordPayment(ctx, b.ID, "pi_1")
	require.NoError(t, err)

	// Too early.
	_, err = h.Reservations.RecordPickup(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	h.Clock.Set(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	b, err = h.Reservations.RecordPickup(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusActive, b.Status)
	assert.False(t, h.Index.IsRangeFree("car-1", r), "an active rental still holds its range")

	b, err = h.Reservations.RecordReturn(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	assert.True(t, h.Index.IsRangeFree("car-1", r))

	_, err = h.Reservations.RecordReturn(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

// ──────────────────────────────────────────────
// 9. PAYMENT SESSION EXPIRY
// ──────────────────────────────────────────────

func TestExpirePaymentSessions(t *testing.T) {
	t.Parallel()

	h := NewHarness(t)
	h.AddCar(t, "car-1", 10000, nil)
	h.AddCar(t, "car-2", 10000, nil)
	h.AddDriver(t, "driver-1", true, true)
	ctx := context.Background()

	r := Range(t, "2024-06-01", "2024-06-04")
	abandoned, err := h.Reservations.CreateBooking(ctx, service.CreateBookingRequest{
		CarID: "car-1", UserID: "user-1", Range: r,
		Driver: service.DriverSelection{DriverID: "driver-1"},
	})
	require.NoError(t, err)

	h.Clock.Advance(20 * time.Minute)
	fresh, err := h.Reservations.CreateBooking(ctx, service.CreateBookingRequest{
		CarID: "car-2", UserID: "user-1", Range: r,
		Driver: service.DriverSelection{DriverID: "driver-1"},
	})
	require.NoError(t, err)

	// Window still open for both.
	expired, err := h.Reservations.ExpirePaymentSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)

	h.Clock.Advance(15 * time.Minute)
	expired, err = h.Reservations.ExpirePaymentSessions(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, abandoned.ID, expired[0].ID)
	assert.Equal(t, domain.BookingStatusCancelled, expired[0].Status)
	assert.True(t, h.Index.IsRangeFree("car-1", r))
	assert.False(t, h.Index.IsRangeFree("car-2", r))

	stillPending, err := h.Reservations.GetBooking(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPaymentPending, stillPending.Status)

	// Running again is a no-op.
	expired, err = h.Reservations.ExpirePaymentSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestExpirePaymentSessions_PaidBookingsUntouched(t *testing.T) {
	t.Parallel()

	h := NewHarness(t)
	h.AddCar(t, "car-1", 10000, nil)
	h.AddDriver(t, "driver-1", true, true)
	ctx := context.Background()

	b, err := h.Reservations.CreateBooking(ctx, service.CreateBookingRequest{
		CarID: "car-1", UserID: "user-1", Range: Range(t, "2024-06-01", "2024-06-04"),
		Driver: service.DriverSelection{DriverID: "driver-1"},
	})
	require.NoError(t, err)
	_, err = h.Reservations.RecordPayment(ctx, b.ID, "pi_1")
	require.NoError(t, err)

	h.Clock.Advance(time.Hour)
	expired, err := h.Reservations.ExpirePaymentSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

// ──────────────────────────────────────────────
// 10. READ SIDE
// ──────────────────────────────────────────────

func TestGetBooking_ReadThroughCacheInvalidatedOnTransition(t *testing.T) {
	t.Parallel()

	h := NewHarness(t)
	h.AddCar(t, "car-1", 10000, nil)
	ctx := context.Background()

	b, err := h.Reservations.CreateBooking(ctx, service.CreateBookingRequest{
		CarID: "car-1", UserID: "user-1", Range: Range(t, "2024-06-01", "2024-06-04"),
	})
	require.NoError(t, err)

	_, err = h.Reservations.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, h.Cache.Has(b.ID))

	cached, err := h.Reservations.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), h.Cache.HitCount)
	assert.Equal(t, b.Price.TotalCents, cached.Price.TotalCents)
	assert.True(t, cached.Range.Start.Equal(b.Range.Start))

	_, err = h.Reservations.CancelBooking(ctx, b.ID, "")
	require.NoError(t, err)
	assert.False(t, h.Cache.Has(b.ID))

	fresh, err := h.Reservations.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, fresh.Status)

	_, err = h.Reservations.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAvailability_BlockedRangesClipped(t *testing.T) {
	t.Parallel()

	h := NewHarness(t)
	tiers := &domain.PricingTiers{Peak: &domain.Tier{Days: []int{5, 6}, Multiplier: 1.3}}
	h.AddCar(t, "car-1", 10000, tiers)
	h.AddBooking(t, "b1", "car-1", Range(t, "2024-05-28", "2024-06-03"), domain.BookingStatusConfirmed)
	h.AddBooking(t, "b2", "car-1", Range(t, "2024-06-10", "2024-06-12"), domain.BookingStatusPending)
	h.AddBooking(t, "b3", "car-1", Range(t, "2024-06-05", "2024-06-07"), domain.BookingStatusCancelled)

	a, err := h.Reservations.Availability(context.Background(), "car-1", Range(t, "2024-06-01", "2024-06-30"))
	require.NoError(t, err)

	require.Len(t, a.BlockedRanges, 2)
	assert.Equal(t, "[2024-06-01, 2024-06-03)", a.BlockedRanges[0].String())
	assert.Equal(t, "[2024-06-10, 2024-06-12)", a.BlockedRanges[1].String())
	assert.Equal(t, int64(10000), a.Car.PricePerDayCents)
	assert.Equal(t, tiers, a.Car.PricingTiers)

	_, err = h.Reservations.Availability(context.Background(), "missing", Range(t, "2024-06-01", "2024-06-30"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuote_MatchesBookingPrice(t *testing.T) {
	t.Parallel()

	h := NewHarness(t)
	h.AddCar(t, "car-1", 10000, &domain.PricingTiers{
		Peak:    &domain.Tier{Days: []int{5, 6}, Multiplier: 1.3},
		OffPeak: &domain.Tier{Days: []int{2}, Multiplier: 0.8},
	})
	ctx := context.Background()
	r := Range(t, "2024-06-03", "2024-06-10")

	_, quote, err := h.Reservations.Quote(ctx, "car-1", r)
	require.NoError(t, err)
	require.Len(t, quote.Days, 7)

	b, err := h.Reservations.CreateBooking(ctx, service.CreateBookingRequest{CarID: "car-1", UserID: "u", Range: r})
	require.NoError(t, err)
	assert.Equal(t, quote.TotalCents, b.Price.TotalCents)

	_, _, err = h.Reservations.Quote(ctx, "car-1", Range(t, "2024-06-01", "2024-07-15"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateCar(t *testing.T) {
	t.Parallel()

	h := NewHarness(t)
	ctx := context.Background()

	car, err := h.Reservations.CreateCar(ctx, service.CreateCarRequest{Name: " Model 3 ", PricePerDayCents: 8900})
	require.NoError(t, err)
	assert.Equal(t, "Model 3", car.Name)

	got, err := h.Reservations.GetCar(ctx, car.ID)
	require.NoError(t, err)
	assert.Equal(t, car.ID, got.ID)

	_, err = h.Reservations.CreateCar(ctx, service.CreateCarRequest{Name: "x", PricePerDayCents: 0})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.Reservations.CreateCar(ctx, service.CreateCarRequest{
		Name:             "x",
		PricePerDayCents: 100,
		PricingTiers:     &domain.PricingTiers{Peak: &domain.Tier{Days: []int{7}, Multiplier: 1.2}},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	cars, err := h.Reservations.ListCars(ctx)
	require.NoError(t, err)
	assert.Len(t, cars, 1)
}

func TestTransitions_PublishNotifications(t *testing.T) {
	t.Parallel()

	h := NewHarness(t)
	h.AddCar(t, "car-1", 10000, nil)
	ctx := context.Background()

	b, err := h.Reservations.CreateBooking(ctx, service.CreateBookingRequest{
		CarID: "car-1", UserID: "user-1", Range: Range(t, "2024-06-01", "2024-06-04"),
	})
	require.NoError(t, err)
	_, err = h.Reservations.CancelBooking(ctx, b.ID, "no longer needed")
	require.NoError(t, err)

	events := h.Publisher.WaitFor(2, time.Second)
	require.Len(t, events, 2)

	var transition *service.BookingEvent
	for i := range events {
		if events[i].Type == service.NotificationBookingTransition {
			transition = &events[i]
		}
	}
	require.NotNil(t, transition)
	assert.Equal(t, string(domain.EventCancel), transition.Event)
	assert.Equal(t, string(domain.BookingStatusPending), transition.From)
	assert.Equal(t, string(domain.BookingStatusCancelled), transition.To)
	assert.Equal(t, "no longer needed", transition.Reason)
}

func TestAvailability_CancelDuringRefresh_RangeStaysFree(t *testing.T) {
	t.Parallel()

	h := NewHarness(t)
	h.AddCar(t, "car-1", 10000, nil)
	ctx := context.Background()

	r := Range(t, "2024-06-01", "2024-06-04")
	b, err := h.Reservations.CreateBooking(ctx, service.CreateBookingRequest{
		CarID: "car-1", UserID: "user-1", Range: r,
	})
	require.NoError(t, err)

	// Stall the refresh after it has read the booking as active.
	window := Range(t, "2024-06-01", "2024-06-30")
	reached, resume := h.Bookings.PauseNextListActiveByCar()
	type result struct {
		a   *service.Availability
		err error
	}
	read := make(chan result, 1)
	go func() {
		a, err := h.Reservations.Availability(ctx, "car-1", window)
		read <- result{a, err}
	}()
	<-reached

	cancelled := make(chan error, 1)
	go func() {
		_, err := h.Reservations.CancelBooking(ctx, b.ID, "")
		cancelled <- err
	}()
	require.Eventually(t, func() bool {
		stored, err := h.Bookings.BookingRepository.GetByID(ctx, b.ID)
		return err == nil && stored.Status == domain.BookingStatusCancelled
	}, time.Second, 5*time.Millisecond)

	resume()
	res := <-read
	require.NoError(t, res.err)
	assert.False(t, res.a.Free)
	require.NoError(t, <-cancelled)

	assert.True(t, h.Index.IsRangeFree("car-1", r), "a stale refresh must not resurrect a cancelled range")

	a, err := h.Reservations.Availability(ctx, "car-1", r)
	require.NoError(t, err)
	assert.Empty(t, a.BlockedRanges)
	assert.True(t, a.Free)
}
