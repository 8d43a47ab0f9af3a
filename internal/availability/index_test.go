package availability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental/internal/domain"
)

func rng(t *testing.T, start, end string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func TestIndex_ReserveRejectsOverlap(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	require.NoError(t, idx.Reserve("car-x", "b-1", rng(t, "2024-06-01", "2024-06-05")))

	err := idx.Reserve("car-x", "b-2", rng(t, "2024-06-03", "2024-06-07"))
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "car-x", cerr.CarID)

	// Same-day turnover is allowed.
	require.NoError(t, idx.Reserve("car-x", "b-3", rng(t, "2024-06-05", "2024-06-07")))
	require.NoError(t, idx.Reserve("car-x", "b-4", rng(t, "2024-05-28", "2024-06-01")))

	// Other cars are unaffected.
	require.NoError(t, idx.Reserve("car-y", "b-5", rng(t, "2024-06-02", "2024-06-04")))

	entries := idx.Entries("car-x")
	require.Len(t, entries, 3)
	assert.Equal(t, "b-4", entries[0].BookingID)
	assert.Equal(t, "b-1", entries[1].BookingID)
	assert.Equal(t, "b-3", entries[2].BookingID)
}

func TestIndex_ReserveSameBookingTwiceIsNoop(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	r := rng(t, "2024-06-01", "2024-06-05")
	require.NoError(t, idx.Reserve("car-x", "b-1", r))
	require.NoError(t, idx.Reserve("car-x", "b-1", r))
	assert.Len(t, idx.Entries("car-x"), 1)
}

func TestIndex_ReleaseFreesRange(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	r := rng(t, "2024-06-01", "2024-06-05")
	require.NoError(t, idx.Reserve("car-x", "b-1", r))
	assert.False(t, idx.IsRangeFree("car-x", r))

	assert.True(t, idx.Release("car-x", "b-1"))
	assert.True(t, idx.IsRangeFree("car-x", r))
	assert.False(t, idx.Release("car-x", "b-1"))
}

func TestIndex_BlockedRangesClipsToWindow(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	require.NoError(t, idx.Reserve("car-x", "b-1", rng(t, "2024-05-28", "2024-06-03")))
	require.NoError(t, idx.Reserve("car-x", "b-2", rng(t, "2024-06-10", "2024-06-12")))
	require.NoError(t, idx.Reserve("car-x", "b-3", rng(t, "2024-06-28", "2024-07-04")))
	require.NoError(t, idx.Reserve("car-x", "b-4", rng(t, "2024-07-10", "2024-07-12")))

	blocked := idx.BlockedRanges("car-x", rng(t, "2024-06-01", "2024-07-01"))

	got := make([]string, 0, len(blocked))
	for _, b := range blocked {
		got = append(got, b.String())
	}
	assert.Equal(t, []string{
		"[2024-06-01, 2024-06-03)",
		"[2024-06-10, 2024-06-12)",
		"[2024-06-28, 2024-07-01)",
	}, got)

	assert.Empty(t, idx.BlockedRanges("car-unknown", rng(t, "2024-06-01", "2024-07-01")))
}

func TestIndex_LoadReplacesEntries(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	require.NoError(t, idx.Reserve("car-x", "stale", rng(t, "2024-06-01", "2024-06-05")))

	idx.Load("car-x", []Entry{
		{BookingID: "b-2", Range: rng(t, "2024-06-10", "2024-06-12")},
		{BookingID: "b-1", Range: rng(t, "2024-06-07", "2024-06-09")},
	})

	assert.True(t, idx.IsRangeFree("car-x", rng(t, "2024-06-01", "2024-06-05")))
	entries := idx.Entries("car-x")
	require.Len(t, entries, 2)
	assert.Equal(t, "b-1", entries[0].BookingID)

	idx.Load("car-x", nil)
	assert.Empty(t, idx.Entries("car-x"))
}

func TestIndex_ConcurrentReservesNeverOverlap(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every request overlaps every other one on 2024-06-03.
			offset := time.Duration(i%3) * 24 * time.Hour
			r := domain.NewDateRange(start.Add(offset), start.Add(offset+3*24*time.Hour))
			if err := idx.Reserve("car-x", fmt.Sprintf("b-%d", i), r); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	entries := idx.Entries("car-x")
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			assert.False(t, entries[i].Range.Overlaps(entries[j].Range))
		}
	}
}

func TestIndex_LockCarIsPerCarAndCancellable(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	unlock, err := idx.LockCar(context.Background(), "car-x")
	require.NoError(t, err)

	// A different car is not blocked.
	unlockY, err := idx.LockCar(context.Background(), "car-y")
	require.NoError(t, err)
	unlockY()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = idx.LockCar(ctx, "car-x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is harmless

	unlock2, err := idx.LockCar(context.Background(), "car-x")
	require.NoError(t, err)
	unlock2()
}
