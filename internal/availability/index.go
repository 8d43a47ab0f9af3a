package availability

import (
	"context"
	"sort"
	"sync"

	"rental/internal/domain"
)

// Entry is an active booking occupying a range of a car.
type Entry struct {
	BookingID string
	Range     domain.DateRange
}

// Index holds the occupied ranges of every car. Entries of one car are kept
// sorted by start and never overlap, so lookups are a binary search.
//
// Reserve is an atomic check-and-insert. Callers that also persist the booking
// hold LockCar around the whole admission so the store and the index agree.
type Index struct {
	mu   sync.RWMutex
	cars map[string][]Entry

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		cars:  make(map[string][]Entry),
		locks: make(map[string]chan struct{}),
	}
}

// LockCar serialises admission for one car. It blocks until the lock is free
// or ctx is done. Cars never contend with each other.
func (x *Index) LockCar(ctx context.Context, carID string) (unlock func(), err error) {
	x.locksMu.Lock()
	sem, ok := x.locks[carID]
	if !ok {
		sem = make(chan struct{}, 1)
		x.locks[carID] = sem
	}
	x.locksMu.Unlock()

	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsRangeFree reports whether no active booking of the car overlaps r.
func (x *Index) IsRangeFree(carID string, r domain.DateRange) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, found := conflict(x.cars[carID], r)
	return !found
}

// Reserve records bookingID as occupying r. It fails with a ConflictError when
// r overlaps another booking. Reserving the same booking and range twice is a no-op.
func (x *Index) Reserve(carID, bookingID string, r domain.DateRange) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	entries := x.cars[carID]
	if i, found := conflict(entries, r); found {
		if entries[i].BookingID == bookingID && entries[i].Range == r {
			return nil
		}
		return &domain.ConflictError{CarID: carID, Range: r}
	}

	pos := sort.Search(len(entries), func(i int) bool { return !entries[i].Range.Start.Before(r.Start) })
	entries = append(entries, Entry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = Entry{BookingID: bookingID, Range: r}
	x.cars[carID] = entries
	return nil
}

// Release frees the range held by bookingID. It reports whether anything was removed.
func (x *Index) Release(carID, bookingID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	entries := x.cars[carID]
	for i, e := range entries {
		if e.BookingID == bookingID {
			x.cars[carID] = append(entries[:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// BlockedRanges returns the occupied ranges of the car clipped to window, in start order.
func (x *Index) BlockedRanges(carID string, window domain.DateRange) []domain.DateRange {
	x.mu.RLock()
	defer x.mu.RUnlock()

	blocked := make([]domain.DateRange, 0)
	for _, e := range x.cars[carID] {
		if !e.Range.Start.Before(window.End) {
			break
		}
		if clipped, ok := e.Range.Clip(window); ok {
			blocked = append(blocked, clipped)
		}
	}
	return blocked
}

// Load replaces the entries of a car, typically with the active bookings read
// from the store. Overlapping input is kept as is; the store guarantees it cannot happen.
func (x *Index) Load(carID string, entries []Entry) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Range.Start.Before(sorted[j].Range.Start) })

	x.mu.Lock()
	defer x.mu.Unlock()
	if len(sorted) == 0 {
		delete(x.cars, carID)
		return
	}
	x.cars[carID] = sorted
}

// Entries returns a copy of the car's entries in start order.
func (x *Index) Entries(carID string) []Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Entry, len(x.cars[carID]))
	copy(out, x.cars[carID])
	return out
}

// conflict finds the first entry overlapping r. Because entries are disjoint and
// sorted by start they are sorted by end too, so the first entry ending after
// r.Start is the only candidate.
func conflict(entries []Entry, r domain.DateRange) (int, bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Range.End.After(r.Start) })
	if i < len(entries) && entries[i].Range.Start.Before(r.End) {
		return i, true
	}
	return i, false
}
