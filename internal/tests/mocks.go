package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rental/internal/availability"
	"rental/internal/domain"
	"rental/internal/pricing"
	"rental/internal/redis"
	"rental/internal/repository/memory"
	"rental/internal/service"
)

// ──────────────────────────────────────────────
// CLOCK
// ──────────────────────────────────────────────

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock stopped at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository wraps the in-memory repository with counters and
// error injection.
type MockBookingRepository struct {
	*memory.BookingRepository

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error

	mu        sync.Mutex
	getPause  *readPause
	listPause *readPause
}

// readPause holds a single read after it completed until resumed.
type readPause struct {
	reached chan struct{}
	resume  chan struct{}
}

func newReadPause() *readPause {
	return &readPause{reached: make(chan struct{}), resume: make(chan struct{})}
}

func (p *readPause) hold() {
	if p == nil {
		return
	}
	close(p.reached)
	<-p.resume
}

// NewMockBookingRepository creates a new mock booking repository.
func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{BookingRepository: memory.NewBookingRepository()}
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	return m.BookingRepository.Create(ctx, booking)
}

func (m *MockBookingRepository) Update(ctx context.Context, booking *domain.Booking, from domain.BookingStatus) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	return m.BookingRepository.Update(ctx, booking, from)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := m.BookingRepository.GetByID(ctx, id)
	m.mu.Lock()
	p := m.getPause
	m.getPause = nil
	m.mu.Unlock()
	p.hold()
	return b, err
}

func (m *MockBookingRepository) ListActiveByCar(ctx context.Context, carID string) ([]*domain.Booking, error) {
	bookings, err := m.BookingRepository.ListActiveByCar(ctx, carID)
	m.mu.Lock()
	p := m.listPause
	m.listPause = nil
	m.mu.Unlock()
	p.hold()
	return bookings, err
}

// PauseNextGetByID stalls the next GetByID after it has read the store.
// reached closes once the read is stalled; resume lets it return.
func (m *MockBookingRepository) PauseNextGetByID() (reached <-chan struct{}, resume func()) {
	p := newReadPause()
	m.mu.Lock()
	m.getPause = p
	m.mu.Unlock()
	return p.reached, func() { close(p.resume) }
}

// PauseNextListActiveByCar stalls the next ListActiveByCar after it has read
// the store.
func (m *MockBookingRepository) PauseNextListActiveByCar() (reached <-chan struct{}, resume func()) {
	p := newReadPause()
	m.mu.Lock()
	m.listPause = p
	m.mu.Unlock()
	return p.reached, func() { close(p.resume) }
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of the distributed car lock.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]string),
	}
}

func (m *MockLockStore) AcquireCarLock(ctx context.Context, carID string, ttl time.Duration) (string, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceAcquireFailure {
		return "", nil
	}

	key := "lock:car:" + carID
	if _, held := m.locks[key]; held {
		return "", nil
	}
	token := uuid.New().String()
	m.locks[key] = token
	return token, nil
}

func (m *MockLockStore) ReleaseCarLock(ctx context.Context, carID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "lock:car:" + carID
	if m.locks[key] == token {
		delete(m.locks, key)
	}
	return nil
}

// SetForceAcquireFailure makes every acquire report the lock as held.
func (m *MockLockStore) SetForceAcquireFailure(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ForceAcquireFailure = fail
}

// IsLocked checks if a car is locked (for test assertions).
func (m *MockLockStore) IsLocked(carID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks["lock:car:"+carID]
	return held
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of the booking cache.
type MockCacheStore struct {
	mu       sync.Mutex
	bookings map[string]redis.CachedBooking

	// Counters
	HitCount        int32
	InvalidateCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{bookings: make(map[string]redis.CachedBooking)}
}

func (m *MockCacheStore) GetBooking(ctx context.Context, bookingID string) (*redis.CachedBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, nil
	}
	atomic.AddInt32(&m.HitCount, 1)
	return &b, nil
}

func (m *MockCacheStore) SetBooking(ctx context.Context, booking *redis.CachedBooking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = *booking
	return nil
}

func (m *MockCacheStore) InvalidateBooking(ctx context.Context, bookingID string) error {
	atomic.AddInt32(&m.InvalidateCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookings, bookingID)
	return nil
}

// Has reports whether a booking is cached.
func (m *MockCacheStore) Has(bookingID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bookings[bookingID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK CHECKOUT PROVIDER
// ──────────────────────────────────────────────

// MockCheckoutProvider is a mock payment session provider.
type MockCheckoutProvider struct {
	mu sync.Mutex

	// Control behavior
	FailError error

	// Counters
	CreateCallCount int32
	LastRequest     service.CheckoutSessionRequest
}

// NewMockCheckoutProvider creates a new mock checkout provider.
func NewMockCheckoutProvider() *MockCheckoutProvider {
	return &MockCheckoutProvider{}
}

func (m *MockCheckoutProvider) CreateSession(ctx context.Context, req service.CheckoutSessionRequest) (*service.CheckoutSession, error) {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRequest = req
	if m.FailError != nil {
		return nil, m.FailError
	}
	id := "cs_test_" + uuid.New().String()
	return &service.CheckoutSession{
		ID:        id,
		URL:       "https://pay.test/" + id,
		ExpiresAt: req.ExpiresAt,
	}, nil
}

// SetFailure configures the provider to fail.
func (m *MockCheckoutProvider) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailError = err
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockEventPublisher records published notifications.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []service.BookingEvent
}

// NewMockEventPublisher creates a new mock publisher.
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event service.BookingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the published events.
func (m *MockEventPublisher) Events() []service.BookingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.BookingEvent(nil), m.events...)
}

// WaitFor blocks until n events were published or the deadline passes.
func (m *MockEventPublisher) WaitFor(n int, timeout time.Duration) []service.BookingEvent {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ev := m.Events(); len(ev) >= n {
			return ev
		}
		time.Sleep(5 * time.Millisecond)
	}
	return m.Events()
}

// ──────────────────────────────────────────────
// HARNESS
// ──────────────────────────────────────────────

// Harness wires a ReservationService and PaymentService over in-memory
// repositories and mocks.
type Harness struct {
	Clock        *Clock
	Cars         *memory.CarRepository
	Bookings     *MockBookingRepository
	Drivers      *memory.DriverRepository
	Payments     *memory.PaymentRepository
	Index        *availability.Index
	Locks        *MockLockStore
	Cache        *MockCacheStore
	Provider     *MockCheckoutProvider
	Publisher    *MockEventPublisher
	Ledger       *service.VerificationLedger
	Reservations *service.ReservationService
	PaymentSvc   *service.PaymentService
}

// HarnessNow is the default fake time: Monday 2024-05-20 09:00 UTC.
var HarnessNow = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

// PaymentTTL is the payment window used by the harness.
const PaymentTTL = 30 * time.Minute

// NewHarness builds a fresh harness.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{
		Clock:     NewClock(HarnessNow),
		Cars:      memory.NewCarRepository(),
		Bookings:  NewMockBookingRepository(),
		Drivers:   memory.NewDriverRepository(),
		Payments:  memory.NewPaymentRepository(),
		Index:     availability.NewIndex(),
		Locks:     NewMockLockStore(),
		Cache:     NewMockCacheStore(),
		Provider:  NewMockCheckoutProvider(),
		Publisher: NewMockEventPublisher(),
	}

	logger := zap.NewNop()
	h.Ledger = service.NewVerificationLedger(h.Drivers, h.Clock.Now, logger)
	h.Reservations = service.NewReservationService(service.ReservationDeps{
		CarRepo:     h.Cars,
		BookingRepo: h.Bookings,
		Index:       h.Index,
		Calculator:  pricing.NewCalculator(pricing.DefaultConfig()),
		Ledger:      h.Ledger,
		LockStore:   h.Locks,
		CacheStore:  h.Cache,
		Notifier:    service.NewNotificationService(h.Publisher, logger),
		Config: service.ReservationConfig{
			MaxRangeDays:      domain.MaxRangeDays,
			PaymentSessionTTL: PaymentTTL,
			LockWait:          time.Second,
			LockTTL:           5 * time.Second,
		},
		Now:    h.Clock.Now,
		Logger: logger,
	})
	h.PaymentSvc = service.NewPaymentService(h.Payments, h.Reservations, h.Provider, "usd", h.Clock.Now, logger)
	return h
}

// AddCar stores a car priced at pricePerDay cents.
func (h *Harness) AddCar(t *testing.T, id string, pricePerDay int64, tiers *domain.PricingTiers) *domain.Car {
	t.Helper()
	car := &domain.Car{ID: id, Name: "Car " + id, PricePerDayCents: pricePerDay, PricingTiers: tiers, CreatedAt: HarnessNow}
	if err := h.Cars.Create(context.Background(), car); err != nil {
		t.Fatalf("add car: %v", err)
	}
	return car
}

// AddDriver stores a driver with the given verification flags.
func (h *Harness) AddDriver(t *testing.T, id string, licenseVerified, insuranceVerified bool) *domain.Driver {
	t.Helper()
	d := &domain.Driver{
		ID:     id,
		UserID: "user-" + id,
		License: domain.License{
			Number:     "L-" + id,
			IssuedBy:   "DMV",
			ExpiryDate: HarnessNow.AddDate(2, 0, 0),
			Verified:   licenseVerified,
		},
		Insurance: domain.Insurance{
			Provider:     "Acme",
			PolicyNumber: "P-" + id,
			ExpiryDate:   HarnessNow.AddDate(1, 0, 0),
			Verified:     insuranceVerified,
		},
		CreatedAt: HarnessNow,
		UpdatedAt: HarnessNow,
	}
	if err := h.Drivers.Create(context.Background(), d); err != nil {
		t.Fatalf("add driver: %v", err)
	}
	return d
}

// AddBooking stores a booking directly, bypassing admission.
func (h *Harness) AddBooking(t *testing.T, id, carID string, r domain.DateRange, status domain.BookingStatus) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		ID:        id,
		CarID:     carID,
		UserID:    "user-1",
		Range:     r,
		Status:    status,
		CreatedAt: HarnessNow,
		UpdatedAt: HarnessNow,
	}
	if err := h.Bookings.BookingRepository.Create(context.Background(), b); err != nil {
		t.Fatalf("add booking: %v", err)
	}
	return b
}

// Range parses a date range or fails the test.
func Range(t *testing.T, start, end string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(start, end)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	return r
}

// LicenseRecord is valid license verification data.
func LicenseRecord(number string) domain.VerificationRecord {
	return domain.VerificationRecord{Number: number, IssuedBy: "DMV", ExpiryDate: HarnessNow.AddDate(3, 0, 0)}
}

// InsuranceRecord is valid insurance verification data.
func InsuranceRecord(policy string) domain.VerificationRecord {
	return domain.VerificationRecord{Provider: "Acme", PolicyNumber: policy, ExpiryDate: HarnessNow.AddDate(1, 0, 0)}
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
