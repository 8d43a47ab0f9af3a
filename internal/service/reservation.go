package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"rental/internal/availability"
	"rental/internal/domain"
	"rental/internal/pricing"
	"rental/internal/redis"
	"rental/internal/repository"
)

// ReservationConfig contains the admission and payment window settings.
type ReservationConfig struct {
	MaxRangeDays      int
	PaymentSessionTTL time.Duration
	LockWait          time.Duration
	LockTTL           time.Duration
}

// DefaultReservationConfig returns the default reservation configuration.
func DefaultReservationConfig() ReservationConfig {
	return ReservationConfig{
		MaxRangeDays:      domain.MaxRangeDays,
		PaymentSessionTTL: 30 * time.Minute,
		LockWait:          2 * time.Second,
		LockTTL:           10 * time.Second,
	}
}

// ReservationDeps contains the collaborators of a ReservationService.
// LockStore, CacheStore and Notifier are optional.
type ReservationDeps struct {
	CarRepo     repository.CarRepository
	BookingRepo repository.BookingRepository
	Index       *availability.Index
	Calculator  *pricing.Calculator
	Ledger      *VerificationLedger
	LockStore   redis.LockStoreInterface
	CacheStore  redis.CacheStoreInterface
	Notifier    *NotificationService
	Config      ReservationConfig
	Now         func() time.Time
	Logger      *zap.Logger
}

// ReservationService coordinates availability, pricing, driver verification
// and the booking lifecycle. It is the single writer of booking state.
//
// Admission for one car is serialised by the index's car lock, and across
// instances by the optional Redis car lock. The bookings table's exclusion
// constraint rejects anything that slips past both.
type ReservationService struct {
	carRepo     repository.CarRepository
	bookingRepo repository.BookingRepository
	index       *availability.Index
	calculator  *pricing.Calculator
	ledger      *VerificationLedger
	lockStore   redis.LockStoreInterface
	cacheStore  redis.CacheStoreInterface
	notifier    *NotificationService
	cfg         ReservationConfig
	now         func() time.Time
	logger      *zap.Logger

	bookingLocks *keyedMutex
}

// NewReservationService creates a new ReservationService.
func NewReservationService(deps ReservationDeps) *ReservationService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	defaults := DefaultReservationConfig()
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = defaults.MaxRangeDays
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = defaults.LockWait
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.PaymentSessionTTL <= 0 {
		cfg.PaymentSessionTTL = defaults.PaymentSessionTTL
	}
	return &ReservationService{
		carRepo:      deps.CarRepo,
		bookingRepo:  deps.BookingRepo,
		index:        deps.Index,
		calculator:   deps.Calculator,
		ledger:       deps.Ledger,
		lockStore:    deps.LockStore,
		cacheStore:   deps.CacheStore,
		notifier:     deps.Notifier,
		cfg:          cfg,
		now:          now,
		logger:       logger,
		bookingLocks: newKeyedMutex(),
	}
}

// DriverSelection picks the driver of a booking: an existing driver by ID, or
// a new one registered from the given documents.
type DriverSelection struct {
	DriverID string
	New      *DriverRegistration
}

func (d DriverSelection) empty() bool {
	return d.DriverID == "" && d.New == nil
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	CarID  string
	UserID string
	Range  domain.DateRange
	Driver DriverSelection
}

// CreateBooking admits a booking for a car and date range.
//
// The range is validated, atomically checked and reserved, priced and
// persisted as PENDING. A driver who already has both documents verified moves
// the booking straight to PAYMENT_PENDING.
func (s *ReservationService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	defer newrelic.FromContext(ctx).StartSegment("ReservationService/CreateBooking").End()

	if strings.TrimSpace(req.CarID) == "" {
		return nil, ErrInvalidCarID
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrInvalidUserID
	}
	if err := s.validateRange(req.Range); err != nil {
		return nil, err
	}

	car, err := s.getCar(ctx, req.CarID)
	if err != nil {
		return nil, err
	}

	// A new driver is only stored once the range has been reserved.
	var driver, newDriver *domain.Driver
	if !req.Driver.empty() {
		driver, newDriver, err = s.resolveDriver(ctx, req.UserID, req.Driver)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	booking := &domain.Booking{
		ID:        uuid.New().String(),
		CarID:     car.ID,
		UserID:    req.UserID,
		Range:     req.Range,
		Status:    domain.BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if driver != nil {
		booking.DriverID = driver.ID
		if err := booking.Apply(domain.EventAttachDriver, now); err != nil {
			return nil, err
		}
		if driver.FullyVerified() {
			if err := s.apply(booking, domain.EventDocumentsVerified, now); err != nil {
				return nil, err
			}
		}
	}

	err = s.admit(ctx, car, booking, newDriver)
	var cerr *domain.ConcurrencyError
	if errors.As(err, &cerr) {
		s.logger.Info("car lock busy, retrying admission", zap.String("car_id", car.ID))
		err = s.admit(ctx, car, booking, newDriver)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("car_id", booking.CarID),
		zap.String("range", booking.Range.String()),
		zap.String("status", string(booking.Status)),
		zap.Int64("total_cents", booking.Price.TotalCents),
	)
	if s.notifier != nil {
		s.notifier.NotifyBookingCreated(ctx, booking)
	}
	return booking, nil
}

// admit runs the check-and-insert for one booking while holding the car lock.
// newDriver, when set, is saved after the range is reserved and removed again
// if the booking cannot be stored.
func (s *ReservationService) admit(ctx context.Context, car *domain.Car, booking *domain.Booking, newDriver *domain.Driver) error {
	release, err := s.lockCar(ctx, car.ID)
	if err != nil {
		return err
	}
	defer release()

	// Another instance may have admitted bookings for this car since the index
	// was last loaded, so refresh it from the store first.
	active, err := s.bookingRepo.ListActiveByCar(ctx, car.ID)
	if err != nil {
		return fmt.Errorf("load active bookings: %w", err)
	}
	s.index.Load(car.ID, toEntries(active))

	if err := s.index.Reserve(car.ID, booking.ID, booking.Range); err != nil {
		return err
	}

	booking.Price = s.calculator.Compute(car, booking.Range)

	if newDriver != nil {
		if err := s.ledger.Save(ctx, newDriver); err != nil {
			s.index.Release(car.ID, booking.ID)
			return err
		}
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		s.index.Release(car.ID, booking.ID)
		if newDriver != nil {
			s.ledger.Discard(context.WithoutCancel(ctx), newDriver.ID)
		}
		return err
	}
	return nil
}

// lockCar takes the in-process car lock and, when configured, the distributed one.
func (s *ReservationService) lockCar(ctx context.Context, carID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockWait)
	defer cancel()

	unlock, err := s.index.LockCar(lockCtx, carID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.ConcurrencyError{CarID: carID}
	}

	if s.lockStore == nil {
		return unlock, nil
	}

	token, err := s.lockStore.AcquireCarLock(ctx, carID, s.cfg.LockTTL)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("acquire car lock: %w", err)
	}
	if token == "" {
		unlock()
		return nil, &domain.ConcurrencyError{CarID: carID}
	}

	return func() {
		if err := s.lockStore.ReleaseCarLock(context.WithoutCancel(ctx), carID, token); err != nil {
			s.logger.Warn("failed to release car lock", zap.String("car_id", carID), zap.Error(err))
		}
		unlock()
	}, nil
}

// AttachDriverRequest contains the parameters for attaching a driver to a booking.
type AttachDriverRequest struct {
	BookingID string
	Driver    DriverSelection
}

// AttachDriver attaches a driver to a PENDING booking. If the driver has both
// documents verified the booking becomes payment eligible immediately.
func (s *ReservationService) AttachDriver(ctx context.Context, req AttachDriverRequest) (*domain.Booking, error) {
	defer newrelic.FromContext(ctx).StartSegment("ReservationService/AttachDriver").End()

	if req.BookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if req.Driver.empty() {
		return nil, ErrDriverSelectionRequired
	}

	current, err := s.loadBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.BookingStatusPending {
		return nil, &domain.InvalidTransitionError{From: current.Status, Event: domain.EventAttachDriver}
	}

	driver, newDriver, err := s.resolveDriver(ctx, current.UserID, req.Driver)
	if err != nil {
		return nil, err
	}

	saved := false
	booking, err := s.transition(ctx, req.BookingID, domain.EventAttachDriver, func(b *domain.Booking) error {
		if b.Status != domain.BookingStatusPending {
			return &domain.InvalidTransitionError{From: b.Status, Event: domain.EventAttachDriver}
		}
		if newDriver != nil {
			if err := s.ledger.Save(ctx, newDriver); err != nil {
				return err
			}
			saved = true
		}
		b.DriverID = driver.ID
		return nil
	})
	if err != nil {
		if saved {
			s.ledger.Discard(context.WithoutCancel(ctx), newDriver.ID)
		}
		return nil, err
	}

	if driver.FullyVerified() {
		return s.transition(ctx, booking.ID, domain.EventDocumentsVerified, nil)
	}
	return booking, nil
}

// VerifyDocument verifies one document of a driver. Once both documents are
// verified, every PENDING booking of the driver becomes PAYMENT_PENDING.
func (s *ReservationService) VerifyDocument(ctx context.Context, driverID string, doc domain.DocumentType, rec domain.VerificationRecord) (*domain.Driver, error) {
	defer newrelic.FromContext(ctx).StartSegment("ReservationService/VerifyDocument").End()

	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, changed, err := s.ledger.VerifyDocument(ctx, driverID, doc, rec)
	if err != nil {
		return nil, err
	}
	if changed && s.notifier != nil {
		s.notifier.NotifyDocument(ctx, driver, doc)
	}

	if driver.FullyVerified() {
		s.advanceDriverBookings(ctx, driverID, domain.EventDocumentsVerified)
	}
	return driver, nil
}

// RejectDocument rejects one document of a driver. PENDING bookings of the
// driver are rejected and their ranges released.
func (s *ReservationService) RejectDocument(ctx context.Context, driverID string, doc domain.DocumentType) (*domain.Driver, error) {
	defer newrelic.FromContext(ctx).StartSegment("ReservationService/RejectDocument").End()

	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, changed, err := s.ledger.RejectDocument(ctx, driverID, doc)
	if err != nil {
		return nil, err
	}
	if changed && s.notifier != nil {
		s.notifier.NotifyDocument(ctx, driver, doc)
	}

	s.advanceDriverBookings(ctx, driverID, domain.EventDocumentRejected)
	return driver, nil
}

// advanceDriverBookings fires ev on every PENDING booking of a driver. A booking
// that moved on concurrently is skipped.
func (s *ReservationService) advanceDriverBookings(ctx context.Context, driverID string, ev domain.Event) {
	bookings, err := s.bookingRepo.ListByDriver(ctx, driverID, domain.BookingStatusPending)
	if err != nil {
		s.logger.Error("failed to list driver bookings",
			zap.String("driver_id", driverID),
			zap.Error(err),
		)
		return
	}

	for _, b := range bookings {
		if _, err := s.transition(ctx, b.ID, ev, nil); err != nil {
			s.logger.Warn("booking not advanced",
				zap.String("booking_id", b.ID),
				zap.String("event", string(ev)),
				zap.Error(err),
			)
		}
	}
}

// RecordPayment confirms a booking after a successful payment. It is the only
// way into CONFIRMED: the booking must be PAYMENT_PENDING and its driver must
// have both documents verified, otherwise a PaymentGateError is returned.
func (s *ReservationService) RecordPayment(ctx context.Context, bookingID, paymentRef string) (*domain.Booking, error) {
	defer newrelic.FromContext(ctx).StartSegment("ReservationService/RecordPayment").End()

	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if strings.TrimSpace(paymentRef) == "" {
		return nil, ErrInvalidPaymentRef
	}

	return s.transition(ctx, bookingID, domain.EventPaymentSucceeded, func(b *domain.Booking) error {
		if err := s.checkPaymentGate(ctx, b); err != nil {
			return err
		}
		b.PaymentRef = paymentRef
		return nil
	})
}

// CheckPaymentGate reports whether a booking may be paid right now.
// It always reads the store, never the cache.
func (s *ReservationService) CheckPaymentGate(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPaymentGate(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *ReservationService) checkPaymentGate(ctx context.Context, b *domain.Booking) error {
	if b.Status != domain.BookingStatusPaymentPending {
		return &domain.PaymentGateError{
			BookingID: b.ID,
			Reason:    fmt.Sprintf("booking is %s, payment requires %s", b.Status, domain.BookingStatusPaymentPending),
		}
	}
	if b.DriverID == "" {
		return &domain.PaymentGateError{BookingID: b.ID, Reason: "no driver attached"}
	}

	driver, err := s.ledger.Get(ctx, b.DriverID)
	if err != nil {
		return err
	}

	var missing []string
	if !driver.License.Verified {
		missing = append(missing, string(domain.DocumentLicense))
	}
	if !driver.Insurance.Verified {
		missing = append(missing, string(domain.DocumentInsurance))
	}
	if len(missing) > 0 {
		return &domain.PaymentGateError{
			BookingID: b.ID,
			Reason:    "driver " + strings.Join(missing, " and ") + " not verified",
		}
	}
	return nil
}

// CancelBooking cancels a booking from any non-terminal status and frees its range.
func (s *ReservationService) CancelBooking(ctx context.Context, bookingID, reason string) (*domain.Booking, error) {
	defer newrelic.FromContext(ctx).StartSegment("ReservationService/CancelBooking").End()

	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	return s.transition(ctx, bookingID, domain.EventCancel, func(b *domain.Booking) error {
		b.CancelReason = reason
		return nil
	})
}

// RecordPickup marks a CONFIRMED booking ACTIVE. Pickup before the first
// rental day is rejected.
func (s *ReservationService) RecordPickup(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	return s.transition(ctx, bookingID, domain.EventPickupRecorded, nil)
}

// RecordReturn marks an ACTIVE booking COMPLETED.
func (s *ReservationService) RecordReturn(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	return s.transition(ctx, bookingID, domain.EventReturnRecorded, nil)
}

// ExpirePaymentSessions cancels PAYMENT_PENDING bookings whose payment window
// has closed and returns them. This is the only transition without an explicit
// external trigger.
func (s *ReservationService) ExpirePaymentSessions(ctx context.Context) ([]*domain.Booking, error) {
	now := s.now()
	overdue, err := s.bookingRepo.ListPaymentOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue bookings: %w", err)
	}

	var expired []*domain.Booking
	for _, candidate := range overdue {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		b, err := s.transition(ctx, candidate.ID, domain.EventPaymentSessionExpired, func(b *domain.Booking) error {
			if b.Status == domain.BookingStatusPaymentPending && !b.PaymentDueAt.Before(now) {
				return errPaymentWindowOpen
			}
			b.CancelReason = "payment session expired"
			return nil
		})
		if err != nil {
			// Paid or cancelled in the meantime.
			s.logger.Debug("booking not expired",
				zap.String("booking_id", candidate.ID),
				zap.Error(err),
			)
			continue
		}
		expired = append(expired, b)
	}
	return expired, nil
}

var errPaymentWindowOpen = errors.New("payment window still open")

// transition loads a booking, lets prepare adjust it, applies ev and persists
// the result. Leaving the active set releases the booking's range before it returns.
func (s *ReservationService) transition(ctx context.Context, bookingID string, ev domain.Event, prepare func(b *domain.Booking) error) (*domain.Booking, error) {
	unlock := s.bookingLocks.Lock(bookingID)
	defer unlock()

	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	from := b.Status

	if prepare != nil {
		if err := prepare(b); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if err := s.apply(b, ev, now); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b, from); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, &domain.ConcurrencyError{CarID: b.CarID}
		}
		return nil, err
	}

	if from.IsActive() && !b.Status.IsActive() {
		s.releaseRange(ctx, b.CarID, b.ID)
	}
	s.invalidateBooking(ctx, b.ID)

	s.logger.Info("booking transition",
		zap.String("booking_id", b.ID),
		zap.String("car_id", b.CarID),
		zap.String("event", string(ev)),
		zap.String("from", string(from)),
		zap.String("to", string(b.Status)),
	)
	if s.notifier != nil {
		s.notifier.NotifyTransition(ctx, b, from, ev)
	}
	return b, nil
}

// releaseRange frees a booking's range under the car lock, so a concurrent
// index refresh cannot bring it back.
func (s *ReservationService) releaseRange(ctx context.Context, carID, bookingID string) {
	lockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LockWait)
	defer cancel()

	unlock, err := s.index.LockCar(lockCtx, carID)
	if err != nil {
		s.logger.Warn("car lock busy, releasing range without it",
			zap.String("car_id", carID),
			zap.String("booking_id", bookingID),
		)
		s.index.Release(carID, bookingID)
		return
	}
	defer unlock()
	s.index.Release(carID, bookingID)
}

// apply runs the lifecycle transition and stamps the payment window on entry
// to PAYMENT_PENDING.
func (s *ReservationService) apply(b *domain.Booking, ev domain.Event, now time.Time) error {
	if err := b.Apply(ev, now); err != nil {
		return err
	}
	if b.Status == domain.BookingStatusPaymentPending {
		b.PaymentDueAt = now.Add(s.cfg.PaymentSessionTTL)
	}
	return nil
}

// GetBooking retrieves a booking, reading through the cache when configured.
func (s *ReservationService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetBooking(ctx, bookingID)
		if err == nil && cached != nil {
			if b, err := fromCached(cached); err == nil {
				return b, nil
			}
		}
	}

	if s.cacheStore == nil {
		return s.loadBooking(ctx, bookingID)
	}

	// Read and fill under the booking lock so a transition's invalidation
	// cannot be overtaken by a stale fill.
	unlock := s.bookingLocks.Lock(bookingID)
	defer unlock()

	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.cacheStore.SetBooking(ctx, toCached(b)); err != nil {
		s.logger.Debug("failed to cache booking", zap.String("booking_id", b.ID), zap.Error(err))
	}
	return b, nil
}

func (s *ReservationService) loadBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "booking", ID: bookingID}
		}
		return nil, err
	}
	return b, nil
}

func (s *ReservationService) invalidateBooking(ctx context.Context, bookingID string) {
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.InvalidateBooking(ctx, bookingID); err != nil {
		s.logger.Warn("failed to invalidate booking cache", zap.String("booking_id", bookingID), zap.Error(err))
	}
}

// Availability describes a car's calendar for a window. Free reports whether
// the whole window could be booked right now.
type Availability struct {
	Car           *domain.Car
	BlockedRanges []domain.DateRange
	Free          bool
}

// Availability returns the occupied ranges of a car inside window, read fresh from the store.
func (s *ReservationService) Availability(ctx context.Context, carID string, window domain.DateRange) (*Availability, error) {
	if carID == "" {
		return nil, ErrInvalidCarID
	}
	if window.Days() <= 0 {
		return nil, &domain.ValidationError{Field: "end", Reason: "must be after start"}
	}

	car, err := s.getCar(ctx, carID)
	if err != nil {
		return nil, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockWait)
	defer cancel()
	unlock, err := s.index.LockCar(lockCtx, carID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.ConcurrencyError{CarID: carID}
	}
	defer unlock()

	active, err := s.bookingRepo.ListActiveByCar(ctx, carID)
	if err != nil {
		return nil, fmt.Errorf("load active bookings: %w", err)
	}
	s.index.Load(carID, toEntries(active))

	return &Availability{
		Car:           car,
		BlockedRanges: s.index.BlockedRanges(carID, window),
		Free:          s.index.IsRangeFree(carID, window),
	}, nil
}

// Quote prices a range for a car without reserving it.
func (s *ReservationService) Quote(ctx context.Context, carID string, r domain.DateRange) (*domain.Car, domain.Quote, error) {
	if carID == "" {
		return nil, domain.Quote{}, ErrInvalidCarID
	}
	if err := r.Validate(s.cfg.MaxRangeDays); err != nil {
		return nil, domain.Quote{}, err
	}

	car, err := s.getCar(ctx, carID)
	if err != nil {
		return nil, domain.Quote{}, err
	}
	return car, s.calculator.Compute(car, r), nil
}

// WarmUp loads every active booking into the availability index.
func (s *ReservationService) WarmUp(ctx context.Context) error {
	active, err := s.bookingRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load active bookings: %w", err)
	}

	byCar := make(map[string][]*domain.Booking)
	for _, b := range active {
		byCar[b.CarID] = append(byCar[b.CarID], b)
	}
	for carID, bookings := range byCar {
		s.index.Load(carID, toEntries(bookings))
	}

	s.logger.Info("availability index loaded",
		zap.Int("cars", len(byCar)),
		zap.Int("bookings", len(active)),
	)
	return nil
}

// CreateCarRequest contains the parameters for listing a car.
type CreateCarRequest struct {
	Name             string
	PricePerDayCents int64
	PricingTiers     *domain.PricingTiers
}

// CreateCar lists a new car.
func (s *ReservationService) CreateCar(ctx context.Context, req CreateCarRequest) (*domain.Car, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "is required"}
	}
	if req.PricePerDayCents <= 0 {
		return nil, &domain.ValidationError{Field: "price_per_day", Reason: "must be positive"}
	}
	if err := pricing.ValidateTiers(req.PricingTiers); err != nil {
		return nil, err
	}

	car := &domain.Car{
		ID:               uuid.New().String(),
		Name:             strings.TrimSpace(req.Name),
		PricePerDayCents: req.PricePerDayCents,
		PricingTiers:     req.PricingTiers,
		CreatedAt:        s.now(),
	}
	if err := s.carRepo.Create(ctx, car); err != nil {
		return nil, err
	}

	s.logger.Info("car created", zap.String("car_id", car.ID), zap.Int64("price_per_day_cents", car.PricePerDayCents))
	return car, nil
}

// GetCar retrieves a car.
func (s *ReservationService) GetCar(ctx context.Context, carID string) (*domain.Car, error) {
	if carID == "" {
		return nil, ErrInvalidCarID
	}
	return s.getCar(ctx, carID)
}

// ListCars retrieves all cars.
func (s *ReservationService) ListCars(ctx context.Context) ([]*domain.Car, error) {
	return s.carRepo.GetAll(ctx)
}

func (s *ReservationService) validateRange(r domain.DateRange) error {
	if err := r.Validate(s.cfg.MaxRangeDays); err != nil {
		return err
	}
	if r.Start.Before(domain.Date(s.now())) {
		return &domain.ValidationError{Field: "start", Reason: "must not be in the past"}
	}
	return nil
}

func (s *ReservationService) getCar(ctx context.Context, carID string) (*domain.Car, error) {
	car, err := s.carRepo.GetByID(ctx, carID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "car", ID: carID}
		}
		return nil, err
	}
	return car, nil
}

// resolveDriver looks up the selected driver. A new driver is built but not
// stored; it is returned a second time so the caller knows to save it.
func (s *ReservationService) resolveDriver(ctx context.Context, userID string, sel DriverSelection) (driver, newDriver *domain.Driver, err error) {
	if sel.DriverID != "" {
		driver, err = s.ledger.Get(ctx, sel.DriverID)
		return driver, nil, err
	}
	reg := *sel.New
	if reg.UserID == "" {
		reg.UserID = userID
	}
	newDriver, err = s.ledger.Prepare(reg)
	if err != nil {
		return nil, nil, err
	}
	return newDriver, newDriver, nil
}

func toEntries(bookings []*domain.Booking) []availability.Entry {
	entries := make([]availability.Entry, 0, len(bookings))
	for _, b := range bookings {
		entries = append(entries, availability.Entry{BookingID: b.ID, Range: b.Range})
	}
	return entries
}

func toCached(b *domain.Booking) *redis.CachedBooking {
	return &redis.CachedBooking{
		ID:              b.ID,
		CarID:           b.CarID,
		UserID:          b.UserID,
		DriverID:        b.DriverID,
		Start:           b.Range.Start.Format(domain.DateLayout),
		End:             b.Range.End.Format(domain.DateLayout),
		Status:          string(b.Status),
		SubtotalCents:   b.Price.SubtotalCents,
		ServiceFeeCents: b.Price.ServiceFeeCents,
		TaxCents:        b.Price.TaxCents,
		TotalCents:      b.Price.TotalCents,
		PaymentDueAt:    b.PaymentDueAt,
		PaymentRef:      b.PaymentRef,
		CancelReason:    b.CancelReason,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func fromCached(c *redis.CachedBooking) (*domain.Booking, error) {
	r, err := domain.ParseDateRange(c.Start, c.End)
	if err != nil {
		return nil, err
	}
	return &domain.Booking{
		ID:       c.ID,
		CarID:    c.CarID,
		UserID:   c.UserID,
		DriverID: c.DriverID,
		Range:    r,
		Status:   domain.BookingStatus(c.Status),
		Price: domain.Quote{
			SubtotalCents:   c.SubtotalCents,
			ServiceFeeCents: c.ServiceFeeCents,
			TaxCents:        c.TaxCents,
			TotalCents:      c.TotalCents,
		},
		PaymentDueAt: c.PaymentDueAt,
		PaymentRef:   c.PaymentRef,
		CancelReason: c.CancelReason,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}, nil
}
