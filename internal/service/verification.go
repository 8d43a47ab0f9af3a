package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rental/internal/domain"
	"rental/internal/repository"
)

// VerificationLedger owns the per-driver document verification state.
// License and insurance are verified independently; updates for one driver are
// serialised, different drivers proceed in parallel.
type VerificationLedger struct {
	driverRepo repository.DriverRepository
	locks      *keyedMutex
	now        func() time.Time
	logger     *zap.Logger
}

// NewVerificationLedger creates a new VerificationLedger.
func NewVerificationLedger(driverRepo repository.DriverRepository, now func() time.Time, logger *zap.Logger) *VerificationLedger {
	if now == nil {
		now = time.Now
	}
	return &VerificationLedger{
		driverRepo: driverRepo,
		locks:      newKeyedMutex(),
		now:        now,
		logger:     logger,
	}
}

// DriverRegistration contains the documents of a new, unverified driver.
// Documents may be incomplete; they are checked when an administrator verifies them.
type DriverRegistration struct {
	UserID    string
	License   domain.License
	Insurance domain.Insurance
}

// Register creates a driver with both documents unverified.
func (l *VerificationLedger) Register(ctx context.Context, reg DriverRegistration) (*domain.Driver, error) {
	driver, err := l.Prepare(reg)
	if err != nil {
		return nil, err
	}
	if err := l.Save(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// Prepare builds an unverified driver without storing it, so callers can
// persist it only once the rest of their operation has succeeded.
func (l *VerificationLedger) Prepare(reg DriverRegistration) (*domain.Driver, error) {
	if strings.TrimSpace(reg.UserID) == "" {
		return nil, ErrInvalidUserID
	}

	now := l.now()
	driver := &domain.Driver{
		ID:        uuid.New().String(),
		UserID:    reg.UserID,
		License:   reg.License,
		Insurance: reg.Insurance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	driver.License.Verified = false
	driver.Insurance.Verified = false
	return driver, nil
}

// Save stores a driver built by Prepare.
func (l *VerificationLedger) Save(ctx context.Context, driver *domain.Driver) error {
	if err := l.driverRepo.Create(ctx, driver); err != nil {
		return fmt.Errorf("save driver: %w", err)
	}
	return nil
}

// Discard removes a driver saved for an operation that then failed.
func (l *VerificationLedger) Discard(ctx context.Context, driverID string) {
	if err := l.driverRepo.Delete(ctx, driverID); err != nil {
		l.logger.Warn("failed to discard driver", zap.String("driver_id", driverID), zap.Error(err))
	}
}

// Get retrieves a driver.
func (l *VerificationLedger) Get(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	driver, err := l.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "driver", ID: driverID}
		}
		return nil, err
	}
	return driver, nil
}

// VerifyDocument records rec as the verified content of one document.
// Verifying again with identical data changes nothing and writes nothing;
// changed reports whether a write happened.
func (l *VerificationLedger) VerifyDocument(ctx context.Context, driverID string, doc domain.DocumentType, rec domain.VerificationRecord) (driver *domain.Driver, changed bool, err error) {
	if err := validateRecord(doc, rec, domain.Date(l.now())); err != nil {
		return nil, false, err
	}

	unlock := l.locks.Lock(driverID)
	defer unlock()

	driver, err = l.Get(ctx, driverID)
	if err != nil {
		return nil, false, err
	}

	switch doc {
	case domain.DocumentLicense:
		next := domain.License{
			Number:      rec.Number,
			IssuedBy:    rec.IssuedBy,
			ExpiryDate:  domain.Date(rec.ExpiryDate),
			DocumentRef: pick(rec.DocumentRef, driver.License.DocumentRef),
			Verified:    true,
		}
		if next == driver.License {
			return driver, false, nil
		}
		driver.License = next
	case domain.DocumentInsurance:
		next := domain.Insurance{
			Provider:     rec.Provider,
			PolicyNumber: rec.PolicyNumber,
			ExpiryDate:   domain.Date(rec.ExpiryDate),
			DocumentRef:  pick(rec.DocumentRef, driver.Insurance.DocumentRef),
			Verified:     true,
		}
		if next == driver.Insurance {
			return driver, false, nil
		}
		driver.Insurance = next
	}

	driver.UpdatedAt = l.now()
	if err := l.driverRepo.Update(ctx, driver); err != nil {
		return nil, false, err
	}

	l.logger.Info("document verified",
		zap.String("driver_id", driverID),
		zap.String("document", string(doc)),
	)
	return driver, true, nil
}

// RejectDocument marks one document unverified. The submitted data is kept
// so the decision can be audited; only the flag changes.
func (l *VerificationLedger) RejectDocument(ctx context.Context, driverID string, doc domain.DocumentType) (driver *domain.Driver, changed bool, err error) {
	if _, err := domain.ParseDocumentType(string(doc)); err != nil {
		return nil, false, err
	}

	unlock := l.locks.Lock(driverID)
	defer unlock()

	driver, err = l.Get(ctx, driverID)
	if err != nil {
		return nil, false, err
	}

	if !driver.Verified(doc) {
		return driver, false, nil
	}

	switch doc {
	case domain.DocumentLicense:
		driver.License.Verified = false
	case domain.DocumentInsurance:
		driver.Insurance.Verified = false
	}

	driver.UpdatedAt = l.now()
	if err := l.driverRepo.Update(ctx, driver); err != nil {
		return nil, false, err
	}

	l.logger.Info("document rejected",
		zap.String("driver_id", driverID),
		zap.String("document", string(doc)),
	)
	return driver, true, nil
}

func validateRecord(doc domain.DocumentType, rec domain.VerificationRecord, today time.Time) error {
	var fields [][2]string
	switch doc {
	case domain.DocumentLicense:
		fields = [][2]string{{"number", rec.Number}, {"issued_by", rec.IssuedBy}}
	case domain.DocumentInsurance:
		fields = [][2]string{{"provider", rec.Provider}, {"policy_number", rec.PolicyNumber}}
	default:
		return &domain.ValidationError{Field: "type", Reason: "must be license or insurance"}
	}

	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			return &domain.VerificationError{DocType: doc, Field: f[0], Reason: "is required"}
		}
	}

	if rec.ExpiryDate.IsZero() {
		return &domain.VerificationError{DocType: doc, Field: "expiry_date", Reason: "is required"}
	}
	if domain.Date(rec.ExpiryDate).Before(today) {
		return &domain.VerificationError{DocType: doc, Field: "expiry_date", Reason: "document has expired"}
	}
	return nil
}

func pick(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
