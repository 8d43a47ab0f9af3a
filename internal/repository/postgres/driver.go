package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rental/internal/domain"
	"rental/internal/repository"
)

const driverColumns = `
	id, user_id,
	license_number, license_issued_by, license_expiry, license_document_ref, license_verified,
	insurance_provider, insurance_policy_number, insurance_expiry, insurance_document_ref, insurance_verified,
	created_at, updated_at
`

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, d *domain.Driver) error {
	query := `INSERT INTO drivers (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.q.ExecContext(ctx, query,
		d.ID,
		d.UserID,
		d.License.Number,
		d.License.IssuedBy,
		nullTime(d.License.ExpiryDate),
		d.License.DocumentRef,
		d.License.Verified,
		d.Insurance.Provider,
		d.Insurance.PolicyNumber,
		nullTime(d.Insurance.ExpiryDate),
		d.Insurance.DocumentRef,
		d.Insurance.Verified,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert driver: %w", err)
	}
	return nil
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	var d domain.Driver
	var licenseExpiry, insuranceExpiry sql.NullTime
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.UserID,
		&d.License.Number,
		&d.License.IssuedBy,
		&licenseExpiry,
		&d.License.DocumentRef,
		&d.License.Verified,
		&d.Insurance.Provider,
		&d.Insurance.PolicyNumber,
		&insuranceExpiry,
		&d.Insurance.DocumentRef,
		&d.Insurance.Verified,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if licenseExpiry.Valid {
		d.License.ExpiryDate = domain.Date(licenseExpiry.Time)
	}
	if insuranceExpiry.Valid {
		d.Insurance.ExpiryDate = domain.Date(insuranceExpiry.Time)
	}
	return &d, nil
}

// Update writes both documents of a driver.
func (r *DriverRepository) Update(ctx context.Context, d *domain.Driver) error {
	query := `
		UPDATE drivers SET
			license_number = $1, license_issued_by = $2, license_expiry = $3,
			license_document_ref = $4, license_verified = $5,
			insurance_provider = $6, insurance_policy_number = $7, insurance_expiry = $8,
			insurance_document_ref = $9, insurance_verified = $10,
			updated_at = $11
		WHERE id = $12
	`

	result, err := r.q.ExecContext(ctx, query,
		d.License.Number,
		d.License.IssuedBy,
		nullTime(d.License.ExpiryDate),
		d.License.DocumentRef,
		d.License.Verified,
		d.Insurance.Provider,
		d.Insurance.PolicyNumber,
		nullTime(d.Insurance.ExpiryDate),
		d.Insurance.DocumentRef,
		d.Insurance.Verified,
		d.UpdatedAt,
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("update driver: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a driver that no booking references.
func (r *DriverRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM drivers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete driver: %w", err)
	}
	return nil
}
