package repository

import (
	"context"

	"rental/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// Update writes both documents of a driver.
	Update(ctx context.Context, driver *domain.Driver) error

	// Delete removes a driver. Deleting an unknown driver is not an error.
	Delete(ctx context.Context, id string) error
}
