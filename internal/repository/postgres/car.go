package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"rental/internal/domain"
	"rental/internal/repository"
)

// CarRepository is a PostgreSQL implementation of repository.CarRepository.
type CarRepository struct {
	q Querier
}

// NewCarRepository creates a new PostgreSQL car repository.
func NewCarRepository(db *sql.DB) *CarRepository {
	return &CarRepository{q: db}
}

// Create persists a new car. Pricing tiers are stored as JSONB.
func (r *CarRepository) Create(ctx context.Context, car *domain.Car) error {
	tiers, err := marshalTiers(car.PricingTiers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cars (id, name, price_per_day_cents, pricing_tiers, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.q.ExecContext(ctx, query,
		car.ID,
		car.Name,
		car.PricePerDayCents,
		tiers,
		car.CreatedAt,
	)
	return err
}

// GetByID retrieves a car by ID.
func (r *CarRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	query := `SELECT id, name, price_per_day_cents, pricing_tiers, created_at FROM cars WHERE id = $1`

	car, err := scanCar(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return car, nil
}

// GetAll retrieves all cars.
func (r *CarRepository) GetAll(ctx context.Context) ([]*domain.Car, error) {
	query := `SELECT id, name, price_per_day_cents, pricing_tiers, created_at FROM cars ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []*domain.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

func scanCar(row rowScanner) (*domain.Car, error) {
	var car domain.Car
	var tiers []byte
	if err := row.Scan(&car.ID, &car.Name, &car.PricePerDayCents, &tiers, &car.CreatedAt); err != nil {
		return nil, err
	}
	if len(tiers) > 0 {
		var pt domain.PricingTiers
		if err := json.Unmarshal(tiers, &pt); err != nil {
			return nil, fmt.Errorf("decode pricing tiers of car %s: %w", car.ID, err)
		}
		car.PricingTiers = &pt
	}
	return &car, nil
}

func marshalTiers(tiers *domain.PricingTiers) (any, error) {
	if tiers == nil {
		return nil, nil
	}
	data, err := json.Marshal(tiers)
	if err != nil {
		return nil, fmt.Errorf("encode pricing tiers: %w", err)
	}
	return data, nil
}
