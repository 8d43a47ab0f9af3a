// Package memory provides in-process implementations of the repository
// interfaces. They back local runs without Postgres and double as test fakes.
package memory

import (
	"context"
	"sort"
	"sync"

	"rental/internal/domain"
	"rental/internal/repository"
)

// CarRepository is an in-memory implementation of repository.CarRepository.
type CarRepository struct {
	mu   sync.RWMutex
	cars map[string]*domain.Car
}

// NewCarRepository creates a new in-memory car repository.
func NewCarRepository() *CarRepository {
	return &CarRepository{cars: make(map[string]*domain.Car)}
}

// Create persists a new car.
func (r *CarRepository) Create(ctx context.Context, car *domain.Car) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *car
	r.cars[car.ID] = &c
	return nil
}

// GetByID retrieves a car by ID.
func (r *CarRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	car, ok := r.cars[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *car
	return &c, nil
}

// GetAll retrieves all cars ordered by ID.
func (r *CarRepository) GetAll(ctx context.Context) ([]*domain.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cars := make([]*domain.Car, 0, len(r.cars))
	for _, car := range r.cars {
		c := *car
		cars = append(cars, &c)
	}
	sort.Slice(cars, func(i, j int) bool { return cars[i].ID < cars[j].ID })
	return cars, nil
}

// Ensure in-memory repositories satisfy the repository interfaces.
var (
	_ repository.CarRepository     = (*CarRepository)(nil)
	_ repository.BookingRepository = (*BookingRepository)(nil)
	_ repository.DriverRepository  = (*DriverRepository)(nil)
	_ repository.PaymentRepository = (*PaymentRepository)(nil)
)
