package memory

import (
	"context"
	"sync"

	"rental/internal/domain"
	"rental/internal/repository"
)

// PaymentRepository is an in-memory implementation of repository.PaymentRepository.
type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
}

// NewPaymentRepository creates a new in-memory payment repository.
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{payments: make(map[string]*domain.Payment)}
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := *payment
	r.payments[payment.ID] = &p
	return nil
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *p
	return &c, nil
}

// GetBySessionID retrieves a payment by checkout session ID.
func (r *PaymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	return r.find(func(p *domain.Payment) bool { return p.SessionID == sessionID })
}

// GetByIdempotencyKey retrieves a payment by its idempotency key.
// Returns nil if no payment exists with the given key.
func (r *PaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	p, err := r.find(func(p *domain.Payment) bool { return p.IdempotencyKey == key })
	if err == repository.ErrNotFound {
		return nil, nil
	}
	return p, err
}

// UpdateStatus updates the status and provider reference of a payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	p.Reference = reference
	return nil
}

// UpdateSession replaces the checkout session of a payment.
func (r *PaymentRepository) UpdateSession(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[payment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.SessionID = payment.SessionID
	p.CheckoutURL = payment.CheckoutURL
	p.ExpiresAt = payment.ExpiresAt
	p.Status = payment.Status
	p.Reference = payment.Reference
	return nil
}

func (r *PaymentRepository) find(match func(*domain.Payment) bool) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if match(p) {
			c := *p
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}
