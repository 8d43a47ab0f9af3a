package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// BookingCacheTTL bounds staleness if an invalidation is lost.
const BookingCacheTTL = 60 * time.Second

const bookingCachePrefix = "cache:booking:"

// CachedBooking represents a cached booking entity.
type CachedBooking struct {
	ID              string    `json:"id"`
	CarID           string    `json:"car_id"`
	UserID          string    `json:"user_id"`
	DriverID        string    `json:"driver_id"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	Status          string    `json:"status"`
	SubtotalCents   int64     `json:"subtotal_cents"`
	ServiceFeeCents int64     `json:"service_fee_cents"`
	TaxCents        int64     `json:"tax_cents"`
	TotalCents      int64     `json:"total_cents"`
	PaymentDueAt    time.Time `json:"payment_due_at"`
	PaymentRef      string    `json:"payment_ref"`
	CancelReason    string    `json:"cancel_reason"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// GetBooking retrieves a booking from cache. A miss returns nil, nil.
func (s *CacheStore) GetBooking(ctx context.Context, bookingID string) (*CachedBooking, error) {
	key := bookingCachePrefix + bookingID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var booking CachedBooking
	if err := json.Unmarshal(data, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// SetBooking stores a booking in cache.
func (s *CacheStore) SetBooking(ctx context.Context, booking *CachedBooking) error {
	key := bookingCachePrefix + booking.ID
	data, err := json.Marshal(booking)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, BookingCacheTTL).Err()
}

// InvalidateBooking removes a booking from cache.
func (s *CacheStore) InvalidateBooking(ctx context.Context, bookingID string) error {
	key := bookingCachePrefix + bookingID
	return s.client.Del(ctx, key).Err()
}
