package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireCarLock(ctx context.Context, carID string, ttl time.Duration) (string, error)
	ReleaseCarLock(ctx context.Context, carID, token string) error
}

// CacheStoreInterface defines the interface for booking caching.
type CacheStoreInterface interface {
	GetBooking(ctx context.Context, bookingID string) (*CachedBooking, error)
	SetBooking(ctx context.Context, booking *CachedBooking) error
	InvalidateBooking(ctx context.Context, bookingID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
