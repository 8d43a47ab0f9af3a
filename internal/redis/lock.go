package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireCarLock attempts to acquire the admission lock for the given car.
// Returns the lock token, or an empty token if the lock is already held.
func (s *LockStore) AcquireCarLock(ctx context.Context, carID string, ttl time.Duration) (string, error) {
	key := fmt.Sprintf("lock:car:%s", carID)
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	return token, nil
}

// ReleaseCarLock releases the lock for the given car if token still owns it.
func (s *LockStore) ReleaseCarLock(ctx context.Context, carID, token string) error {
	key := fmt.Sprintf("lock:car:%s", carID)

	return releaseScript.Run(ctx, s.client, []string{key}, token).Err()
}
