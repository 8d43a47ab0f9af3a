package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestCommandCollection(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name string
		cmd  redis.Cmder
		want string
	}{
		{"car lock", redis.NewBoolCmd(ctx, "set", "lock:car:car-1", "token", "nx"), "car_lock"},
		{"booking cache", redis.NewStringCmd(ctx, "get", "cache:booking:b-1"), "booking_cache"},
		{"idempotency", redis.NewStringCmd(ctx, "get", "idempotency:POST:/v1/bookings:k1"), "idempotency"},
		{"lock release script", redis.NewCmd(ctx, "evalsha", "abc123", 1, "lock:car:car-1", "token"), "car_lock"},
		{"unknown key", redis.NewStringCmd(ctx, "get", "other"), "redis"},
		{"no key", redis.NewStatusCmd(ctx, "ping"), "redis"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, commandCollection(tc.cmd))
		})
	}
}
