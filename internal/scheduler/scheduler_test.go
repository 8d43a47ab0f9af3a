package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"rental/internal/domain"
)

type mockExpirer struct {
	mu        sync.Mutex
	calls     int
	result    []*domain.Booking
	returnErr error
}

func (m *mockExpirer) ExpirePaymentSessions(ctx context.Context) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.result, m.returnErr
}

func (m *mockExpirer) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	expirer := &mockExpirer{}
	s := New(expirer, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}

	assert.Greater(t, expirer.getCalls(), 0)
}

func TestScheduler_ContinuesAfterError(t *testing.T) {
	expirer := &mockExpirer{returnErr: errors.New("db down")}
	s := New(expirer, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	s.Start(ctx)

	assert.GreaterOrEqual(t, expirer.getCalls(), 2)
}

func TestScheduler_TickLogsExpired(t *testing.T) {
	r, err := domain.ParseDateRange("2024-06-01", "2024-06-03")
	assert.NoError(t, err)

	expirer := &mockExpirer{result: []*domain.Booking{{ID: "b1", CarID: "c1", Range: r}}}
	s := New(expirer, time.Hour, zap.NewNop())

	s.tick(context.Background())

	assert.Equal(t, 1, expirer.getCalls())
}
