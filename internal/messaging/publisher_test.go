package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rental/internal/service"
)

type fakeChannel struct {
	exchange  string
	key       string
	msg       amqp.Publishing
	returnErr error
	closed    bool
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.msg = msg
	return c.returnErr
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{exchange: "rental.bookings", ch: ch, logger: zap.NewNop()}

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), service.BookingEvent{
		Type:       service.NotificationBookingTransition,
		BookingID:  "b1",
		From:       "PENDING",
		To:         "PAYMENT_PENDING",
		OccurredAt: at,
	})
	require.NoError(t, err)

	assert.Equal(t, "rental.bookings", ch.exchange)
	assert.Equal(t, "booking.booking_status_changed", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)
	assert.Equal(t, "b1", ch.msg.MessageId)

	var decoded service.BookingEvent
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, "PAYMENT_PENDING", decoded.To)
	assert.True(t, decoded.OccurredAt.Equal(at))
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{returnErr: errors.New("channel closed")}
	p := &Publisher{exchange: "x", ch: ch, logger: zap.NewNop()}

	err := p.Publish(context.Background(), service.BookingEvent{Type: service.NotificationBookingCreated})
	assert.Error(t, err)
}

func TestPublisher_Closed(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{exchange: "x", ch: ch, logger: zap.NewNop()}

	p.Close()
	p.Close()

	assert.True(t, ch.closed)
	err := p.Publish(context.Background(), service.BookingEvent{Type: service.NotificationBookingCreated})
	assert.Error(t, err)
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "booking.document_verified", RoutingKey(service.NotificationDocumentVerified))
}
