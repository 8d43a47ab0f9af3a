// Package messaging publishes booking notifications to RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"rental/internal/service"
)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements service.EventPublisher on a RabbitMQ topic exchange.
// Routing keys are "booking.<notification type>", e.g. booking.booking_created.
type Publisher struct {
	exchange string
	conn     *amqp.Connection
	logger   *zap.Logger

	mu     sync.RWMutex
	ch     channel
	closed bool
}

var _ service.EventPublisher = (*Publisher)(nil)

// Dial connects to RabbitMQ, retrying with backoff, and declares the exchange.
func Dial(ctx context.Context, url, exchange string, logger *zap.Logger) (*Publisher, error) {
	const maxRetries = 5
	delay := time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		p, err := connect(url, exchange, logger)
		if err == nil {
			logger.Info("rabbitmq connected", zap.String("exchange", exchange), zap.Int("attempt", attempt))
			return p, nil
		}
		lastErr = err
		logger.Warn("rabbitmq connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay = delay * 3 / 2
		}
	}
	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, lastErr)
}

func connect(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{exchange: exchange, conn: conn, ch: ch, logger: logger}, nil
}

// Publish sends a booking event as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, event service.BookingEvent) error {
	p.mu.RLock()
	ch := p.ch
	closed := p.closed
	p.mu.RUnlock()

	if closed || ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(
		publishCtx,
		p.exchange,
		RoutingKey(event.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.BookingID,
			Timestamp:    event.OccurredAt,
		},
	)
}

// RoutingKey returns the routing key for a notification type.
func RoutingKey(t service.NotificationType) string {
	return "booking." + strings.ToLower(string(t))
}

// Close closes the channel and connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.logger.Info("rabbitmq connection closed")
}
