package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"darkroom/internal/config"
	"darkroom/internal/logging"
)

// Publisher is the capability stage handlers use to emit the next event.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Bus owns one AMQP connection and channel, the declared topic exchange, and
// the queue topology for whichever service constructed it. It is built once
// at startup and shared for the process lifetime.
type Bus struct {
	cfg    config.AMQP
	logger *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connect dials the broker and declares the durable topic exchange.
func Connect(cfg config.AMQP, logger *slog.Logger) (*Bus, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", cfg.Exchange, err)
	}

	return &Bus{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "bus"),
		conn:   conn,
		ch:     ch,
	}, nil
}

// Publish sends a persistent JSON message to the exchange under the given
// routing key.
func (b *Bus) Publish(ctx context.Context, routingKey string, body []byte) error {
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("publish %q: bus is closed", routingKey)
	}

	err := ch.PublishWithContext(ctx,
		b.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %q: %w", routingKey, err)
	}
	return nil
}

// Consume declares a durable queue, binds it to the exchange with the routing
// key, and starts delivering with manual acknowledgement. The returned channel
// closes when the AMQP channel shuts down.
func (b *Bus) Consume(queueName, bindingKey string) (<-chan amqp.Delivery, error) {
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()
	if ch == nil {
		return nil, fmt.Errorf("consume %q: bus is closed", queueName)
	}

	if err := ch.Qos(b.cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set prefetch: %w", err)
	}

	queue, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // auto-delete
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue %q: %w", queueName, err)
	}

	if err := ch.QueueBind(queue.Name, bindingKey, b.cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %q to %q: %w", queue.Name, bindingKey, err)
	}

	deliveries, err := ch.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume queue %q: %w", queue.Name, err)
	}

	b.logger.Info("consumer bound",
		logging.String("queue", queue.Name),
		logging.String("binding_key", bindingKey),
		logging.String("exchange", b.cfg.Exchange),
	)
	return deliveries, nil
}

// Close releases the channel and connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var lastErr error
	if b.ch != nil {
		if err := b.ch.Close(); err != nil {
			lastErr = err
		}
		b.ch = nil
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			lastErr = err
		}
		b.conn = nil
	}
	return lastErr
}
