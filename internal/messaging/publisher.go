package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/metrics"
)

// publishTimeout bounds how long a publish waits for the broker confirm.
const publishTimeout = 10 * time.Second

// publishChannel is the confirm-mode channel surface the publisher uses.
type publishChannel interface {
	publish(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) (acked bool, err error)
	Close() error
}

// confirmChannel is an AMQP channel in confirm mode on the shared connection.
type confirmChannel struct {
	ch *amqp091.Channel
}

func newConfirmChannel(conn *Connection) (*confirmChannel, error) {
	ch, err := conn.OpenChannel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publisher channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to put channel into confirm mode: %w", err)
	}
	return &confirmChannel{ch: ch}, nil
}

// publish sends the message and waits for the broker confirm. Messages go
// out non-mandatory: routing is fixed by the bindings declared at startup,
// and the broker confirms a returned mandatory message anyway, which would
// report success for a message that was actually dropped.
func (c *confirmChannel) publish(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) (bool, error) {
	confirmation, err := c.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	if err != nil {
		return false, err
	}
	return confirmation.WaitContext(ctx)
}

func (c *confirmChannel) Close() error {
	return c.ch.Close()
}

// Publisher publishes JSON messages with publisher confirms. A negative
// acknowledgment from the broker surfaces as an error to the caller; the
// publisher never retries on its own.
type Publisher struct {
	conn    *Connection
	logger  *logger.Logger
	mu      sync.Mutex
	channel publishChannel
}

// NewPublisher creates a publisher on its own confirm-mode channel.
func NewPublisher(conn *Connection, log *logger.Logger) (*Publisher, error) {
	p := &Publisher{
		conn:   conn,
		logger: log,
	}
	if err := p.openChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) openChannel() error {
	ch, err := newConfirmChannel(p.conn)
	if err != nil {
		return err
	}
	p.channel = ch
	return nil
}

// Publish sends a persistent JSON message and waits for the broker confirm.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil && p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
		if err := p.openChannel(); err != nil {
			return err
		}
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	acked, err := p.channel.publish(ctx, exchange, routingKey, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now(),
	})
	if err != nil {
		metrics.MessagesPublished.WithLabelValues(exchange, "error").Inc()
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to exchange %s", exchange),
			"", err, map[string]interface{}{
				"exchange":    exchange,
				"routing_key": routingKey,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}
	if !acked {
		metrics.MessagesPublished.WithLabelValues(exchange, "nack").Inc()
		p.logger.Error("message_publish_nacked",
			fmt.Sprintf("Broker rejected message on exchange %s", exchange),
			"", nil, map[string]interface{}{
				"exchange":    exchange,
				"routing_key": routingKey,
			})
		return fmt.Errorf("broker nacked publish to %s with key %s", exchange, routingKey)
	}

	metrics.MessagesPublished.WithLabelValues(exchange, "ack").Inc()
	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %s", exchange),
		"", map[string]interface{}{
			"exchange":     exchange,
			"routing_key":  routingKey,
			"message_size": len(body),
		})

	return nil
}

// Close closes the publisher channel.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
