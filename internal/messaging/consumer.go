package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/metrics"
)

// ErrReject marks a delivery as unprocessable. The consumer rejects it
// without requeue so the queue's dead-letter policy applies.
var ErrReject = errors.New("unprocessable delivery")

// Reject wraps err so the consumer dead-letters the delivery instead of
// requeueing it.
func Reject(err error) error {
	return errors.Join(ErrReject, err)
}

// MessageHandler processes one delivery. A nil return acknowledges the
// message; an error wrapping ErrReject dead-letters it; any other error
// requeues it once, then dead-letters on the redelivery.
type MessageHandler func(ctx context.Context, routingKey string, body []byte) error

// handlerTimeout bounds the processing of a single delivery.
const handlerTimeout = 30 * time.Second

// Consumer consumes a queue with a bounded pool of workers, each processing
// one message at a time.
type Consumer struct {
	conn        *Connection
	logger      *logger.Logger
	queueName   string
	consumerTag string
	workers     int
}

// NewConsumer creates a consumer for the queue. workers is the number of
// concurrent handler goroutines; it also sets the channel prefetch so the
// broker never hands the pool more messages than it can hold.
func NewConsumer(conn *Connection, log *logger.Logger, queueName, consumerTag string, workers int) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		conn:        conn,
		logger:      log,
		queueName:   queueName,
		consumerTag: consumerTag,
		workers:     workers,
	}
}

// StartConsuming consumes the queue until ctx is cancelled. It reconnects
// and resumes when the broker closes the delivery channel.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	for {
		err := c.consume(ctx, handler)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Error("consumer_channel_closed", "Delivery channel closed, reconnecting", "", err, map[string]interface{}{
			"queue": c.queueName,
		})
		if reconnectErr := c.conn.Reconnect(); reconnectErr != nil {
			return fmt.Errorf("failed to reconnect after channel closed: %w", reconnectErr)
		}
	}
}

func (c *Consumer) consume(ctx context.Context, handler MessageHandler) error {
	ch, err := c.conn.OpenChannel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(c.workers, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName,   // queue
		c.consumerTag, // consumer
		false,         // auto-ack (we ack manually)
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("consumer_started",
		fmt.Sprintf("Started consuming from queue %s", c.queueName),
		"", map[string]interface{}{
			"queue":    c.queueName,
			"consumer": c.consumerTag,
			"workers":  c.workers,
		})

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range msgs {
				c.processMessage(ctx, d, handler)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		c.logger.Info("consumer_stopped", "Consumer stopped by context", "", map[string]interface{}{
			"queue": c.queueName,
		})
		ch.Cancel(c.consumerTag, false)
		<-done
		return nil
	case <-done:
		// Broker closed the delivery channel.
		return fmt.Errorf("delivery channel for queue %s closed", c.queueName)
	}
}

// processMessage runs the handler and applies the ack decision.
func (c *Consumer) processMessage(ctx context.Context, delivery amqp091.Delivery, handler MessageHandler) {
	startTime := time.Now()

	processingCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	err := handler(processingCtx, delivery.RoutingKey, delivery.Body)
	duration := time.Since(startTime)

	decision := decide(err, delivery.Redelivered)
	metrics.MessagesConsumed.WithLabelValues(c.queueName, string(decision)).Inc()

	switch decision {
	case decisionAck:
		if ackErr := delivery.Ack(false); ackErr != nil {
			c.logger.Error("message_ack_failed", "Failed to ack message", "", ackErr, nil)
		}
		c.logger.Debug("message_processed", "Successfully processed message", "", map[string]interface{}{
			"queue":       c.queueName,
			"routing_key": delivery.RoutingKey,
			"duration_ms": duration.Milliseconds(),
		})
	case decisionRequeue:
		c.logger.Error("message_processing_failed", "Failed to process message, requeueing", "", err, map[string]interface{}{
			"queue":       c.queueName,
			"routing_key": delivery.RoutingKey,
			"duration_ms": duration.Milliseconds(),
		})
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", "", nackErr, nil)
		}
	case decisionReject:
		c.logger.Error("message_rejected", "Rejecting message to dead-letter queue", "", err, map[string]interface{}{
			"queue":       c.queueName,
			"routing_key": delivery.RoutingKey,
			"redelivered": delivery.Redelivered,
			"duration_ms": duration.Milliseconds(),
		})
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to reject message", "", nackErr, nil)
		}
	}
}

type ackDecision string

const (
	decisionAck     ackDecision = "ack"
	decisionRequeue ackDecision = "requeue"
	decisionReject  ackDecision = "reject"
)

// decide maps a handler result to an ack decision. Poison messages are
// rejected immediately; a transient failure is requeued once and rejected
// on its redelivery so a failing message cannot loop forever.
func decide(err error, redelivered bool) ackDecision {
	if err == nil {
		return decisionAck
	}
	if errors.Is(err, ErrReject) {
		return decisionReject
	}
	if redelivered {
		return decisionReject
	}
	return decisionRequeue
}

// ParseMessage parses a JSON message into the provided struct.
func ParseMessage(body []byte, v interface{}) error {
	return json.Unmarshal(body, v)
}
