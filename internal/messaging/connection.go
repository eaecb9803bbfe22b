package messaging

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"order-fulfillment/internal/config"
	"order-fulfillment/internal/logger"
)

// Exchange and queue names of the fulfillment topology.
const (
	OrdersExchange     = "orders.exchange"
	PaymentsExchange   = "payments.exchange"
	ShippingExchange   = "shipping.exchange"
	DeadLetterExchange = "dlx.exchange"

	PaymentsQueue = "payments.process"
	ShippingQueue = "shipping.create"
	ResultsQueue  = "fulfillment.results"

	PaymentsDLQ = "dlq.payments"
	ShippingDLQ = "dlq.shipping"
)

// messageTTL is how long an unconsumed message may sit in a work queue
// before it is dead-lettered.
const messageTTL = 300000 // ms

// Connection wraps the RabbitMQ connection with reconnection logic.
// Publishers and consumers open independent channels from it so a slow
// consumer cannot block a publisher's confirms.
type Connection struct {
	conn   *amqp091.Connection
	logger *logger.Logger
	url    string
}

// New establishes a RabbitMQ connection and declares the topology.
func New(cfg *config.Config, log *logger.Logger) (*Connection, error) {
	conn := &Connection{
		logger: log,
		url:    cfg.RabbitMQURL(),
	}

	if err := conn.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}

	return conn, nil
}

// connect dials RabbitMQ with retry and sets up exchanges and queues.
func (c *Connection) connect() error {
	maxRetries := 5
	var err error

	for i := 0; i < maxRetries; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			if setupErr := c.setupTopology(); setupErr != nil {
				c.logger.Error("rabbitmq_setup_failed", "Failed to set up topology", "startup", setupErr, nil)
				c.conn.Close()
				err = setupErr
			} else {
				return nil
			}
		}

		if i < maxRetries-1 {
			waitTime := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", waitTime),
				"startup", err, nil)
			time.Sleep(waitTime)
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// setupTopology declares exchanges, work queues and dead-letter queues.
func (c *Connection) setupTopology() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open setup channel: %w", err)
	}
	defer ch.Close()

	// Topic exchanges per capability.
	for _, exchange := range []string{OrdersExchange, PaymentsExchange, ShippingExchange} {
		err = ch.ExchangeDeclare(
			exchange, // name
			"topic",  // type
			true,     // durable
			false,    // auto-deleted
			false,    // internal
			false,    // no-wait
			nil,      // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	// Dead-letter exchange is direct: one routing key per capability DLQ.
	err = ch.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", DeadLetterExchange, err)
	}

	// Durable work queues with TTL and dead-letter policy.
	workQueues := []struct {
		name   string
		dlqKey string
	}{
		{PaymentsQueue, "payments.dlq"},
		{ShippingQueue, "shipping.dlq"},
	}

	for _, q := range workQueues {
		_, err = ch.QueueDeclare(
			q.name, // name
			true,   // durable
			false,  // delete when unused
			false,  // exclusive
			false,  // no-wait
			amqp091.Table{
				"x-message-ttl":             int32(messageTTL),
				"x-dead-letter-exchange":    DeadLetterExchange,
				"x-dead-letter-routing-key": q.dlqKey,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.name, err)
		}
	}

	// Dead-letter queues, one per capability.
	for _, name := range []string{PaymentsDLQ, ShippingDLQ} {
		if _, err = ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	// Results queue for the order service's saga subscriber.
	if _, err = ch.QueueDeclare(ResultsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", ResultsQueue, err)
	}

	// Bindings.
	bindings := []struct {
		queue      string
		routingKey string
		exchange   string
	}{
		{PaymentsQueue, "order.payment.required", OrdersExchange},
		{ShippingQueue, "order.shipping.required", OrdersExchange},
		{PaymentsDLQ, "payments.dlq", DeadLetterExchange},
		{ShippingDLQ, "shipping.dlq", DeadLetterExchange},
		{ResultsQueue, "payment.*", PaymentsExchange},
		{ResultsQueue, "shipping.*", ShippingExchange},
	}

	for _, b := range bindings {
		err = ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil)
		if err != nil {
			return fmt.Errorf("failed to bind queue %s with routing key %s: %w", b.queue, b.routingKey, err)
		}
	}

	return nil
}

// OpenChannel opens a new channel on the shared connection.
func (c *Connection) OpenChannel() (*amqp091.Channel, error) {
	return c.conn.Channel()
}

// IsClosed checks if the connection is closed.
func (c *Connection) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect re-establishes the connection.
func (c *Connection) Reconnect() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return c.connect()
}

// Close closes the connection.
func (c *Connection) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
