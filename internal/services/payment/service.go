// Package payment implements the payment worker: it consumes payment
// required events, captures the payment through a gateway, persists the
// outcome and publishes the result event.
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/messaging"
	"order-fulfillment/internal/models"
)

// Service processes payment required events.
type Service struct {
	repo      Repository
	gateway   Gateway
	publisher Publisher
	logger    *logger.Logger
}

// Publisher publishes result events to the broker.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, message interface{}) error
}

// NewService creates the payment service.
func NewService(repo Repository, gateway Gateway, publisher Publisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		logger:    log,
	}
}

// HandleMessage is the consumer entrypoint. Malformed events are
// dead-lettered; persistence and gateway errors are returned as-is so the
// consumer's retry policy applies.
func (s *Service) HandleMessage(ctx context.Context, routingKey string, body []byte) error {
	var event models.PaymentRequiredEvent
	if err := messaging.ParseMessage(body, &event); err != nil {
		return messaging.Reject(fmt.Errorf("failed to parse payment event: %w", err))
	}
	if err := validateEvent(&event); err != nil {
		return messaging.Reject(err)
	}

	return s.ProcessEvent(ctx, &event)
}

// ProcessEvent captures the payment for one event. At-least-once delivery
// is absorbed by the order-keyed upsert: a redelivery re-runs the capture
// against the same row instead of creating a second payment.
func (s *Service) ProcessEvent(ctx context.Context, event *models.PaymentRequiredEvent) error {
	payment := &Payment{
		OrderID:       event.OrderID,
		CustomerID:    event.CustomerID,
		Amount:        event.Amount,
		PaymentMethod: event.PaymentMethod,
		Status:        models.PaymentProcessing,
		TransactionID: newTransactionID(),
	}
	if err := s.repo.Upsert(ctx, payment); err != nil {
		return fmt.Errorf("failed to record payment attempt: %w", err)
	}

	capture, err := s.gateway.Capture(ctx, event.OrderID, event.Amount, event.PaymentMethod)
	if err != nil {
		return fmt.Errorf("gateway capture failed for order %s: %w", event.OrderID, err)
	}

	result := &models.PaymentResultEvent{
		OrderID:       event.OrderID,
		Amount:        event.Amount,
		TransactionID: payment.TransactionID,
		OccurredAt:    time.Now().UTC(),
	}

	routingKey := models.RouteKeyPaymentCompleted
	if capture.Approved {
		payment.Status = models.PaymentCompleted
		result.Status = models.PaymentCompleted
	} else {
		payment.Status = models.PaymentFailed
		payment.FailureReason = capture.DeclineReason
		result.Status = models.PaymentFailed
		result.FailureReason = capture.DeclineReason
		routingKey = models.RouteKeyPaymentFailed
	}

	if err := s.repo.Upsert(ctx, payment); err != nil {
		return fmt.Errorf("failed to record payment outcome: %w", err)
	}

	// The outcome is committed; a lost result event is recoverable from
	// the payments table, so a publish failure does not fail the message.
	if err := s.publisher.Publish(ctx, messaging.PaymentsExchange, routingKey, result); err != nil {
		s.logger.Error("payment_result_publish_failed",
			"Failed to publish payment result event", "", err, map[string]interface{}{
				"order_id": event.OrderID,
				"status":   string(payment.Status),
			})
		return nil
	}

	s.logger.Info("payment_processed",
		fmt.Sprintf("Payment for order %s finished with status %s", event.OrderID, payment.Status),
		"", map[string]interface{}{
			"order_id":       event.OrderID,
			"status":         string(payment.Status),
			"transaction_id": payment.TransactionID,
		})
	return nil
}

// validateEvent checks the fields a capture cannot run without.
func validateEvent(event *models.PaymentRequiredEvent) error {
	if event.OrderID == "" {
		return fmt.Errorf("payment event missing order_id")
	}
	if event.CustomerID == "" {
		return fmt.Errorf("payment event missing customer_id")
	}
	if event.PaymentMethod == "" {
		return fmt.Errorf("payment event missing payment_method")
	}
	if event.Amount.IsNegative() || event.Amount.IsZero() {
		return fmt.Errorf("payment event amount must be positive, got %s", event.Amount)
	}
	return nil
}

// newTransactionID returns a short unique transaction reference.
func newTransactionID() string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "TXN-" + token[:12]
}
