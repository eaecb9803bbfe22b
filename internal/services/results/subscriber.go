// Package results implements the order service's saga subscriber. It
// consumes payment and shipment result events, advances the fulfillment
// record, and triggers shipping once a payment completes.
package results

import (
	"context"
	"errors"
	"fmt"

	"order-fulfillment/internal/fulfillment"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/messaging"
	"order-fulfillment/internal/models"
)

// Publisher publishes follow-up events to the broker.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, message interface{}) error
}

// Subscriber folds capability result events back into the saga records.
type Subscriber struct {
	store     fulfillment.Store
	publisher Publisher
	logger    *logger.Logger
}

// NewSubscriber creates the results subscriber.
func NewSubscriber(store fulfillment.Store, publisher Publisher, log *logger.Logger) *Subscriber {
	return &Subscriber{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// HandleMessage routes one result event by its routing key. Events for
// unknown orders and unknown keys are acknowledged; the results queue has
// no dead-letter policy, so rejection is reserved for unparseable bodies.
func (s *Subscriber) HandleMessage(ctx context.Context, routingKey string, body []byte) error {
	switch routingKey {
	case models.RouteKeyPaymentCompleted, models.RouteKeyPaymentFailed:
		return s.handlePaymentResult(ctx, routingKey, body)
	case models.RouteKeyShipmentShipped, models.RouteKeyShipmentFailed:
		return s.handleShipmentResult(ctx, body)
	default:
		s.logger.Debug("result_key_ignored", "Ignoring result event with unknown routing key", "", map[string]interface{}{
			"routing_key": routingKey,
		})
		return nil
	}
}

func (s *Subscriber) handlePaymentResult(ctx context.Context, routingKey string, body []byte) error {
	var event models.PaymentResultEvent
	if err := messaging.ParseMessage(body, &event); err != nil {
		return messaging.Reject(fmt.Errorf("failed to parse payment result: %w", err))
	}
	if event.OrderID == "" {
		return messaging.Reject(fmt.Errorf("payment result missing order_id"))
	}

	status := models.PaymentCompleted
	if routingKey == models.RouteKeyPaymentFailed {
		status = models.PaymentFailed
	}

	changed, err := s.store.SetPaymentOutcome(ctx, event.OrderID, status)
	if err != nil {
		return fmt.Errorf("failed to record payment outcome: %w", err)
	}
	if changed {
		s.logger.Info("payment_result_recorded",
			fmt.Sprintf("Payment for order %s recorded as %s", event.OrderID, status),
			"", map[string]interface{}{
				"order_id": event.OrderID,
				"status":   string(status),
			})
	} else {
		s.logger.Debug("payment_result_skipped", "Payment outcome was already recorded", "", map[string]interface{}{
			"order_id": event.OrderID,
			"status":   string(status),
		})
	}

	if status != models.PaymentCompleted {
		return nil
	}

	// Run the shipping trigger on redeliveries too: the first delivery may
	// have crashed between recording the outcome and publishing, and the
	// shipping worker's order-keyed upsert absorbs a duplicate event.
	return s.triggerShipping(ctx, event.OrderID)
}

// triggerShipping publishes the shipping event for a completed payment,
// using the packing details saved in the saga record. It is a no-op once
// the shipment has an outcome, so it is safe to run on every delivery of
// the payment result.
func (s *Subscriber) triggerShipping(ctx context.Context, orderID string) error {
	record, err := s.store.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, fulfillment.ErrNotFound) {
			s.logger.Error("fulfillment_record_missing",
				"Payment completed for an order with no fulfillment record", "", err, map[string]interface{}{
					"order_id": orderID,
				})
			return nil
		}
		return fmt.Errorf("failed to load fulfillment record: %w", err)
	}
	if record.PaymentStatus != models.PaymentCompleted || record.ShipmentStatus != models.ShipmentPending {
		s.logger.Debug("shipping_trigger_skipped", "Record is not awaiting shipment", "", map[string]interface{}{
			"order_id":        orderID,
			"payment_status":  string(record.PaymentStatus),
			"shipment_status": string(record.ShipmentStatus),
		})
		return nil
	}

	event := models.NewShippingRequiredEvent(orderID, record.Address, record.Items)
	if err := s.publisher.Publish(ctx, messaging.OrdersExchange, models.RouteKeyShippingRequired, event); err != nil {
		// The payment outcome is committed, so the requeued delivery comes
		// straight back to this trigger and republishes.
		return fmt.Errorf("failed to publish shipping event for order %s: %w", orderID, err)
	}

	s.logger.Info("shipping_triggered",
		fmt.Sprintf("Dispatched shipping for order %s", orderID),
		"", map[string]interface{}{
			"order_id": orderID,
		})
	return nil
}

func (s *Subscriber) handleShipmentResult(ctx context.Context, body []byte) error {
	var event models.ShipmentResultEvent
	if err := messaging.ParseMessage(body, &event); err != nil {
		return messaging.Reject(fmt.Errorf("failed to parse shipment result: %w", err))
	}
	if event.OrderID == "" {
		return messaging.Reject(fmt.Errorf("shipment result missing order_id"))
	}

	status := event.Status
	if status != models.ShipmentShipped && status != models.ShipmentFailed {
		return messaging.Reject(fmt.Errorf("shipment result has non-terminal status %s", status))
	}

	changed, err := s.store.SetShipmentOutcome(ctx, event.OrderID, status, event.TrackingNumber)
	if err != nil {
		return fmt.Errorf("failed to record shipment outcome: %w", err)
	}
	if !changed {
		s.logger.Debug("shipment_result_skipped", "Shipment result did not change the record", "", map[string]interface{}{
			"order_id": event.OrderID,
			"status":   string(status),
		})
		return nil
	}

	s.logger.Info("shipment_result_recorded",
		fmt.Sprintf("Shipment for order %s recorded as %s", event.OrderID, status),
		"", map[string]interface{}{
			"order_id":        event.OrderID,
			"status":          string(status),
			"tracking_number": event.TrackingNumber,
		})
	return nil
}
