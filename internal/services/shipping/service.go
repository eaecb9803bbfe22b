// Package shipping implements the shipping worker: it consumes shipping
// required events, dispatches the shipment to a carrier, persists the
// outcome and publishes the result event.
package shipping

import (
	"context"
	"fmt"
	"time"

	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/messaging"
	"order-fulfillment/internal/models"
)

// Publisher publishes result events to the broker.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, message interface{}) error
}

// Service processes shipping required events.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	publisher  Publisher
	carrier    string
	logger     *logger.Logger
}

// NewService creates the shipping service.
func NewService(repo Repository, dispatcher Dispatcher, publisher Publisher, carrier string, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		publisher:  publisher,
		carrier:    carrier,
		logger:     log,
	}
}

// HandleMessage is the consumer entrypoint. Malformed events are
// dead-lettered; persistence and carrier errors are returned as-is so the
// consumer's retry policy applies.
func (s *Service) HandleMessage(ctx context.Context, routingKey string, body []byte) error {
	var event models.ShippingRequiredEvent
	if err := messaging.ParseMessage(body, &event); err != nil {
		return messaging.Reject(fmt.Errorf("failed to parse shipping event: %w", err))
	}
	if event.OrderID == "" {
		return messaging.Reject(fmt.Errorf("shipping event missing order_id"))
	}

	return s.ProcessEvent(ctx, &event)
}

// ProcessEvent dispatches the shipment for one event. The order-keyed
// upsert absorbs redeliveries the same way the payment worker does.
func (s *Service) ProcessEvent(ctx context.Context, event *models.ShippingRequiredEvent) error {
	shipment := &Shipment{
		OrderID: event.OrderID,
		Carrier: s.carrier,
		Status:  models.ShipmentProcessing,
	}
	if err := s.repo.Upsert(ctx, shipment); err != nil {
		return fmt.Errorf("failed to record shipment attempt: %w", err)
	}

	dispatch, err := s.dispatcher.Dispatch(ctx, event.OrderID, event.Address, event.Items)
	if err != nil {
		return fmt.Errorf("carrier dispatch failed for order %s: %w", event.OrderID, err)
	}

	result := &models.ShipmentResultEvent{
		OrderID:    event.OrderID,
		Notes:      dispatch.Notes,
		OccurredAt: time.Now().UTC(),
	}

	routingKey := models.RouteKeyShipmentShipped
	if dispatch.Rejected {
		shipment.Status = models.ShipmentFailed
		shipment.Notes = dispatch.Notes
		result.Status = models.ShipmentFailed
		routingKey = models.RouteKeyShipmentFailed
	} else {
		shipment.Status = models.ShipmentShipped
		shipment.TrackingNumber = dispatch.TrackingNumber
		shipment.Notes = dispatch.Notes
		result.Status = models.ShipmentShipped
		result.TrackingNumber = dispatch.TrackingNumber
	}

	if err := s.repo.Upsert(ctx, shipment); err != nil {
		return fmt.Errorf("failed to record shipment outcome: %w", err)
	}

	// Same discipline as the payment worker: the outcome is committed,
	// so a publish failure does not fail the message.
	if err := s.publisher.Publish(ctx, messaging.ShippingExchange, routingKey, result); err != nil {
		s.logger.Error("shipment_result_publish_failed",
			"Failed to publish shipment result event", "", err, map[string]interface{}{
				"order_id": event.OrderID,
				"status":   string(shipment.Status),
			})
		return nil
	}

	s.logger.Info("shipment_processed",
		fmt.Sprintf("Shipment for order %s finished with status %s", event.OrderID, shipment.Status),
		"", map[string]interface{}{
			"order_id":        event.OrderID,
			"status":          string(shipment.Status),
			"tracking_number": shipment.TrackingNumber,
		})
	return nil
}
