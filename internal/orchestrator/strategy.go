package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"order-fulfillment/internal/fulfillment"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/messaging"
	"order-fulfillment/internal/models"
)

// ErrPublish marks a broker dispatch failure. The orchestrator reports it
// as a system error rather than a payment failure, because no payment was
// ever attempted.
var ErrPublish = errors.New("broker dispatch failed")

func isPublishError(err error) bool {
	return errors.Is(err, ErrPublish)
}

// PaymentOutcome is the strategy's verdict on the payment step.
type PaymentOutcome int

const (
	// OutcomeCompleted means the payment was captured inline.
	OutcomeCompleted PaymentOutcome = iota
	// OutcomeFailed means the payment was declined.
	OutcomeFailed
	// OutcomeQueued means the payment request was handed to the broker
	// and the outcome will arrive as a result event.
	OutcomeQueued
)

// PaymentClient captures a payment synchronously.
type PaymentClient interface {
	ProcessPayment(ctx context.Context, orderID string, amount decimal.Decimal, paymentMethod string) (bool, error)
}

// ShipmentClient creates a shipment synchronously.
type ShipmentClient interface {
	CreateShipment(ctx context.Context, orderID string, address models.ShippingAddress, items []models.LineItem) (string, error)
}

// EventPublisher publishes a JSON event with broker confirm.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, message interface{}) error
}

// Strategy is how the orchestrator executes the payment and shipping
// steps once the order exists.
type Strategy interface {
	Name() string
	ProcessPayment(ctx context.Context, orderID string, req *models.OrderRequest, total decimal.Decimal) (PaymentOutcome, error)
	CreateShipment(ctx context.Context, orderID string, req *models.OrderRequest) (string, error)
}

// SyncStrategy calls the payment and shipping services over HTTP and
// waits for each answer inside the request.
type SyncStrategy struct {
	payments PaymentClient
	shipping ShipmentClient
}

// NewSyncStrategy creates the synchronous strategy.
func NewSyncStrategy(payments PaymentClient, shipping ShipmentClient) *SyncStrategy {
	return &SyncStrategy{
		payments: payments,
		shipping: shipping,
	}
}

func (s *SyncStrategy) Name() string { return "sync" }

func (s *SyncStrategy) ProcessPayment(ctx context.Context, orderID string, req *models.OrderRequest, total decimal.Decimal) (PaymentOutcome, error) {
	captured, err := s.payments.ProcessPayment(ctx, orderID, total, req.PaymentMethod)
	if err != nil {
		return OutcomeFailed, err
	}
	if !captured {
		return OutcomeFailed, nil
	}
	return OutcomeCompleted, nil
}

func (s *SyncStrategy) CreateShipment(ctx context.Context, orderID string, req *models.OrderRequest) (string, error) {
	return s.shipping.CreateShipment(ctx, orderID, req.ShippingAddress, req.Items)
}

// AsyncStrategy persists a saga record and publishes the payment request
// to the broker; capability results come back through the results queue.
type AsyncStrategy struct {
	store     fulfillment.Store
	publisher EventPublisher
	logger    *logger.Logger
}

// NewAsyncStrategy creates the asynchronous strategy.
func NewAsyncStrategy(store fulfillment.Store, publisher EventPublisher, log *logger.Logger) *AsyncStrategy {
	return &AsyncStrategy{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

func (s *AsyncStrategy) Name() string { return "async" }

// ProcessPayment writes the saga record first, then publishes. The order
// of the two writes matters: a record without a published event is a
// harmless orphan, a published event without a record would leave the
// results subscriber nothing to advance.
func (s *AsyncStrategy) ProcessPayment(ctx context.Context, orderID string, req *models.OrderRequest, total decimal.Decimal) (PaymentOutcome, error) {
	record := &fulfillment.Record{
		OrderID:       orderID,
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		Amount:        total,
		Address:       req.ShippingAddress,
		Items:         req.Items,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: failed to save fulfillment record: %v", ErrPublish, err)
	}

	event := models.NewPaymentRequiredEvent(orderID, req.CustomerID, total, req.PaymentMethod)
	if err := s.publisher.Publish(ctx, messaging.OrdersExchange, models.RouteKeyPaymentRequired, event); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrPublish, err)
	}

	s.logger.Debug("payment_event_dispatched", "Dispatched payment required event", "", map[string]interface{}{
		"order_id": orderID,
	})
	return OutcomeQueued, nil
}

// CreateShipment is never reached on the asynchronous path: the results
// subscriber publishes the shipping event when the payment completes.
func (s *AsyncStrategy) CreateShipment(_ context.Context, orderID string, _ *models.OrderRequest) (string, error) {
	return "", fmt.Errorf("shipment for order %s is created from the payment result, not inline", orderID)
}
