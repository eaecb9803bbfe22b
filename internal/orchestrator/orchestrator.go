// Package orchestrator runs the place-order workflow: price the line
// items, persist the order, then hand payment and shipping to the
// configured strategy and fold the outcomes into a single result.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"order-fulfillment/internal/catalog"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/metrics"
	"order-fulfillment/internal/models"
)

// Pricer resolves the unit price of a book.
type Pricer interface {
	Price(ctx context.Context, bookID string) (decimal.Decimal, error)
}

// OrderCreator persists a priced order and returns its id.
type OrderCreator interface {
	CreateOrder(ctx context.Context, customerID string, items []models.LineItem, total decimal.Decimal) (string, error)
}

// LocalPricer serves prices from an in-process catalog, for runs where
// no external catalog service is configured.
type LocalPricer struct {
	Books *catalog.PriceBook
}

func (p LocalPricer) Price(_ context.Context, bookID string) (decimal.Decimal, error) {
	return p.Books.Price(bookID)
}

// Orchestrator coordinates one place-order workflow per call. It is safe
// for concurrent use.
type Orchestrator struct {
	pricer   Pricer
	orders   OrderCreator
	strategy Strategy
	logger   *logger.Logger
}

// New creates an orchestrator with the given ports and strategy.
func New(pricer Pricer, orders OrderCreator, strategy Strategy, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		pricer:   pricer,
		orders:   orders,
		strategy: strategy,
		logger:   log,
	}
}

// PlaceOrder runs the workflow for one request and always returns a
// result; failures are folded into the result status, never raised:
//
//	SUCCESS         payment captured (shipping queued or created)
//	PRICING_FAILED  a line item's book id has no price; no order created
//	PAYMENT_FAILED  payment was declined or the capability failed
//	SYSTEM_ERROR    the workflow itself could not run to a decision
func (o *Orchestrator) PlaceOrder(ctx context.Context, requestID string, req *models.OrderRequest) *models.OrderResult {
	startTime := time.Now()
	result := o.placeOrder(ctx, requestID, req)

	metrics.OrdersTotal.WithLabelValues(string(result.Status)).Inc()
	metrics.WorkflowDuration.WithLabelValues(o.strategy.Name()).Observe(float64(time.Since(startTime).Milliseconds()))

	o.logger.Info("order_workflow_finished",
		fmt.Sprintf("Order workflow finished with status %s", result.Status),
		requestID, map[string]interface{}{
			"order_id":    result.OrderID,
			"status":      string(result.Status),
			"strategy":    o.strategy.Name(),
			"duration_ms": time.Since(startTime).Milliseconds(),
		})

	return result
}

func (o *Orchestrator) placeOrder(ctx context.Context, requestID string, req *models.OrderRequest) *models.OrderResult {
	if err := req.Validate(); err != nil {
		return &models.OrderResult{
			Status:       models.StatusSystemError,
			ErrorMessage: err.Error(),
		}
	}

	total, err := o.priceItems(ctx, req.Items)
	if err != nil {
		o.logger.Error("order_pricing_failed", "Failed to price order items", requestID, err, nil)
		return &models.OrderResult{
			Status:       models.StatusPricingFailed,
			ErrorMessage: err.Error(),
		}
	}

	orderID, err := o.orders.CreateOrder(ctx, req.CustomerID, req.Items, total)
	if err != nil {
		o.logger.Error("order_create_failed", "Failed to create order", requestID, err, nil)
		return &models.OrderResult{
			TotalAmount:  total,
			Status:       models.StatusSystemError,
			ErrorMessage: fmt.Sprintf("failed to create order: %v", err),
		}
	}

	outcome, err := o.strategy.ProcessPayment(ctx, orderID, req, total)
	if err != nil {
		if isPublishError(err) {
			o.logger.Error("order_dispatch_failed", "Failed to dispatch order to broker", requestID, err, map[string]interface{}{
				"order_id": orderID,
			})
			return &models.OrderResult{
				OrderID:      orderID,
				TotalAmount:  total,
				Status:       models.StatusSystemError,
				ErrorMessage: fmt.Sprintf("failed to dispatch order: %v", err),
			}
		}
		o.logger.Error("order_payment_failed", "Payment step failed", requestID, err, map[string]interface{}{
			"order_id": orderID,
		})
		return &models.OrderResult{
			OrderID:      orderID,
			TotalAmount:  total,
			Status:       models.StatusPaymentFailed,
			ErrorMessage: fmt.Sprintf("payment failed: %v", err),
		}
	}

	switch outcome {
	case OutcomeFailed:
		return &models.OrderResult{
			OrderID:      orderID,
			TotalAmount:  total,
			Status:       models.StatusPaymentFailed,
			ErrorMessage: "payment was declined",
		}
	case OutcomeQueued:
		return &models.OrderResult{
			OrderID:     orderID,
			TotalAmount: total,
			Status:      models.StatusSuccess,
		}
	}

	// Payment captured; shipment failure does not undo it.
	tracking, err := o.strategy.CreateShipment(ctx, orderID, req)
	if err != nil {
		o.logger.Error("order_shipment_failed", "Shipment creation failed after successful payment", requestID, err, map[string]interface{}{
			"order_id": orderID,
		})
		return &models.OrderResult{
			OrderID:     orderID,
			TotalAmount: total,
			Status:      models.StatusSuccess,
		}
	}

	return &models.OrderResult{
		OrderID:        orderID,
		TotalAmount:    total,
		Status:         models.StatusSuccess,
		TrackingNumber: tracking,
	}
}

// priceItems resolves every line item and sums price * quantity. The
// first unpriceable item fails the whole order.
func (o *Orchestrator) priceItems(ctx context.Context, items []models.LineItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		price, err := o.pricer.Price(ctx, item.BookID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to price book %s: %w", item.BookID, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, nil
}
