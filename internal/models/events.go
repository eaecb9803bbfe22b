package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys on the orders exchange.
const (
	RouteKeyPaymentRequired  = "order.payment.required"
	RouteKeyShippingRequired = "order.shipping.required"
)

// Routing keys for capability result events, published to the payments and
// shipping exchanges respectively.
const (
	RouteKeyPaymentCompleted = "payment.completed"
	RouteKeyPaymentFailed    = "payment.failed"
	RouteKeyShipmentShipped  = "shipping.shipped"
	RouteKeyShipmentFailed   = "shipping.failed"
)

// PaymentRequiredEvent asks the payment capability to capture an order's total.
type PaymentRequiredEvent struct {
	OrderID       string          `json:"order_id"`
	CustomerID    string          `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ShippingRequiredEvent asks the shipping capability to create a shipment.
// It carries the packing details the payment event does not.
type ShippingRequiredEvent struct {
	OrderID   string          `json:"order_id"`
	Address   ShippingAddress `json:"shipping_address"`
	Items     []LineItem      `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaymentResultEvent reports the terminal outcome of a payment capture.
type PaymentResultEvent struct {
	OrderID       string          `json:"order_id"`
	Status        PaymentStatus   `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// ShipmentResultEvent reports the terminal outcome of a shipment creation.
type ShipmentResultEvent struct {
	OrderID        string         `json:"order_id"`
	Status         ShipmentStatus `json:"status"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

// NewPaymentRequiredEvent builds a payment event for an order.
func NewPaymentRequiredEvent(orderID, customerID string, amount decimal.Decimal, paymentMethod string) *PaymentRequiredEvent {
	return &PaymentRequiredEvent{
		OrderID:       orderID,
		CustomerID:    customerID,
		Amount:        amount,
		PaymentMethod: paymentMethod,
		CreatedAt:     time.Now().UTC(),
	}
}

// NewShippingRequiredEvent builds a shipment event for an order.
func NewShippingRequiredEvent(orderID string, address ShippingAddress, items []LineItem) *ShippingRequiredEvent {
	return &ShippingRequiredEvent{
		OrderID:   orderID,
		Address:   address,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}
}
