// Package fulfillment tracks the saga state of asynchronously placed
// orders. A record is written when the order is dispatched to the broker
// and advanced by the results subscriber as capability outcomes arrive.
package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"order-fulfillment/internal/models"
)

// ErrNotFound is returned when no record exists for an order id.
var ErrNotFound = errors.New("fulfillment record not found")

// Record is the persisted saga state of one order.
type Record struct {
	OrderID        string                 `json:"order_id"`
	CustomerID     string                 `json:"customer_id"`
	PaymentMethod  string                 `json:"payment_method"`
	Amount         decimal.Decimal        `json:"amount"`
	Address        models.ShippingAddress `json:"shipping_address"`
	Items          []models.LineItem      `json:"items"`
	PaymentStatus  models.PaymentStatus   `json:"payment_status"`
	ShipmentStatus models.ShipmentStatus  `json:"shipment_status"`
	TrackingNumber string                 `json:"tracking_number,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Store persists saga records. Outcome setters are conditional updates
// that refuse to move a record out of a terminal state, so a redelivered
// result event cannot overwrite the first outcome; they report whether
// the record actually transitioned.
type Store interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, orderID string) (*Record, error)
	SetPaymentOutcome(ctx context.Context, orderID string, status models.PaymentStatus) (bool, error)
	SetShipmentOutcome(ctx context.Context, orderID string, status models.ShipmentStatus, trackingNumber string) (bool, error)
}
