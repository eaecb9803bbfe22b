package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WorkflowStatus is the terminal status of one place-order workflow.
type WorkflowStatus string

const (
	StatusSuccess       WorkflowStatus = "SUCCESS"
	StatusPaymentFailed WorkflowStatus = "PAYMENT_FAILED"
	StatusPricingFailed WorkflowStatus = "PRICING_FAILED"
	StatusSystemError   WorkflowStatus = "SYSTEM_ERROR"
)

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
)

// ShipmentStatus is the lifecycle state of a shipment record.
type ShipmentStatus string

const (
	ShipmentPending    ShipmentStatus = "PENDING"
	ShipmentProcessing ShipmentStatus = "PROCESSING"
	ShipmentShipped    ShipmentStatus = "SHIPPED"
	ShipmentFailed     ShipmentStatus = "FAILED"
)

// LineItem is one ordered book. Price is resolved during orchestration,
// never carried by the request.
type LineItem struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// ShippingAddress is the delivery destination for an order.
type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// OrderRequest is the immutable input to the place-order workflow.
type OrderRequest struct {
	CustomerID      string          `json:"customer_id"`
	Items           []LineItem      `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
}

// OrderResult is the aggregated outcome of one place-order workflow.
type OrderResult struct {
	OrderID        string          `json:"order_id,omitempty"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         WorkflowStatus  `json:"status"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// Validate checks the structural preconditions of an order request.
func (req *OrderRequest) Validate() error {
	if req.CustomerID == "" {
		return fmt.Errorf("customer_id is required")
	}
	if err := validateItems(req.Items); err != nil {
		return err
	}
	if err := validateAddress(&req.ShippingAddress); err != nil {
		return err
	}
	if req.PaymentMethod == "" {
		return fmt.Errorf("payment_method is required")
	}
	return nil
}

// validateItems validates the order line items
func validateItems(items []LineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("items array cannot be empty")
	}

	for i, item := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		if item.BookID == "" {
			return fmt.Errorf("%s.book_id is required", prefix)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%s.quantity must be positive", prefix)
		}
	}

	return nil
}

// validateAddress validates the shipping address fields
func validateAddress(addr *ShippingAddress) error {
	if addr.Street == "" {
		return fmt.Errorf("shipping_address.street is required")
	}
	if addr.City == "" {
		return fmt.Errorf("shipping_address.city is required")
	}
	if addr.Country == "" {
		return fmt.Errorf("shipping_address.country is required")
	}
	if addr.PostalCode == "" {
		return fmt.Errorf("shipping_address.postal_code is required")
	}
	return nil
}
