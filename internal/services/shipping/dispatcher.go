package shipping

import (
	"context"
	"fmt"

	"order-fulfillment/internal/models"
)

// DispatchResult is the carrier's verdict on one shipment.
type DispatchResult struct {
	TrackingNumber string
	Rejected       bool
	Notes          string
}

// Dispatcher hands a shipment to a carrier. An error means the carrier
// could not be reached; a rejection is a successful call with Rejected
// true.
type Dispatcher interface {
	Dispatch(ctx context.Context, orderID string, address models.ShippingAddress, items []models.LineItem) (DispatchResult, error)
}

// CarrierDispatcher simulates a carrier that accepts every well-formed
// shipment and assigns a tracking number. It stands in for a real carrier
// integration.
type CarrierDispatcher struct {
	carrier string
}

// NewCarrierDispatcher creates a dispatcher for the configured carrier.
func NewCarrierDispatcher(carrier string) *CarrierDispatcher {
	return &CarrierDispatcher{carrier: carrier}
}

func (d *CarrierDispatcher) Dispatch(_ context.Context, orderID string, address models.ShippingAddress, items []models.LineItem) (DispatchResult, error) {
	if len(items) == 0 {
		return DispatchResult{
			Rejected: true,
			Notes:    "nothing to ship",
		}, nil
	}
	if address.Country == "" || address.PostalCode == "" {
		return DispatchResult{
			Rejected: true,
			Notes:    fmt.Sprintf("undeliverable address for order %s", orderID),
		}, nil
	}

	return DispatchResult{
		TrackingNumber: NewTrackingNumber(d.carrier),
		Notes:          fmt.Sprintf("dispatched via %s", d.carrierName()),
	}, nil
}

func (d *CarrierDispatcher) carrierName() string {
	if d.carrier == "" {
		return "default carrier"
	}
	return d.carrier
}
