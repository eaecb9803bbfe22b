package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"order-fulfillment/internal/config"
	"order-fulfillment/internal/models"
)

// ShippingClient drives synchronous shipment creation.
type ShippingClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
}

// NewShippingClient creates a client for the shipping service.
func NewShippingClient(cfg config.ServicesConfig) *ShippingClient {
	return &ShippingClient{
		http:    newHTTPClient(cfg),
		breaker: newBreaker("shipping"),
		baseURL: cfg.ShippingURL,
	}
}

type createShipmentRequest struct {
	OrderID         string                 `json:"order_id"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	Items           []models.LineItem      `json:"items"`
}

type createShipmentResponse struct {
	TrackingNumber string `json:"tracking_number"`
}

// CreateShipment registers a shipment for a paid order and returns the
// carrier tracking number.
func (c *ShippingClient) CreateShipment(ctx context.Context, orderID string, address models.ShippingAddress, items []models.LineItem) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(createShipmentRequest{
				OrderID:         orderID,
				ShippingAddress: address,
				Items:           items,
			}).
			SetResult(&createShipmentResponse{}).
			Post(c.baseURL + "/api/v1/shipping")
		if err != nil {
			return nil, fmt.Errorf("shipping request failed: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("shipping service returned status %d: %s", resp.StatusCode(), resp.String())
		}
		return resp.Result().(*createShipmentResponse), nil
	})
	if err != nil {
		return "", breakerError("shipping", err)
	}

	tracking := result.(*createShipmentResponse).TrackingNumber
	if tracking == "" {
		return "", fmt.Errorf("shipping service returned empty tracking number")
	}
	return tracking, nil
}
