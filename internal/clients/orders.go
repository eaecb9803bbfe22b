package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"order-fulfillment/internal/config"
	"order-fulfillment/internal/models"
)

// OrdersClient persists orders through the orders capability.
type OrdersClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
}

// NewOrdersClient creates a client for the orders service.
func NewOrdersClient(cfg config.ServicesConfig) *OrdersClient {
	return &OrdersClient{
		http:    newHTTPClient(cfg),
		breaker: newBreaker("orders"),
		baseURL: cfg.OrdersURL,
	}
}

type createOrderRequest struct {
	CustomerID  string            `json:"customer_id"`
	Items       []models.LineItem `json:"items"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
}

// CreateOrder persists the order and returns the assigned order id.
func (c *OrdersClient) CreateOrder(ctx context.Context, customerID string, items []models.LineItem, total decimal.Decimal) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(createOrderRequest{
				CustomerID:  customerID,
				Items:       items,
				TotalAmount: total,
			}).
			SetResult(&createOrderResponse{}).
			Post(c.baseURL + "/api/v1/orders")
		if err != nil {
			return nil, fmt.Errorf("orders request failed: %w", err)
		}
		if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
			return nil, fmt.Errorf("orders service returned status %d: %s", resp.StatusCode(), resp.String())
		}
		created := resp.Result().(*createOrderResponse)
		if created.OrderID == "" {
			return nil, fmt.Errorf("orders service returned an empty order id")
		}
		return created, nil
	})
	if err != nil {
		return "", breakerError("orders", err)
	}

	return result.(*createOrderResponse).OrderID, nil
}
