package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"order-fulfillment/internal/config"
)

// PaymentsClient drives synchronous payment capture.
type PaymentsClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
}

// NewPaymentsClient creates a client for the payments service.
func NewPaymentsClient(cfg config.ServicesConfig) *PaymentsClient {
	return &PaymentsClient{
		http:    newHTTPClient(cfg),
		breaker: newBreaker("payments"),
		baseURL: cfg.PaymentsURL,
	}
}

type processPaymentRequest struct {
	OrderID       string          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

type processPaymentResponse struct {
	Status string `json:"status"`
}

// ProcessPayment captures an order's total. It returns true when the
// gateway reports SUCCESS and false when the payment was declined; any
// transport or gateway error comes back as err.
func (c *PaymentsClient) ProcessPayment(ctx context.Context, orderID string, amount decimal.Decimal, paymentMethod string) (bool, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(processPaymentRequest{
				OrderID:       orderID,
				Amount:        amount,
				PaymentMethod: paymentMethod,
			}).
			SetResult(&processPaymentResponse{}).
			Post(c.baseURL + "/api/v1/payments")
		if err != nil {
			return nil, fmt.Errorf("payments request failed: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("payments service returned status %d: %s", resp.StatusCode(), resp.String())
		}
		return resp.Result().(*processPaymentResponse), nil
	})
	if err != nil {
		return false, breakerError("payments", err)
	}

	return result.(*processPaymentResponse).Status == "SUCCESS", nil
}
