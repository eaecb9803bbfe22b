package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"order-fulfillment/internal/catalog"
	"order-fulfillment/internal/config"
)

// PricingClient resolves unit prices from the catalog capability.
type PricingClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
}

// NewPricingClient creates a pricing client for the catalog service.
func NewPricingClient(cfg config.ServicesConfig) *PricingClient {
	return &PricingClient{
		http:    newHTTPClient(cfg),
		breaker: newBreaker("catalog"),
		baseURL: cfg.CatalogURL,
	}
}

type priceRequest struct {
	BookID string `json:"book_id"`
}

type priceResponse struct {
	BookID string          `json:"book_id"`
	Price  decimal.Decimal `json:"price"`
}

type priceResult struct {
	price decimal.Decimal
	found bool
}

// Price returns the unit price for a book id. An unknown book id maps to
// catalog.ErrBookNotFound. A 404 is a business outcome, not a capability
// failure, so it does not count against the circuit breaker.
func (c *PricingClient) Price(ctx context.Context, bookID string) (decimal.Decimal, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(priceRequest{BookID: bookID}).
			SetResult(&priceResponse{}).
			Post(c.baseURL + "/catalog/api/books/price")
		if err != nil {
			return nil, fmt.Errorf("catalog request failed: %w", err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			return &priceResult{}, nil
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("catalog service returned status %d: %s", resp.StatusCode(), resp.String())
		}
		return &priceResult{price: resp.Result().(*priceResponse).Price, found: true}, nil
	})
	if err != nil {
		return decimal.Zero, breakerError("catalog", err)
	}

	pr := result.(*priceResult)
	if !pr.found {
		return decimal.Zero, fmt.Errorf("%w: %s", catalog.ErrBookNotFound, bookID)
	}
	return pr.price, nil
}
