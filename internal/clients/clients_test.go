package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"order-fulfillment/internal/catalog"
	"order-fulfillment/internal/config"
	"order-fulfillment/internal/models"
)

func servicesConfig(url string) config.ServicesConfig {
	return config.ServicesConfig{
		CatalogURL:     url,
		OrdersURL:      url,
		PaymentsURL:    url,
		ShippingURL:    url,
		TimeoutSeconds: 2,
	}
}

func TestPricingClientPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog/api/books/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			BookID string `json:"book_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.BookID == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"book_id": req.BookID,
			"price":   "59.99",
		})
	}))
	defer server.Close()

	client := NewPricingClient(servicesConfig(server.URL))

	price, err := client.Price(context.Background(), "978-1491904244")
	if err != nil {
		t.Fatalf("Price returned error: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("59.99")) {
		t.Errorf("price = %s, want 59.99", price)
	}

	_, err = client.Price(context.Background(), "missing")
	if !errors.Is(err, catalog.ErrBookNotFound) {
		t.Errorf("unknown book error = %v, want ErrBookNotFound", err)
	}
}

func TestPricingClientNotFoundDoesNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewPricingClient(servicesConfig(server.URL))

	// Well past the breaker's trip threshold. Every call must still reach
	// the server and come back as a not-found, never as an open circuit.
	for i := 0; i < 10; i++ {
		_, err := client.Price(context.Background(), "missing")
		if !errors.Is(err, catalog.ErrBookNotFound) {
			t.Fatalf("call %d: error = %v, want ErrBookNotFound", i, err)
		}
	}
}

func TestOrdersClientCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/orders" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			CustomerID  string            `json:"customer_id"`
			Items       []models.LineItem `json:"items"`
			TotalAmount decimal.Decimal   `json:"total_amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.CustomerID != "cust-1" {
			t.Errorf("customer_id = %s, want cust-1", req.CustomerID)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"order_id": "ord-42"})
	}))
	defer server.Close()

	client := NewOrdersClient(servicesConfig(server.URL))

	orderID, err := client.CreateOrder(context.Background(), "cust-1",
		[]models.LineItem{{BookID: "978-1491904244", Quantity: 2}},
		decimal.RequireFromString("119.98"))
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if orderID != "ord-42" {
		t.Errorf("order id = %s, want ord-42", orderID)
	}
}

func TestOrdersClientEmptyOrderID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := NewOrdersClient(servicesConfig(server.URL))

	_, err := client.CreateOrder(context.Background(), "cust-1",
		[]models.LineItem{{BookID: "b", Quantity: 1}}, decimal.NewFromInt(10))
	if err == nil {
		t.Fatal("expected error for empty order id")
	}
}

func TestPaymentsClientProcessPayment(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   bool
	}{
		{"captured", "SUCCESS", true},
		{"declined", "FAILED", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/payments" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": tt.status})
			}))
			defer server.Close()

			client := NewPaymentsClient(servicesConfig(server.URL))

			ok, err := client.ProcessPayment(context.Background(), "ord-1",
				decimal.RequireFromString("45.00"), "CREDIT_CARD")
			if err != nil {
				t.Fatalf("ProcessPayment returned error: %v", err)
			}
			if ok != tt.want {
				t.Errorf("captured = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestPaymentsClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewPaymentsClient(servicesConfig(server.URL))

	_, err := client.ProcessPayment(context.Background(), "ord-1",
		decimal.NewFromInt(10), "CREDIT_CARD")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestShippingClientCreateShipment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/shipping" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			OrderID string `json:"order_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.OrderID != "ord-7" {
			t.Errorf("order_id = %s, want ord-7", req.OrderID)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"tracking_number": "FDX-ABCDEF123456"})
	}))
	defer server.Close()

	client := NewShippingClient(servicesConfig(server.URL))

	tracking, err := client.CreateShipment(context.Background(), "ord-7",
		models.ShippingAddress{Street: "1 Main St", City: "Springfield", Country: "US", PostalCode: "12345"},
		[]models.LineItem{{BookID: "978-0132350884", Quantity: 1}})
	if err != nil {
		t.Fatalf("CreateShipment returned error: %v", err)
	}
	if tracking != "FDX-ABCDEF123456" {
		t.Errorf("tracking = %s, want FDX-ABCDEF123456", tracking)
	}
}

func TestShippingClientEmptyTracking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := NewShippingClient(servicesConfig(server.URL))

	_, err := client.CreateShipment(context.Background(), "ord-7",
		models.ShippingAddress{Street: "s", City: "c", Country: "US", PostalCode: "1"},
		[]models.LineItem{{BookID: "b", Quantity: 1}})
	if err == nil {
		t.Fatal("expected error for empty tracking number")
	}
}
