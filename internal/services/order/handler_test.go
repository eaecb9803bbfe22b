package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"order-fulfillment/internal/fulfillment"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/models"
)

type fakeOrchestrator struct {
	result *models.OrderResult
	calls  int
}

func (o *fakeOrchestrator) PlaceOrder(_ context.Context, _ string, _ *models.OrderRequest) *models.OrderResult {
	o.calls++
	return o.result
}

func validBody() string {
	return `{
		"customer_id": "cust-1",
		"items": [{"book_id": "978-1491904244", "quantity": 2}],
		"shipping_address": {
			"street": "1 Main St",
			"city": "Springfield",
			"country": "US",
			"postal_code": "12345"
		},
		"payment_method": "CREDIT_CARD"
	}`
}

func newTestHandler(orch Orchestrator, store fulfillment.Store) http.Handler {
	return NewHandler(orch, store, logger.New("order-test")).Routes()
}

func TestPlaceOrderSuccess(t *testing.T) {
	orch := &fakeOrchestrator{result: &models.OrderResult{
		OrderID:        "ord-1",
		TotalAmount:    decimal.RequireFromString("119.98"),
		Status:         models.StatusSuccess,
		TrackingNumber: "FDX-ABCDEF123456",
	}}
	handler := newTestHandler(orch, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(validBody())))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var result models.OrderResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.OrderID != "ord-1" || result.Status != models.StatusSuccess {
		t.Errorf("result = %+v", result)
	}
	if orch.calls != 1 {
		t.Errorf("orchestrator called %d times, want 1", orch.calls)
	}
}

func TestPlaceOrderBusinessFailuresReturn200(t *testing.T) {
	for _, status := range []models.WorkflowStatus{models.StatusPaymentFailed, models.StatusPricingFailed} {
		orch := &fakeOrchestrator{result: &models.OrderResult{Status: status}}
		handler := newTestHandler(orch, nil)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(validBody())))

		if rec.Code != http.StatusOK {
			t.Errorf("status for %s = %d, want 200 (business outcome, not transport error)", status, rec.Code)
		}
	}
}

func TestPlaceOrderSystemErrorReturns500(t *testing.T) {
	orch := &fakeOrchestrator{result: &models.OrderResult{
		Status:       models.StatusSystemError,
		ErrorMessage: "broker gone",
	}}
	handler := newTestHandler(orch, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(validBody())))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestPlaceOrderRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{broken`},
		{"missing customer", `{"items":[{"book_id":"b","quantity":1}],"shipping_address":{"street":"s","city":"c","country":"US","postal_code":"1"},"payment_method":"CARD"}`},
		{"empty items", `{"customer_id":"c","items":[],"shipping_address":{"street":"s","city":"c","country":"US","postal_code":"1"},"payment_method":"CARD"}`},
		{"zero quantity", `{"customer_id":"c","items":[{"book_id":"b","quantity":0}],"shipping_address":{"street":"s","city":"c","country":"US","postal_code":"1"},"payment_method":"CARD"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &fakeOrchestrator{result: &models.OrderResult{Status: models.StatusSuccess}}
			handler := newTestHandler(orch, nil)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body)))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if orch.calls != 0 {
				t.Error("orchestrator must not run for an invalid request")
			}
		})
	}
}

func TestPlaceOrderMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(&fakeOrchestrator{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestGetFulfillment(t *testing.T) {
	store := fulfillment.NewMemoryStore()
	if err := store.Create(context.Background(), &fulfillment.Record{
		OrderID:       "ord-1",
		CustomerID:    "cust-1",
		PaymentMethod: "CREDIT_CARD",
		Amount:        decimal.RequireFromString("45.00"),
		Address:       models.ShippingAddress{Street: "s", City: "c", Country: "US", PostalCode: "1"},
		Items:         []models.LineItem{{BookID: "b", Quantity: 1}},
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	handler := newTestHandler(&fakeOrchestrator{}, store)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fulfillment/ord-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var record fulfillment.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if record.OrderID != "ord-1" || record.PaymentStatus != models.PaymentPending {
		t.Errorf("record = %+v", record)
	}
}

func TestGetFulfillmentNotFound(t *testing.T) {
	handler := newTestHandler(&fakeOrchestrator{}, fulfillment.NewMemoryStore())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fulfillment/ord-missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetFulfillmentWithoutStore(t *testing.T) {
	handler := newTestHandler(&fakeOrchestrator{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fulfillment/ord-1", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when tracking is disabled", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(&fakeOrchestrator{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
