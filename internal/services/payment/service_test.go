package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/messaging"
	"order-fulfillment/internal/models"
)

type memoryRepository struct {
	mu       sync.Mutex
	payments map[string]*Payment
	upserts  int
	failNext bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{payments: make(map[string]*Payment)}
}

func (r *memoryRepository) Upsert(_ context.Context, payment *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return fmt.Errorf("database unavailable")
	}
	r.upserts++
	stored := *payment
	if existing, ok := r.payments[payment.OrderID]; ok {
		stored.ID = existing.ID
	} else {
		stored.ID = len(r.payments) + 1
	}
	r.payments[payment.OrderID] = &stored
	payment.ID = stored.ID
	return nil
}

func (r *memoryRepository) GetByOrder(_ context.Context, orderID string) (*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, orderID)
	}
	copied := *payment
	return &copied, nil
}

type capturedEvent struct {
	exchange   string
	routingKey string
	message    interface{}
}

type fakePublisher struct {
	events []capturedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, exchange, routingKey string, message interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, capturedEvent{exchange, routingKey, message})
	return nil
}

type fixedGateway struct {
	result CaptureResult
	err    error
}

func (g fixedGateway) Capture(_ context.Context, _ string, _ decimal.Decimal, _ string) (CaptureResult, error) {
	return g.result, g.err
}

func paymentEvent(orderID string) *models.PaymentRequiredEvent {
	return &models.PaymentRequiredEvent{
		OrderID:       orderID,
		CustomerID:    "cust-1",
		Amount:        decimal.RequireFromString("45.00"),
		PaymentMethod: "CREDIT_CARD",
		CreatedAt:     time.Now().UTC(),
	}
}

func newTestService(repo Repository, gateway Gateway, publisher Publisher) *Service {
	return NewService(repo, gateway, publisher, logger.New("payment-test"))
}

func TestProcessEventApproved(t *testing.T) {
	repo := newMemoryRepository()
	publisher := &fakePublisher{}
	service := newTestService(repo, fixedGateway{result: CaptureResult{Approved: true}}, publisher)

	if err := service.ProcessEvent(context.Background(), paymentEvent("ord-1")); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	payment, err := repo.GetByOrder(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("GetByOrder: %v", err)
	}
	if payment.Status != models.PaymentCompleted {
		t.Errorf("status = %s, want COMPLETED", payment.Status)
	}
	if payment.TransactionID == "" {
		t.Error("completed payment must have a transaction id")
	}

	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.events))
	}
	if publisher.events[0].routingKey != models.RouteKeyPaymentCompleted {
		t.Errorf("routing key = %s, want payment.completed", publisher.events[0].routingKey)
	}
	if publisher.events[0].exchange != messaging.PaymentsExchange {
		t.Errorf("exchange = %s, want payments.exchange", publisher.events[0].exchange)
	}
}

func TestProcessEventDeclined(t *testing.T) {
	repo := newMemoryRepository()
	publisher := &fakePublisher{}
	service := newTestService(repo,
		fixedGateway{result: CaptureResult{Approved: false, DeclineReason: "insufficient funds"}},
		publisher)

	if err := service.ProcessEvent(context.Background(), paymentEvent("ord-1")); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	payment, _ := repo.GetByOrder(context.Background(), "ord-1")
	if payment.Status != models.PaymentFailed {
		t.Errorf("status = %s, want FAILED", payment.Status)
	}
	if payment.FailureReason != "insufficient funds" {
		t.Errorf("failure reason = %q", payment.FailureReason)
	}

	if len(publisher.events) != 1 || publisher.events[0].routingKey != models.RouteKeyPaymentFailed {
		t.Fatalf("events = %+v, want one payment.failed", publisher.events)
	}
	result := publisher.events[0].message.(*models.PaymentResultEvent)
	if result.Status != models.PaymentFailed || result.FailureReason != "insufficient funds" {
		t.Errorf("result event = %+v", result)
	}
}

func TestProcessEventDuplicateKeepsSingleRecord(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo, fixedGateway{result: CaptureResult{Approved: true}}, &fakePublisher{})

	event := paymentEvent("ord-1")
	if err := service.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("first ProcessEvent: %v", err)
	}
	if err := service.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("second ProcessEvent: %v", err)
	}

	if len(repo.payments) != 1 {
		t.Errorf("repository holds %d payments for one order, want 1", len(repo.payments))
	}
}

func TestProcessEventGatewayError(t *testing.T) {
	repo := newMemoryRepository()
	publisher := &fakePublisher{}
	service := newTestService(repo, fixedGateway{err: fmt.Errorf("gateway timeout")}, publisher)

	err := service.ProcessEvent(context.Background(), paymentEvent("ord-1"))
	if err == nil {
		t.Fatal("expected error when the gateway cannot decide")
	}
	if errors.Is(err, messaging.ErrReject) {
		t.Error("gateway errors are transient and must not be dead-lettered")
	}
	if len(publisher.events) != 0 {
		t.Error("no result event may be published without an outcome")
	}
}

func TestProcessEventPublishFailureDoesNotFailMessage(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo, fixedGateway{result: CaptureResult{Approved: true}},
		&fakePublisher{err: fmt.Errorf("broker gone")})

	if err := service.ProcessEvent(context.Background(), paymentEvent("ord-1")); err != nil {
		t.Fatalf("publish failure must not fail the message once the outcome is stored: %v", err)
	}

	payment, _ := repo.GetByOrder(context.Background(), "ord-1")
	if payment.Status != models.PaymentCompleted {
		t.Errorf("status = %s, want COMPLETED", payment.Status)
	}
}

func TestHandleMessageRejectsMalformedEvents(t *testing.T) {
	service := newTestService(newMemoryRepository(),
		fixedGateway{result: CaptureResult{Approved: true}}, &fakePublisher{})

	tests := []struct {
		name string
		body []byte
	}{
		{"invalid json", []byte(`{not json`)},
		{"missing order id", mustMarshal(t, &models.PaymentRequiredEvent{
			CustomerID: "c", Amount: decimal.NewFromInt(10), PaymentMethod: "CARD"})},
		{"zero amount", mustMarshal(t, &models.PaymentRequiredEvent{
			OrderID: "o", CustomerID: "c", PaymentMethod: "CARD"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.HandleMessage(context.Background(), models.RouteKeyPaymentRequired, tt.body)
			if !errors.Is(err, messaging.ErrReject) {
				t.Errorf("error = %v, want ErrReject", err)
			}
		})
	}
}

func TestSimulatedGatewayRatio(t *testing.T) {
	gateway := NewSimulatedGateway(0.5, rand.New(rand.NewSource(1)))

	approved := 0
	for i := 0; i < 1000; i++ {
		result, err := gateway.Capture(context.Background(), "ord", decimal.NewFromInt(10), "CARD")
		if err != nil {
			t.Fatalf("Capture: %v", err)
		}
		if result.Approved {
			approved++
		}
	}
	if approved < 400 || approved > 600 {
		t.Errorf("approved %d of 1000 captures with ratio 0.5", approved)
	}
}

func TestSimulatedGatewayExtremes(t *testing.T) {
	always := NewSimulatedGateway(1.0, rand.New(rand.NewSource(1)))
	never := NewSimulatedGateway(0.0, rand.New(rand.NewSource(1)))

	for i := 0; i < 50; i++ {
		result, _ := always.Capture(context.Background(), "ord", decimal.NewFromInt(10), "CARD")
		if !result.Approved {
			t.Fatal("ratio 1.0 gateway declined a capture")
		}
		result, _ = never.Capture(context.Background(), "ord", decimal.NewFromInt(10), "CARD")
		if result.Approved {
			t.Fatal("ratio 0.0 gateway approved a capture")
		}
	}
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}
