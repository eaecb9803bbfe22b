package fulfillment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"order-fulfillment/internal/models"
)

// MemoryStore is an in-memory Store with the same transition guards as
// the Postgres one. It backs tests and single-process development runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Create(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.OrderID]; exists {
		return nil
	}

	stored := *record
	stored.PaymentStatus = models.PaymentPending
	stored.ShipmentStatus = models.ShipmentPending
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	s.records[record.OrderID] = &stored
	return nil
}

func (s *MemoryStore) Get(_ context.Context, orderID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryStore) SetPaymentOutcome(_ context.Context, orderID string, status models.PaymentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[orderID]
	if !ok {
		return false, nil
	}
	if record.PaymentStatus == models.PaymentCompleted || record.PaymentStatus == models.PaymentFailed {
		return false, nil
	}
	record.PaymentStatus = status
	record.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryStore) SetShipmentOutcome(_ context.Context, orderID string, status models.ShipmentStatus, trackingNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[orderID]
	if !ok {
		return false, nil
	}
	if record.ShipmentStatus == models.ShipmentShipped || record.ShipmentStatus == models.ShipmentFailed {
		return false, nil
	}
	record.ShipmentStatus = status
	record.TrackingNumber = trackingNumber
	record.UpdatedAt = time.Now().UTC()
	return true, nil
}
