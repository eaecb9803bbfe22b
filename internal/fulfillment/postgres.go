package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"order-fulfillment/internal/database"
	"order-fulfillment/internal/models"
)

// PostgresStore persists saga records in the fulfillments table.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a store backed by the shared connection pool.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the record. A duplicate order id is a no-op, so the
// dispatch path stays idempotent.
func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	address, err := json.Marshal(record.Address)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	items, err := json.Marshal(record.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	err = s.db.Exec(ctx, database.InsertFulfillmentSQL,
		record.OrderID,
		record.CustomerID,
		record.PaymentMethod,
		record.Amount,
		address,
		items,
		string(models.PaymentPending),
		string(models.ShipmentPending),
	)
	if err != nil {
		return fmt.Errorf("failed to insert fulfillment record: %w", err)
	}
	return nil
}

// Get loads the record for an order id.
func (s *PostgresStore) Get(ctx context.Context, orderID string) (*Record, error) {
	var (
		record  Record
		address []byte
		items   []byte
	)

	row := s.db.QueryRow(ctx, database.GetFulfillmentSQL, orderID)
	err := row.Scan(
		&record.OrderID,
		&record.CustomerID,
		&record.PaymentMethod,
		&record.Amount,
		&address,
		&items,
		&record.PaymentStatus,
		&record.ShipmentStatus,
		&record.TrackingNumber,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to get fulfillment record: %w", err)
	}

	if err := json.Unmarshal(address, &record.Address); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(items, &record.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}

	return &record, nil
}

// SetPaymentOutcome records the payment result unless one is already set.
func (s *PostgresStore) SetPaymentOutcome(ctx context.Context, orderID string, status models.PaymentStatus) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, database.UpdateFulfillmentPaymentSQL, orderID, string(status))
	if err != nil {
		return false, fmt.Errorf("failed to update payment status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetShipmentOutcome records the shipment result unless one is already set.
func (s *PostgresStore) SetShipmentOutcome(ctx context.Context, orderID string, status models.ShipmentStatus, trackingNumber string) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, database.UpdateFulfillmentShipmentSQL, orderID, string(status), trackingNumber)
	if err != nil {
		return false, fmt.Errorf("failed to update shipment status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
