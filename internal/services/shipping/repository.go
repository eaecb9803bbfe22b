package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"order-fulfillment/internal/database"
	"order-fulfillment/internal/models"
)

// ErrShipmentNotFound is returned when no shipment exists for an order id.
var ErrShipmentNotFound = errors.New("shipment not found")

// Shipment is one persisted shipment record, keyed by order id.
type Shipment struct {
	ID             int
	OrderID        string
	Carrier        string
	TrackingNumber string
	Status         models.ShipmentStatus
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository persists shipment records.
type Repository interface {
	Upsert(ctx context.Context, shipment *Shipment) error
	GetByOrder(ctx context.Context, orderID string) (*Shipment, error)
}

// PostgresRepository stores shipments in the shipments table.
type PostgresRepository struct {
	db *database.DB
}

// NewPostgresRepository creates a repository backed by the shared pool.
func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts the shipment or, for a redelivered event, updates the
// existing row for the same order.
func (r *PostgresRepository) Upsert(ctx context.Context, shipment *Shipment) error {
	row := r.db.QueryRow(ctx, database.UpsertShipmentSQL,
		shipment.OrderID,
		shipment.Carrier,
		nullable(shipment.TrackingNumber),
		string(shipment.Status),
		nullable(shipment.Notes),
	)
	if err := row.Scan(&shipment.ID); err != nil {
		return fmt.Errorf("failed to upsert shipment: %w", err)
	}
	return nil
}

// GetByOrder loads the shipment record for an order id.
func (r *PostgresRepository) GetByOrder(ctx context.Context, orderID string) (*Shipment, error) {
	var (
		shipment       Shipment
		trackingNumber *string
		notes          *string
	)

	row := r.db.QueryRow(ctx, database.GetShipmentByOrderSQL, orderID)
	err := row.Scan(
		&shipment.ID,
		&shipment.OrderID,
		&shipment.Carrier,
		&trackingNumber,
		&shipment.Status,
		&notes,
		&shipment.CreatedAt,
		&shipment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrShipmentNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	if trackingNumber != nil {
		shipment.TrackingNumber = *trackingNumber
	}
	if notes != nil {
		shipment.Notes = *notes
	}
	return &shipment, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
