package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"order-fulfillment/internal/database"
	"order-fulfillment/internal/models"
)

// ErrPaymentNotFound is returned when no payment exists for an order id.
var ErrPaymentNotFound = errors.New("payment not found")

// Payment is one persisted payment record, keyed by order id.
type Payment struct {
	ID            int
	OrderID       string
	CustomerID    string
	Amount        decimal.Decimal
	PaymentMethod string
	Status        models.PaymentStatus
	TransactionID string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository persists payment records.
type Repository interface {
	Upsert(ctx context.Context, payment *Payment) error
	GetByOrder(ctx context.Context, orderID string) (*Payment, error)
}

// PostgresRepository stores payments in the payments table.
type PostgresRepository struct {
	db *database.DB
}

// NewPostgresRepository creates a repository backed by the shared pool.
func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts the payment or, for a redelivered event, updates the
// existing row for the same order.
func (r *PostgresRepository) Upsert(ctx context.Context, payment *Payment) error {
	row := r.db.QueryRow(ctx, database.UpsertPaymentSQL,
		payment.OrderID,
		payment.CustomerID,
		payment.Amount,
		payment.PaymentMethod,
		string(payment.Status),
		nullable(payment.TransactionID),
		nullable(payment.FailureReason),
	)
	if err := row.Scan(&payment.ID); err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}
	return nil
}

// GetByOrder loads the payment record for an order id.
func (r *PostgresRepository) GetByOrder(ctx context.Context, orderID string) (*Payment, error) {
	var (
		payment       Payment
		transactionID *string
		failureReason *string
	)

	row := r.db.QueryRow(ctx, database.GetPaymentByOrderSQL, orderID)
	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.CustomerID,
		&payment.Amount,
		&payment.PaymentMethod,
		&payment.Status,
		&transactionID,
		&failureReason,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if transactionID != nil {
		payment.TransactionID = *transactionID
	}
	if failureReason != nil {
		payment.FailureReason = *failureReason
	}
	return &payment, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
