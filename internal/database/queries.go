package database

// Payment queries. Upsert is keyed by order id: a redelivered payment event
// updates the existing row instead of creating a duplicate record.
const (
	UpsertPaymentSQL = `
		INSERT INTO payments (order_id, customer_id, amount, payment_method, status, transaction_id, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			transaction_id = EXCLUDED.transaction_id,
			failure_reason = EXCLUDED.failure_reason,
			updated_at = NOW()
		RETURNING id`

	GetPaymentByOrderSQL = `
		SELECT id, order_id, customer_id, amount, payment_method, status, transaction_id, failure_reason, created_at, updated_at
		FROM payments WHERE order_id = $1`
)

// Shipment queries, same upsert discipline as payments.
const (
	UpsertShipmentSQL = `
		INSERT INTO shipments (order_id, carrier, tracking_number, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO UPDATE SET
			carrier = EXCLUDED.carrier,
			tracking_number = EXCLUDED.tracking_number,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id`

	GetShipmentByOrderSQL = `
		SELECT id, order_id, carrier, tracking_number, status, notes, created_at, updated_at
		FROM shipments WHERE order_id = $1`
)

// Fulfillment saga queries. The record holds the in-flight workflow state
// the asynchronous strategy needs after it has returned to the caller.
const (
	InsertFulfillmentSQL = `
		INSERT INTO fulfillments (order_id, customer_id, payment_method, amount, shipping_address, items, payment_status, shipment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id) DO NOTHING`

	GetFulfillmentSQL = `
		SELECT order_id, customer_id, payment_method, amount, shipping_address, items,
			   payment_status, shipment_status, tracking_number, created_at, updated_at
		FROM fulfillments WHERE order_id = $1`

	UpdateFulfillmentPaymentSQL = `
		UPDATE fulfillments SET payment_status = $2, updated_at = NOW()
		WHERE order_id = $1 AND payment_status NOT IN ('COMPLETED', 'FAILED')`

	UpdateFulfillmentShipmentSQL = `
		UPDATE fulfillments SET shipment_status = $2, tracking_number = $3, updated_at = NOW()
		WHERE order_id = $1 AND shipment_status NOT IN ('SHIPPED', 'FAILED')`
)
