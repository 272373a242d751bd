package pending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no pending record exists for an order.
var ErrNotFound = errors.New("pending payment not found")

// Record holds the amount actually transmitted to the gateway for an
// order. At most one record exists per order; it is written at redirect
// time and deleted once reconciliation succeeds.
type Record struct {
	OrderID    uuid.UUID
	SentAmount decimal.Decimal
	CreatedAt  time.Time
}

// Store persists pending-payment records in PostgreSQL.
type Store struct {
	Pool *pgxpool.Pool
}

// NewStore returns a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Put creates or replaces the pending record for an order. The builder
// may call this twice for one checkout when the itemized payload falls
// back to a single total; the last write wins.
func (s *Store) Put(ctx context.Context, orderID uuid.UUID, sentAmount decimal.Decimal) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO pending_payments (order_id, sent_amount, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (order_id) DO UPDATE
		    SET sent_amount = EXCLUDED.sent_amount, created_at = now()`,
		orderID, sentAmount)
	if err != nil {
		return fmt.Errorf("put pending payment: %w", err)
	}
	return nil
}

// Get loads the pending record for an order.
func (s *Store) Get(ctx context.Context, orderID uuid.UUID) (*Record, error) {
	var rec Record
	err := s.Pool.QueryRow(ctx,
		`SELECT order_id, sent_amount, created_at FROM pending_payments WHERE order_id = $1`,
		orderID).Scan(&rec.OrderID, &rec.SentAmount, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pending payment: %w", err)
	}
	return &rec, nil
}

// Delete removes the pending record for an order. Deleting a missing
// record is not an error.
func (s *Store) Delete(ctx context.Context, orderID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM pending_payments WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete pending payment: %w", err)
	}
	return nil
}

// DeleteStale removes records older than maxAge and reports how many
// were removed. Used by the sweeper for checkouts that never returned
// from the gateway.
func (s *Store) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := s.Pool.Exec(ctx,
		`DELETE FROM pending_payments WHERE created_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int64(maxAge.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("delete stale pending payments: %w", err)
	}
	return tag.RowsAffected(), nil
}
