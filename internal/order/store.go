package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no order matches the lookup key.
var ErrNotFound = errors.New("order not found")

// Store persists orders and their audit notes in PostgreSQL.
type Store struct {
	Pool *pgxpool.Pool
}

// NewStore returns a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

const orderColumns = `
	id, token, store_id, number, customer_id, customer_email, customer_phone,
	shipping_excl_tax, payment_fee_excl_tax, tax, total, currency,
	payment_status, shipping_required, gateway_ref_id, authorization_ref, created_at`

// GetByID loads a single order with its line items and checkout attributes.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.getOne(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByToken recovers an order from its opaque correlation token.
func (s *Store) GetByToken(ctx context.Context, token uuid.UUID) (*Order, error) {
	return s.getOne(ctx, `SELECT`+orderColumns+` FROM orders WHERE token = $1`, token)
}

// LatestByCustomer returns the customer's most recent order.
func (s *Store) LatestByCustomer(ctx context.Context, customerID uuid.UUID) (*Order, error) {
	return s.getOne(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC LIMIT 1`,
		customerID)
}

func (s *Store) getOne(ctx context.Context, query string, arg any) (*Order, error) {
	var o Order
	err := s.Pool.QueryRow(ctx, query, arg).Scan(
		&o.ID, &o.Token, &o.StoreID, &o.Number,
		&o.CustomerID, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingExclTax, &o.PaymentFeeExclTax, &o.Tax, &o.Total, &o.Currency,
		&o.PaymentStatus, &o.ShippingRequired, &o.GatewayRefID, &o.AuthorizationRef, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if err := s.loadLines(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) loadLines(ctx context.Context, o *Order) error {
	rows, err := s.Pool.Query(ctx,
		`SELECT name, unit_price_excl_tax, quantity, price_excl_tax
		   FROM order_items WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.Name, &l.UnitPriceExclTax, &l.Quantity, &l.PriceExclTax); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}

	attrRows, err := s.Pool.Query(ctx,
		`SELECT name, price FROM order_checkout_attributes WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("load checkout attributes: %w", err)
	}
	defer attrRows.Close()
	for attrRows.Next() {
		var a AttributeValue
		if err := attrRows.Scan(&a.Name, &a.Price); err != nil {
			return fmt.Errorf("scan checkout attribute: %w", err)
		}
		o.CheckoutAttributes = append(o.CheckoutAttributes, a)
	}
	if err := attrRows.Err(); err != nil {
		return fmt.Errorf("iterate checkout attributes: %w", err)
	}
	return nil
}

// AddNote appends an audit note to the order.
func (s *Store) AddNote(ctx context.Context, orderID uuid.UUID, body string, displayToCustomer bool) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO order_notes (id, order_id, body, display_to_customer, created_at)
		 VALUES ($1, $2, $3, $4, now())`,
		uuid.New(), orderID, body, displayToCustomer)
	if err != nil {
		return fmt.Errorf("add order note: %w", err)
	}
	return nil
}

// Notes lists an order's audit notes, oldest first.
func (s *Store) Notes(ctx context.Context, orderID uuid.UUID) ([]Note, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, order_id, body, display_to_customer, created_at
		   FROM order_notes WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order notes: %w", err)
	}
	defer rows.Close()
	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Body, &n.DisplayToCustomer, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// SetGatewayRef stores the gateway reference id on the order.
func (s *Store) SetGatewayRef(ctx context.Context, orderID uuid.UUID, refID int64) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE orders SET gateway_ref_id = $2 WHERE id = $1`, orderID, refID)
	if err != nil {
		return fmt.Errorf("set gateway ref: %w", err)
	}
	return nil
}

// MarkPaid transitions the order to paid and records the authorization
// reference. The status predicate makes the transition atomic: it
// succeeds at most once per order regardless of concurrent callbacks.
func (s *Store) MarkPaid(ctx context.Context, orderID uuid.UUID, authorizationRef string) (bool, error) {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE orders
		    SET payment_status = $2, authorization_ref = $3
		  WHERE id = $1 AND payment_status = $4`,
		orderID, PaymentPaid, authorizationRef, PaymentPending)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
