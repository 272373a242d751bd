package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the order's payment state. The order row is the
// single source of truth once reconciliation completes.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// Order is a snapshot of a placed order as the payment protocol sees it.
// It is owned by the surrounding order-management tables; this service
// reads it, appends notes, and flips the payment status.
type Order struct {
	ID      uuid.UUID
	Token   uuid.UUID
	StoreID int64
	Number  int64

	CustomerID    uuid.UUID
	CustomerEmail string
	CustomerPhone string

	Items              []Line
	CheckoutAttributes []AttributeValue

	ShippingExclTax   decimal.Decimal
	PaymentFeeExclTax decimal.Decimal
	Tax               decimal.Decimal
	Total             decimal.Decimal
	Currency          string

	PaymentStatus    PaymentStatus
	ShippingRequired bool
	GatewayRefID     int64
	AuthorizationRef string

	CreatedAt time.Time
}

// Line is an immutable order line captured at redirect-build time.
type Line struct {
	Name             string
	UnitPriceExclTax decimal.Decimal
	Quantity         int32
	PriceExclTax     decimal.Decimal
}

// AttributeValue is a priced checkout add-on resolved to a display
// name and price.
type AttributeValue struct {
	Name  string
	Price decimal.Decimal
}

// Note is a free-text audit entry attached to an order.
type Note struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	Body              string
	DisplayToCustomer bool
	CreatedAt         time.Time
}

// CanMarkPaid reports whether the order is still eligible for the
// pending to paid transition.
func (o *Order) CanMarkPaid() bool {
	return o.PaymentStatus == PaymentPending
}

// CanRepost reports whether a customer may retry the gateway redirect
// for an unpaid order. A short grace period after order placement
// avoids racing the initial redirect.
func (o *Order) CanRepost(now time.Time) bool {
	if o.PaymentStatus != PaymentPending {
		return false
	}
	return now.Sub(o.CreatedAt) >= 5*time.Second
}
