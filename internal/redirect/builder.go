package redirect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pay/internal/money"
	"github.com/noah-isme/backend-pay/internal/order"
	"github.com/noah-isme/backend-pay/internal/settings"
)

const (
	// MaxPayloadLength is the practical limit for a redirect URL sent
	// via GET. Longer itemized payloads fall back to a single total.
	MaxPayloadLength = 2048

	// partnerCode identifies this integration to the gateway.
	partnerCode = "storefront_SP"

	callbackPath = "/plugins/payment-gateway/confirm"
)

// ErrNoBaseURL is returned when the public base URL is not configured.
// Without it no callback address can be produced, which aborts checkout.
var ErrNoBaseURL = errors.New("redirect: public base URL not configured")

// PendingWriter records the amount actually transmitted to the gateway.
type PendingWriter interface {
	Put(ctx context.Context, orderID uuid.UUID, sentAmount decimal.Decimal) error
}

// Builder produces the gateway redirect payload for an order.
type Builder struct {
	PublicBaseURL string
	Pending       PendingWriter
}

// Build assembles the redirect payload URL and persists the amount it
// carries. In itemized mode each order line, priced checkout attribute,
// and positive shipping/fee/tax total becomes its own line; otherwise a
// single synthetic line carries the rounded order total. If the
// itemized payload exceeds MaxPayloadLength the builder silently falls
// back to the single-total form, and the persisted amount follows the
// payload actually used.
func (b *Builder) Build(ctx context.Context, o *order.Order, cfg settings.Gateway) (string, decimal.Decimal, error) {
	if strings.TrimSpace(b.PublicBaseURL) == "" {
		return "", decimal.Zero, ErrNoBaseURL
	}

	payload, sentAmount := b.assemble(o, cfg.PassCartDetails)
	if cfg.PassCartDetails && len(payload) > MaxPayloadLength {
		payload, sentAmount = b.assemble(o, false)
	}
	if err := b.Pending.Put(ctx, o.ID, sentAmount); err != nil {
		return "", decimal.Zero, fmt.Errorf("persist sent amount: %w", err)
	}
	return payload, sentAmount, nil
}

func (b *Builder) assemble(o *order.Order, itemized bool) (string, decimal.Decimal) {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(b.PublicBaseURL, "/"))
	sb.WriteString(callbackPath)

	var sentAmount decimal.Decimal
	if itemized {
		sb.WriteString("?cmd=_cart&upload=1")
		sentAmount = appendCartLines(&sb, o)
	} else {
		sb.WriteString("?cmd=_xclick")
		sentAmount = money.Round(o.Total)
		fmt.Fprintf(&sb, "&item_name=%s", url.QueryEscape(fmt.Sprintf("Order Number %d", o.Number)))
		fmt.Fprintf(&sb, "&amount=%s", money.Format(sentAmount))
	}

	fmt.Fprintf(&sb, "&custom=%s", o.Token)
	sb.WriteString("&charset=utf-8")
	fmt.Fprintf(&sb, "&bn=%s", partnerCode)
	fmt.Fprintf(&sb, "&no_note=1&currency_code=%s", url.QueryEscape(o.Currency))
	fmt.Fprintf(&sb, "&invoice=%d", o.Number)
	sb.WriteString("&rm=2")
	if o.ShippingRequired {
		sb.WriteString("&no_shipping=2")
	} else {
		sb.WriteString("&no_shipping=1")
	}
	return sb.String(), sentAmount
}

// appendCartLines writes the itemized lines and returns the rounded
// running total. Two running totals are kept: the true (unrounded) sum
// decides whether a cart-level discount is needed, while the rounded
// sum is what reconciliation later compares against.
func appendCartLines(sb *strings.Builder, o *order.Order) decimal.Decimal {
	var (
		cartTotal        decimal.Decimal
		cartTotalRounded decimal.Decimal
	)
	x := 1
	writeLine := func(name string, amount decimal.Decimal, qty int32) {
		fmt.Fprintf(sb, "&item_name_%d=%s", x, url.QueryEscape(name))
		fmt.Fprintf(sb, "&amount_%d=%s", x, money.Format(amount))
		fmt.Fprintf(sb, "&quantity_%d=%d", x, qty)
		x++
	}

	for _, item := range o.Items {
		unitRounded := money.Round(item.UnitPriceExclTax)
		writeLine(item.Name, unitRounded, item.Quantity)
		cartTotal = cartTotal.Add(item.PriceExclTax)
		cartTotalRounded = cartTotalRounded.Add(unitRounded.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	for _, att := range o.CheckoutAttributes {
		if !att.Price.IsPositive() {
			continue
		}
		rounded := money.Round(att.Price)
		writeLine(att.Name, rounded, 1)
		cartTotal = cartTotal.Add(att.Price)
		cartTotalRounded = cartTotalRounded.Add(rounded)
	}

	if o.ShippingExclTax.IsPositive() {
		rounded := money.Round(o.ShippingExclTax)
		writeLine("Shipping fee", rounded, 1)
		cartTotal = cartTotal.Add(o.ShippingExclTax)
		cartTotalRounded = cartTotalRounded.Add(rounded)
	}

	if o.PaymentFeeExclTax.IsPositive() {
		rounded := money.Round(o.PaymentFeeExclTax)
		writeLine("Payment method fee", rounded, 1)
		cartTotal = cartTotal.Add(o.PaymentFeeExclTax)
		cartTotalRounded = cartTotalRounded.Add(rounded)
	}

	if o.Tax.IsPositive() {
		rounded := money.Round(o.Tax)
		writeLine("Sales Tax", rounded, 1)
		cartTotal = cartTotal.Add(o.Tax)
		cartTotalRounded = cartTotalRounded.Add(rounded)
	}

	// Gift cards and reward points reduce the order total after line
	// pricing; the surplus surfaces as a cart-level discount.
	if cartTotal.GreaterThan(o.Total) {
		discount := money.Round(cartTotal.Sub(o.Total))
		cartTotalRounded = cartTotalRounded.Sub(discount)
		fmt.Fprintf(sb, "&discount_amount_cart=%s", money.Format(discount))
	}
	return cartTotalRounded
}
