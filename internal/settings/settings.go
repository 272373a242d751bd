package settings

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway is the fully resolved gateway configuration for one store.
type Gateway struct {
	MerchantID   string
	UseSandbox   bool
	ContactEmail string
	ContactPhone string

	// PassCartDetails selects the itemized redirect payload over the
	// single-total one.
	PassCartDetails bool
	// ValidateTotalOnConfirm requires the amount sent to the gateway to
	// match the order total before marking the order paid.
	ValidateTotalOnConfirm bool
	// RedirectOnDecline sends a customer who returns without paying to
	// their order details page instead of the storefront home.
	RedirectOnDecline bool

	AdditionalFee           decimal.Decimal
	AdditionalFeePercentage bool
}

// Override is a partial per-store configuration. Nil fields inherit
// the base value; set fields replace it.
type Override struct {
	MerchantID   *string
	UseSandbox   *bool
	ContactEmail *string
	ContactPhone *string

	PassCartDetails        *bool
	ValidateTotalOnConfirm *bool
	RedirectOnDecline      *bool

	AdditionalFee           *decimal.Decimal
	AdditionalFeePercentage *bool
}

// IsEmpty reports whether no field of the override is set.
func (o Override) IsEmpty() bool {
	return o.MerchantID == nil && o.UseSandbox == nil &&
		o.ContactEmail == nil && o.ContactPhone == nil &&
		o.PassCartDetails == nil && o.ValidateTotalOnConfirm == nil &&
		o.RedirectOnDecline == nil && o.AdditionalFee == nil &&
		o.AdditionalFeePercentage == nil
}

// Apply layers the override on top of a resolved configuration.
func (o Override) Apply(base Gateway) Gateway {
	out := base
	if o.MerchantID != nil {
		out.MerchantID = *o.MerchantID
	}
	if o.UseSandbox != nil {
		out.UseSandbox = *o.UseSandbox
	}
	if o.ContactEmail != nil {
		out.ContactEmail = *o.ContactEmail
	}
	if o.ContactPhone != nil {
		out.ContactPhone = *o.ContactPhone
	}
	if o.PassCartDetails != nil {
		out.PassCartDetails = *o.PassCartDetails
	}
	if o.ValidateTotalOnConfirm != nil {
		out.ValidateTotalOnConfirm = *o.ValidateTotalOnConfirm
	}
	if o.RedirectOnDecline != nil {
		out.RedirectOnDecline = *o.RedirectOnDecline
	}
	if o.AdditionalFee != nil {
		out.AdditionalFee = *o.AdditionalFee
	}
	if o.AdditionalFeePercentage != nil {
		out.AdditionalFeePercentage = *o.AdditionalFeePercentage
	}
	return out
}

// OverrideStore loads persisted per-store overrides.
type OverrideStore interface {
	GetOverride(ctx context.Context, storeID int64) (Override, error)
}

// Resolver produces the effective configuration for a store by layering
// its persisted override on top of the base configuration. Store id 0
// addresses the base itself.
type Resolver struct {
	Base  Gateway
	Store OverrideStore
}

// Resolve returns the effective configuration for storeID.
func (r *Resolver) Resolve(ctx context.Context, storeID int64) (Gateway, error) {
	if storeID == 0 || r.Store == nil {
		return r.Base, nil
	}
	override, err := r.Store.GetOverride(ctx, storeID)
	if err != nil {
		return Gateway{}, err
	}
	return override.Apply(r.Base), nil
}

// AdditionalFeeFor computes the configured surcharge for an order total.
func (g Gateway) AdditionalFeeFor(total decimal.Decimal) decimal.Decimal {
	if g.AdditionalFee.IsZero() {
		return decimal.Zero
	}
	if g.AdditionalFeePercentage {
		return total.Mul(g.AdditionalFee).Div(decimal.NewFromInt(100))
	}
	return g.AdditionalFee
}
