package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pay/internal/lock"
	"github.com/noah-isme/backend-pay/internal/order"
	"github.com/noah-isme/backend-pay/internal/settings"
)

// OrderLookup recovers orders from callback parameters.
type OrderLookup interface {
	GetByToken(ctx context.Context, token uuid.UUID) (*order.Order, error)
	LatestByCustomer(ctx context.Context, customerID uuid.UUID) (*order.Order, error)
}

// Handler exposes the gateway-facing callback endpoints. Responses are
// always redirects; the customer never sees an error body here.
type Handler struct {
	Orders     OrderLookup
	Resolver   *settings.Resolver
	Reconciler *Reconciler
	Locker     lock.Locker
	Logger     zerolog.Logger

	// StorefrontURL is the base of the customer-facing store the
	// callback redirects back into.
	StorefrontURL string
}

// Confirm handles the gateway's post-payment callback. The custom
// parameter carries the order correlation token; a malformed or unknown
// token sends the customer down the cancel path.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	statusToken := r.URL.Query().Get("Status")
	authority := r.URL.Query().Get("Authority")

	token, err := uuid.Parse(r.URL.Query().Get("custom"))
	if err != nil {
		h.Logger.Warn().Str("custom", r.URL.Query().Get("custom")).Msg("malformed correlation token")
		h.redirectCancel(w, r, nil)
		return
	}
	o, err := h.Orders.GetByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, order.ErrNotFound) {
			h.Logger.Error().Err(err).Str("token", token.String()).Msg("load order by token")
		}
		h.redirectCancel(w, r, nil)
		return
	}

	cfg, err := h.Resolver.Resolve(ctx, o.StoreID)
	if err != nil {
		h.Logger.Error().Err(err).Int64("store_id", o.StoreID).Msg("resolve settings")
		h.redirectHome(w, r)
		return
	}

	var outcome Outcome
	err = h.Locker.WithLock(ctx, lock.OrderKey(o.ID), func(ctx context.Context) error {
		var reconcileErr error
		outcome, reconcileErr = h.Reconciler.Reconcile(ctx, statusToken, authority, o, cfg)
		return reconcileErr
	})
	if err != nil {
		h.Logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("reconcile callback")
		h.redirectHome(w, r)
		return
	}

	switch outcome {
	case OutcomePaid:
		http.Redirect(w, r, fmt.Sprintf("%s/checkout/completed/%s", h.StorefrontURL, o.ID), http.StatusFound)
	case OutcomeCancelled:
		h.redirectCancel(w, r, o)
	default:
		h.redirectHome(w, r)
	}
}

// Cancel handles a customer returning from the gateway without paying.
// With the decline redirect enabled it lands on the customer's most
// recent order, otherwise on the storefront home.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeID, _ := strconv.ParseInt(r.URL.Query().Get("storeId"), 10, 64)
	cfg, err := h.Resolver.Resolve(ctx, storeID)
	if err != nil {
		h.Logger.Error().Err(err).Int64("store_id", storeID).Msg("resolve settings")
		h.redirectHome(w, r)
		return
	}
	if !cfg.RedirectOnDecline {
		h.redirectHome(w, r)
		return
	}

	customerID, err := uuid.Parse(customerRef(r))
	if err != nil {
		h.redirectHome(w, r)
		return
	}
	o, err := h.Orders.LatestByCustomer(ctx, customerID)
	if err != nil {
		if !errors.Is(err, order.ErrNotFound) {
			h.Logger.Error().Err(err).Str("customer_id", customerID.String()).Msg("load latest order")
		}
		h.redirectHome(w, r)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("%s/order/details/%s", h.StorefrontURL, o.ID), http.StatusFound)
}

func (h *Handler) redirectCancel(w http.ResponseWriter, r *http.Request, o *order.Order) {
	target := "/plugins/payment-gateway/cancel"
	if o != nil {
		target = fmt.Sprintf("%s?storeId=%d&customerId=%s", target, o.StoreID, o.CustomerID)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.StorefrontURL+"/", http.StatusFound)
}

// customerRef resolves the customer identity from the query or, as a
// fallback, the storefront session cookie.
func customerRef(r *http.Request) string {
	if v := r.URL.Query().Get("customerId"); v != "" {
		return v
	}
	if c, err := r.Cookie("customer_id"); err == nil {
		return c.Value
	}
	return ""
}
