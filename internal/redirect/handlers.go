package redirect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pay/internal/common"
	"github.com/noah-isme/backend-pay/internal/money"
	"github.com/noah-isme/backend-pay/internal/obs"
	"github.com/noah-isme/backend-pay/internal/order"
	"github.com/noah-isme/backend-pay/internal/settings"
	"github.com/noah-isme/backend-pay/internal/zarinpal"
)

// OrderGetter loads an order for the redirect build.
type OrderGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// Handler exposes the redirect-build endpoint used at checkout.
type Handler struct {
	Orders    OrderGetter
	Builder   *Builder
	Resolver  *settings.Resolver
	Gateway   zarinpal.ClientSelector
	StoreName string
	Logger    zerolog.Logger

	// PayPageURL turns an authority token into the customer-facing pay
	// page address for the resolved environment.
	PayPageURL func(useSandbox bool, authority string) string
}

type buildRequest struct {
	OrderID string `json:"orderId"`
	Repost  bool   `json:"repost"`
}

type buildResponse struct {
	RedirectURL string `json:"redirectUrl"`
	Authority   string `json:"authority"`
	SentAmount  string `json:"sentAmount"`
}

// BuildRedirect builds the gateway payload for an order, registers the
// payment, and returns the pay page URL for the customer.
func (h *Handler) BuildRedirect(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	ctx := r.Context()

	o, err := h.Orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		h.Logger.Error().Err(err).Str("order_id", req.OrderID).Msg("load order")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not load order", nil)
		return
	}
	if o.PaymentStatus != order.PaymentPending {
		common.JSONError(w, http.StatusConflict, "ALREADY_PAID", "order is not awaiting payment", nil)
		return
	}
	if req.Repost && !o.CanRepost(time.Now()) {
		common.JSONError(w, http.StatusConflict, "TOO_EARLY", "payment cannot be retried yet", nil)
		return
	}

	cfg, err := h.Resolver.Resolve(ctx, o.StoreID)
	if err != nil {
		h.Logger.Error().Err(err).Int64("store_id", o.StoreID).Msg("resolve settings")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not resolve settings", nil)
		return
	}

	mode := "single"
	if cfg.PassCartDetails {
		mode = "itemized"
	}
	payloadURL, sentAmount, err := h.Builder.Build(ctx, o, cfg)
	if err != nil {
		if obs.RedirectBuildTotal != nil {
			obs.RedirectBuildTotal.WithLabelValues(mode, "error").Inc()
		}
		h.Logger.Error().Err(err).Str("order_id", req.OrderID).Msg("build redirect payload")
		common.JSONError(w, http.StatusInternalServerError, "BUILD_FAILED", "could not build redirect payload", nil)
		return
	}
	if obs.RedirectBuildTotal != nil {
		obs.RedirectBuildTotal.WithLabelValues(mode, "ok").Inc()
	}

	start := time.Now()
	status, authority, err := h.Gateway(cfg.UseSandbox).InitiatePayment(ctx, zarinpal.PaymentRequest{
		MerchantID:  cfg.MerchantID,
		Amount:      money.Units(o.Total),
		Description: h.StoreName,
		Email:       cfg.ContactEmail,
		Mobile:      cfg.ContactPhone,
		CallbackURL: payloadURL,
	})
	observeGatewayCall("initiate", status, err, start)
	if err != nil || status != zarinpal.StatusOK {
		h.Logger.Warn().Err(err).Int("gateway_status", status).Str("order_id", req.OrderID).Msg("payment initiation declined")
		common.JSONError(w, http.StatusBadGateway, "GATEWAY_DECLINED", "payment could not be initiated", map[string]any{
			"gatewayStatus": status,
		})
		return
	}

	common.JSON(w, http.StatusOK, buildResponse{
		RedirectURL: h.PayPageURL(cfg.UseSandbox, authority),
		Authority:   authority,
		SentAmount:  money.Format(sentAmount),
	})
}

func observeGatewayCall(op string, status int, err error, start time.Time) {
	if obs.GatewayCallTotal == nil {
		return
	}
	result := "ok"
	switch {
	case err != nil:
		result = "transport_error"
	case status != zarinpal.StatusOK:
		result = "declined"
	}
	obs.GatewayCallTotal.WithLabelValues(op, result).Inc()
	obs.GatewayCallLatency.WithLabelValues(op).Observe(obs.DurationMillis(time.Since(start)))
}
