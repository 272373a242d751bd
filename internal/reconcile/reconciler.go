package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pay/internal/events"
	"github.com/noah-isme/backend-pay/internal/money"
	"github.com/noah-isme/backend-pay/internal/obs"
	"github.com/noah-isme/backend-pay/internal/order"
	"github.com/noah-isme/backend-pay/internal/pending"
	"github.com/noah-isme/backend-pay/internal/settings"
	"github.com/noah-isme/backend-pay/internal/zarinpal"
)

// Outcome is the result of reconciling a gateway confirmation.
type Outcome string

const (
	OutcomePaid      Outcome = "PAID"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeCancelled Outcome = "CANCELLED"
)

// OrderOps is the order-mutation surface the reconciler needs.
type OrderOps interface {
	AddNote(ctx context.Context, orderID uuid.UUID, body string, displayToCustomer bool) error
	SetGatewayRef(ctx context.Context, orderID uuid.UUID, refID int64) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, authorizationRef string) (bool, error)
}

// PendingOps reads and clears the amount recorded at redirect time.
type PendingOps interface {
	Get(ctx context.Context, orderID uuid.UUID) (*pending.Record, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
}

// Reconciler decides whether a gateway callback settles an order.
type Reconciler struct {
	Orders  OrderOps
	Pending PendingOps
	Gateway zarinpal.ClientSelector
	Events  *events.Bus
	Logger  zerolog.Logger
}

// Reconcile verifies the callback against the gateway and conditionally
// transitions the order to paid. Every resolvable callback leaves an
// audit note on the order, including repeats for an already-paid order.
func (r *Reconciler) Reconcile(ctx context.Context, statusToken, authority string, o *order.Order, cfg settings.Gateway) (Outcome, error) {
	rec, err := r.Pending.Get(ctx, o.ID)
	if err != nil && !errors.Is(err, pending.ErrNotFound) {
		return OutcomeFailed, fmt.Errorf("load pending payment: %w", err)
	}

	// The gateway verifies whole currency units only; fractional
	// amounts are truncated, which is a known rounding hazard.
	verifyAmount := money.Units(o.Total)
	if rec != nil {
		verifyAmount = money.Units(rec.SentAmount)
	}

	start := time.Now()
	verifyStatus, refID, verifyErr := r.Gateway(cfg.UseSandbox).VerifyPayment(ctx, zarinpal.VerifyRequest{
		MerchantID: cfg.MerchantID,
		Authority:  authority,
		Amount:     verifyAmount,
	})
	r.observeVerify(verifyStatus, verifyErr, start)
	if verifyErr != nil {
		r.Logger.Warn().Err(verifyErr).Str("order_id", o.ID.String()).Msg("gateway verify transport failure")
		verifyStatus = 0
	}

	mapped := zarinpal.MapStatus(statusToken, verifyStatus)
	r.note(ctx, o.ID, fmt.Sprintf(
		"Gateway confirmation:\npayment_status: %s\npayment_status_code: %d\nNew payment status: %s",
		statusToken, verifyStatus, mapped))

	if mapped != zarinpal.StatePaid {
		r.note(ctx, o.ID, fmt.Sprintf("Gateway confirmation failed. status=%s authority=%s", statusToken, authority))
		outcome := OutcomeCancelled
		topic := events.TopicPaymentCancelled
		if verifyErr != nil || (statusTokenIsOK(statusToken) && verifyStatus != zarinpal.StatusOK) {
			outcome = OutcomeFailed
			topic = events.TopicPaymentFailed
		}
		r.emit(ctx, topic, o, map[string]any{
			"statusToken":  statusToken,
			"verifyStatus": verifyStatus,
		})
		r.count(outcome)
		return outcome, nil
	}

	// Amount consistency: the amount sent at redirect time must match
	// the canonical total. On mismatch the pending record is kept for
	// forensics and the order stays unpaid.
	if rec != nil && cfg.ValidateTotalOnConfirm && !rec.SentAmount.Equal(o.Total) {
		msg := fmt.Sprintf("Returned order total %s doesn't equal order total %s. Order# %d.",
			rec.SentAmount.StringFixed(2), o.Total.StringFixed(2), o.Number)
		r.Logger.Error().
			Str("order_id", o.ID.String()).
			Str("sent_amount", rec.SentAmount.StringFixed(2)).
			Str("order_total", o.Total.StringFixed(2)).
			Msg("confirmation amount mismatch")
		r.note(ctx, o.ID, msg)
		r.emit(ctx, events.TopicPaymentFailed, o, map[string]any{
			"reason":     "amount_mismatch",
			"sentAmount": rec.SentAmount.StringFixed(2),
			"orderTotal": o.Total.StringFixed(2),
		})
		r.count(OutcomeFailed)
		return OutcomeFailed, nil
	}

	if rec != nil {
		if err := r.Pending.Delete(ctx, o.ID); err != nil {
			return OutcomeFailed, fmt.Errorf("clear pending payment: %w", err)
		}
	}
	if err := r.Orders.SetGatewayRef(ctx, o.ID, refID); err != nil {
		return OutcomeFailed, err
	}

	// The status predicate in MarkPaid makes the transition happen at
	// most once even for duplicated callbacks.
	transitioned, err := r.Orders.MarkPaid(ctx, o.ID, fmt.Sprintf("%d", refID))
	if err != nil {
		return OutcomeFailed, err
	}
	if transitioned {
		r.emit(ctx, events.TopicOrderPaid, o, map[string]any{"refId": refID})
	}
	r.count(OutcomePaid)
	return OutcomePaid, nil
}

func (r *Reconciler) note(ctx context.Context, orderID uuid.UUID, body string) {
	if err := r.Orders.AddNote(ctx, orderID, body, false); err != nil {
		r.Logger.Error().Err(err).Str("order_id", orderID.String()).Msg("append order note")
	}
}

func (r *Reconciler) emit(ctx context.Context, topic string, o *order.Order, payload map[string]any) {
	if r.Events == nil {
		return
	}
	if _, err := r.Events.Emit(ctx, topic, o.ID, payload); err != nil {
		r.Logger.Error().Err(err).Str("topic", topic).Msg("emit event")
	}
}

func (r *Reconciler) count(outcome Outcome) {
	if obs.ReconcileTotal != nil {
		obs.ReconcileTotal.WithLabelValues(string(outcome)).Inc()
	}
}

func (r *Reconciler) observeVerify(status int, err error, start time.Time) {
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
	obs.GatewayCallTotal.WithLabelValues("verify", result).Inc()
	obs.GatewayCallLatency.WithLabelValues("verify").Observe(obs.DurationMillis(time.Since(start)))
}

func statusTokenIsOK(token string) bool {
	return zarinpal.MapStatus(token, zarinpal.StatusOK) == zarinpal.StatePaid
}
