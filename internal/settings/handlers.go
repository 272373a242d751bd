package settings

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pay/internal/common"
)

// Handler exposes admin endpoints for gateway settings.
type Handler struct {
	Resolver *Resolver
	Store    *PGStore
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type overridePayload struct {
	MerchantID   *string `json:"merchantId" validate:"omitempty,min=1,max=128"`
	UseSandbox   *bool   `json:"useSandbox"`
	ContactEmail *string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone *string `json:"contactPhone" validate:"omitempty,max=32"`

	PassCartDetails        *bool `json:"passCartDetails"`
	ValidateTotalOnConfirm *bool `json:"validateTotalOnConfirm"`
	RedirectOnDecline      *bool `json:"redirectOnDecline"`

	AdditionalFee           *string `json:"additionalFee" validate:"omitempty,numeric"`
	AdditionalFeePercentage *bool   `json:"additionalFeePercentage"`
}

type resolvedPayload struct {
	StoreID                 int64  `json:"storeId"`
	MerchantID              string `json:"merchantId"`
	UseSandbox              bool   `json:"useSandbox"`
	ContactEmail            string `json:"contactEmail"`
	ContactPhone            string `json:"contactPhone"`
	PassCartDetails         bool   `json:"passCartDetails"`
	ValidateTotalOnConfirm  bool   `json:"validateTotalOnConfirm"`
	RedirectOnDecline       bool   `json:"redirectOnDecline"`
	AdditionalFee           string `json:"additionalFee"`
	AdditionalFeePercentage bool   `json:"additionalFeePercentage"`
	RoundingWarning         bool   `json:"roundingWarning"`
}

// GetResolved returns the effective configuration for a store. The
// rounding warning flags itemized mode for merchants whose currency
// has fractional prices, since per-line rounding can drift from the
// order total.
func (h *Handler) GetResolved(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeIDParam(w, r)
	if !ok {
		return
	}
	resolved, err := h.Resolver.Resolve(r.Context(), storeID)
	if err != nil {
		h.Logger.Error().Err(err).Int64("store_id", storeID).Msg("resolve settings")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not resolve settings", nil)
		return
	}
	common.JSON(w, http.StatusOK, resolvedPayload{
		StoreID:                 storeID,
		MerchantID:              resolved.MerchantID,
		UseSandbox:              resolved.UseSandbox,
		ContactEmail:            resolved.ContactEmail,
		ContactPhone:            resolved.ContactPhone,
		PassCartDetails:         resolved.PassCartDetails,
		ValidateTotalOnConfirm:  resolved.ValidateTotalOnConfirm,
		RedirectOnDecline:       resolved.RedirectOnDecline,
		AdditionalFee:           resolved.AdditionalFee.String(),
		AdditionalFeePercentage: resolved.AdditionalFeePercentage,
		RoundingWarning:         resolved.PassCartDetails,
	})
}

// PutOverride stores a partial per-store override. Absent fields keep
// inheriting the base configuration.
func (h *Handler) PutOverride(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeIDParam(w, r)
	if !ok {
		return
	}
	if storeID == 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "store 0 is the base configuration", nil)
		return
	}
	var payload overridePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
		return
	}

	override := Override{
		MerchantID:              payload.MerchantID,
		UseSandbox:              payload.UseSandbox,
		ContactEmail:            payload.ContactEmail,
		ContactPhone:            payload.ContactPhone,
		PassCartDetails:         payload.PassCartDetails,
		ValidateTotalOnConfirm:  payload.ValidateTotalOnConfirm,
		RedirectOnDecline:       payload.RedirectOnDecline,
		AdditionalFeePercentage: payload.AdditionalFeePercentage,
	}
	if payload.AdditionalFee != nil {
		fee, err := decimal.NewFromString(*payload.AdditionalFee)
		if err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "additionalFee must be a decimal", nil)
			return
		}
		override.AdditionalFee = &fee
	}

	if err := h.Store.PutOverride(r.Context(), storeID, override); err != nil {
		h.Logger.Error().Err(err).Int64("store_id", storeID).Msg("save settings override")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not save settings", nil)
		return
	}
	h.GetResolved(w, r)
}

// DeleteOverride removes the per-store override.
func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteOverride(r.Context(), storeID); err != nil {
		h.Logger.Error().Err(err).Int64("store_id", storeID).Msg("delete settings override")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not delete settings", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func storeIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "storeID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid store id", nil)
		return 0, false
	}
	return id, true
}
