package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGStore persists per-store gateway overrides in PostgreSQL. Each
// column is nullable; NULL means the field inherits the base value.
type PGStore struct {
	Pool *pgxpool.Pool
}

var _ OverrideStore = (*PGStore)(nil)

// NewPGStore returns a PGStore backed by the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

// GetOverride loads the override row for a store. A missing row is an
// empty override, not an error.
func (s *PGStore) GetOverride(ctx context.Context, storeID int64) (Override, error) {
	var (
		o   Override
		fee *decimal.Decimal
	)
	err := s.Pool.QueryRow(ctx,
		`SELECT merchant_id, use_sandbox, contact_email, contact_phone,
		        pass_cart_details, validate_total_on_confirm, redirect_on_decline,
		        additional_fee, additional_fee_percentage
		   FROM gateway_settings WHERE store_id = $1`, storeID).Scan(
		&o.MerchantID, &o.UseSandbox, &o.ContactEmail, &o.ContactPhone,
		&o.PassCartDetails, &o.ValidateTotalOnConfirm, &o.RedirectOnDecline,
		&fee, &o.AdditionalFeePercentage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Override{}, nil
		}
		return Override{}, fmt.Errorf("get gateway settings override: %w", err)
	}
	o.AdditionalFee = fee
	return o, nil
}

// PutOverride creates or replaces the override row for a store.
func (s *PGStore) PutOverride(ctx context.Context, storeID int64, o Override) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO gateway_settings (
		     store_id, merchant_id, use_sandbox, contact_email, contact_phone,
		     pass_cart_details, validate_total_on_confirm, redirect_on_decline,
		     additional_fee, additional_fee_percentage, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		 ON CONFLICT (store_id) DO UPDATE SET
		     merchant_id = EXCLUDED.merchant_id,
		     use_sandbox = EXCLUDED.use_sandbox,
		     contact_email = EXCLUDED.contact_email,
		     contact_phone = EXCLUDED.contact_phone,
		     pass_cart_details = EXCLUDED.pass_cart_details,
		     validate_total_on_confirm = EXCLUDED.validate_total_on_confirm,
		     redirect_on_decline = EXCLUDED.redirect_on_decline,
		     additional_fee = EXCLUDED.additional_fee,
		     additional_fee_percentage = EXCLUDED.additional_fee_percentage,
		     updated_at = now()`,
		storeID, o.MerchantID, o.UseSandbox, o.ContactEmail, o.ContactPhone,
		o.PassCartDetails, o.ValidateTotalOnConfirm, o.RedirectOnDecline,
		o.AdditionalFee, o.AdditionalFeePercentage)
	if err != nil {
		return fmt.Errorf("put gateway settings override: %w", err)
	}
	return nil
}

// DeleteOverride removes the override row for a store so every field
// inherits the base again.
func (s *PGStore) DeleteOverride(ctx context.Context, storeID int64) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM gateway_settings WHERE store_id = $1`, storeID)
	if err != nil {
		return fmt.Errorf("delete gateway settings override: %w", err)
	}
	return nil
}
