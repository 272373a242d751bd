package settings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOverrideStore struct {
	overrides map[int64]Override
}

func (f *fakeOverrideStore) GetOverride(_ context.Context, storeID int64) (Override, error) {
	return f.overrides[storeID], nil
}

func baseGateway() Gateway {
	return Gateway{
		MerchantID:             "base-merchant",
		UseSandbox:             true,
		ContactEmail:           "pay@example.com",
		PassCartDetails:        true,
		ValidateTotalOnConfirm: true,
		AdditionalFee:          decimal.Zero,
	}
}

func TestResolveStoreZeroReturnsBase(t *testing.T) {
	r := &Resolver{Base: baseGateway(), Store: &fakeOverrideStore{}}
	got, err := r.Resolve(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, baseGateway(), got)
}

func TestResolveLayersFieldByField(t *testing.T) {
	merchant := "store-two-merchant"
	sandbox := false
	fee := decimal.RequireFromString("1.50")
	store := &fakeOverrideStore{overrides: map[int64]Override{
		2: {MerchantID: &merchant, UseSandbox: &sandbox, AdditionalFee: &fee},
	}}
	r := &Resolver{Base: baseGateway(), Store: store}

	got, err := r.Resolve(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, "store-two-merchant", got.MerchantID)
	assert.False(t, got.UseSandbox)
	assert.Equal(t, "1.5", got.AdditionalFee.String())
	// unset fields inherit the base
	assert.Equal(t, "pay@example.com", got.ContactEmail)
	assert.True(t, got.PassCartDetails)
	assert.True(t, got.ValidateTotalOnConfirm)
}

func TestResolveMissingOverrideInheritsEverything(t *testing.T) {
	r := &Resolver{Base: baseGateway(), Store: &fakeOverrideStore{}}
	got, err := r.Resolve(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, baseGateway(), got)
}

func TestOverrideIsEmpty(t *testing.T) {
	assert.True(t, Override{}.IsEmpty())
	v := true
	assert.False(t, Override{RedirectOnDecline: &v}.IsEmpty())
}

func TestAdditionalFeeFor(t *testing.T) {
	total := decimal.RequireFromString("200.00")

	fixed := Gateway{AdditionalFee: decimal.RequireFromString("2.50")}
	assert.Equal(t, "2.5", fixed.AdditionalFeeFor(total).String())

	percent := Gateway{AdditionalFee: decimal.RequireFromString("10"), AdditionalFeePercentage: true}
	assert.Equal(t, "20", percent.AdditionalFeeFor(total).String())

	none := Gateway{}
	assert.True(t, none.AdditionalFeeFor(total).IsZero())
}
