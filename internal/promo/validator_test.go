package promo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func newTestValidator(t *testing.T, rules ...Rule) *Validator {
	t.Helper()
	v, err := NewValidator(NewStaticCatalog(rules...), clock)
	require.NoError(t, err)
	return v
}

func TestValidateFixedCodeCaseInsensitive(t *testing.T) {
	v := newTestValidator(t, Rule{Code: "SAVE5", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(500), MinimumOrderCents: intPtr(1500), Active: true})

	applied, err := v.Validate(context.Background(), " save5 ", 4200)
	require.NoError(t, err)
	assert.Equal(t, "SAVE5", applied.Rule.Code)
	assert.Equal(t, 500, applied.DiscountCents)
}

func TestValidatePercentageRoundsToCent(t *testing.T) {
	v := newTestValidator(t, Rule{Code: "TEN", DiscountType: enums.DiscountTypePercentage, Value: decimal.NewFromInt(10), Active: true})

	applied, err := v.Validate(context.Background(), "ten", 1005)
	require.NoError(t, err)
	assert.Equal(t, 101, applied.DiscountCents)
}

func TestValidateFixedNeverExceedsSubtotal(t *testing.T) {
	v := newTestValidator(t, Rule{Code: "BIG", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(10000), Active: true})

	applied, err := v.Validate(context.Background(), "BIG", 1234)
	require.NoError(t, err)
	assert.Equal(t, 1234, applied.DiscountCents)
}

func TestValidateErrors(t *testing.T) {
	rules := []Rule{
		{Code: "MIN", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(500), MinimumOrderCents: intPtr(1500), Active: true},
		{Code: "OLD", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(500), ExpiresAt: timePtr(fixedNow.Add(-time.Minute)), Active: true},
		{Code: "OLDMIN", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(500), MinimumOrderCents: intPtr(99999), ExpiresAt: timePtr(fixedNow), Active: true},
		{Code: "OFF", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(500), Active: false},
		{Code: "SOON", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(500), StartsAt: timePtr(fixedNow.Add(time.Hour)), Active: true},
	}
	v := newTestValidator(t, rules...)

	tests := []struct {
		name     string
		code     string
		subtotal int
		want     pkgerrors.Code
	}{
		{name: "unknown", code: "NOPE", subtotal: 5000, want: pkgerrors.CodeInvalidPromoCode},
		{name: "blank", code: "  ", subtotal: 5000, want: pkgerrors.CodeInvalidPromoCode},
		{name: "below minimum", code: "min", subtotal: 1499, want: pkgerrors.CodePromoMinimumNotMet},
		{name: "expired", code: "old", subtotal: 5000, want: pkgerrors.CodePromoExpired},
		{name: "expiry checked before minimum", code: "oldmin", subtotal: 100, want: pkgerrors.CodePromoExpired},
		{name: "inactive", code: "off", subtotal: 5000, want: pkgerrors.CodeInvalidPromoCode},
		{name: "not started", code: "soon", subtotal: 5000, want: pkgerrors.CodeInvalidPromoCode},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tc.code, tc.subtotal)
			require.Error(t, err)
			assert.Equal(t, tc.want, pkgerrors.As(err).Code())
		})
	}
}

func TestValidateMinimumBoundaryPasses(t *testing.T) {
	v := newTestValidator(t, Rule{Code: "MIN", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(500), MinimumOrderCents: intPtr(1500), Active: true})

	_, err := v.Validate(context.Background(), "MIN", 1500)
	require.NoError(t, err)
}

type failingStore struct{}

func (failingStore) FindByCode(context.Context, string) (*Rule, error) {
	return nil, errors.New("connection refused")
}

func TestValidateStoreFailureIsDependencyError(t *testing.T) {
	v, err := NewValidator(failingStore{}, clock)
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), "SAVE5", 5000)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestNewValidatorRequiresStore(t *testing.T) {
	_, err := NewValidator(nil, clock)
	require.Error(t, err)
}

func TestDefaultCatalogHasDemoCodes(t *testing.T) {
	rule, err := DefaultCatalog().FindByCode(context.Background(), "save5")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, enums.DiscountTypeFixed, rule.DiscountType)
}
