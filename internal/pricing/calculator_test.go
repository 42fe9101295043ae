package pricing

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-checkout/internal/cart"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
)

func group(vendor uuid.UUID, subtotal int) cart.VendorGroup {
	return cart.VendorGroup{
		VendorID:      vendor,
		VendorName:    "vendor",
		SubtotalCents: subtotal,
		Lines: []cart.Line{{
			ProductID:      uuid.New(),
			VendorID:       vendor,
			UnitPriceCents: subtotal,
			Quantity:       1,
		}},
	}
}

func freePolicy(vendor uuid.UUID) Policy {
	return Policy{VendorID: vendor, PlatformFeeType: enums.PlatformFeeFixed}
}

func TestCalculateApportionsPromoProportionally(t *testing.T) {
	vendorA, vendorB := uuid.New(), uuid.New()
	out, err := Calculate(Input{
		Groups:             []cart.VendorGroup{group(vendorA, 1200), group(vendorB, 3000)},
		Policies:           map[uuid.UUID]Policy{vendorA: freePolicy(vendorA), vendorB: freePolicy(vendorB)},
		DeliveryMode:       enums.DeliveryModePickup,
		PromoDiscountCents: 500,
	})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, 143, out[0].DiscountCents)
	assert.Equal(t, 357, out[1].DiscountCents)
	assert.Equal(t, 1057, out[0].TotalCents)
	assert.Equal(t, 2643, out[1].TotalCents)

	totals := Aggregate(out)
	assert.Equal(t, 500, totals.DiscountCents)
	assert.Equal(t, 3700, totals.TotalCents)
}

func TestCalculateFeesAndTax(t *testing.T) {
	vendor := uuid.New()
	policy := Policy{
		VendorID:         vendor,
		DeliveryFeeCents: 399,
		PlatformFeeType:  enums.PlatformFeePercentage,
		PlatformFeeValue: decimal.RequireFromString("5"),
	}
	in := Input{
		Groups:       []cart.VendorGroup{group(vendor, 2000)},
		Policies:     map[uuid.UUID]Policy{vendor: policy},
		DeliveryMode: enums.DeliveryModeDelivery,
		Tax:          Tax{Rate: decimal.RequireFromString("0.08")},
	}

	out, err := Calculate(in)
	require.NoError(t, err)
	b := out[0]
	assert.Equal(t, 399, b.DeliveryFeeCents)
	assert.Equal(t, 100, b.PlatformFeeCents)
	// 8% of 2499 = 199.92
	assert.Equal(t, 200, b.TaxCents)
	assert.Equal(t, 2699, b.TotalCents)

	in.DeliveryMode = enums.DeliveryModePickup
	out, err = Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, 0, out[0].DeliveryFeeCents)
	assert.Equal(t, 168, out[0].TaxCents)
}

func TestCalculateExactTaxOverridesRate(t *testing.T) {
	vendorA, vendorB := uuid.New(), uuid.New()
	out, err := Calculate(Input{
		Groups:       []cart.VendorGroup{group(vendorA, 1000), group(vendorB, 1000)},
		Policies:     map[uuid.UUID]Policy{vendorA: freePolicy(vendorA), vendorB: freePolicy(vendorB)},
		DeliveryMode: enums.DeliveryModePickup,
		Tax: Tax{
			Rate:            decimal.RequireFromString("0.10"),
			AmountsByVendor: map[uuid.UUID]int{vendorB: 42},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 100, out[0].TaxCents)
	assert.Equal(t, 42, out[1].TaxCents)
}

func TestCalculateTotalNeverNegative(t *testing.T) {
	vendor := uuid.New()
	out, err := Calculate(Input{
		Groups:               []cart.VendorGroup{group(vendor, 800)},
		Policies:             map[uuid.UUID]Policy{vendor: freePolicy(vendor)},
		DeliveryMode:         enums.DeliveryModePickup,
		PromoDiscountCents:   800,
		LoyaltyDiscountCents: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, out[0].TotalCents)
	assert.Equal(t, 900, out[0].DiscountCents)
}

func TestCalculateVendorMinimumFailsWholeCheckout(t *testing.T) {
	vendorA, vendorB := uuid.New(), uuid.New()
	policyB := freePolicy(vendorB)
	policyB.MinimumOrderCents = 1500

	out, err := Calculate(Input{
		Groups:       []cart.VendorGroup{group(vendorA, 5000), group(vendorB, 1400)},
		Policies:     map[uuid.UUID]Policy{vendorA: freePolicy(vendorA), vendorB: policyB},
		DeliveryMode: enums.DeliveryModePickup,
	})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, pkgerrors.CodeVendorMinimumNotMet, pkgerrors.As(err).Code())
}

func TestCalculateUnknownVendor(t *testing.T) {
	_, err := Calculate(Input{
		Groups:       []cart.VendorGroup{group(uuid.New(), 500)},
		Policies:     map[uuid.UUID]Policy{},
		DeliveryMode: enums.DeliveryModePickup,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCalculateEmpty(t *testing.T) {
	_, err := Calculate(Input{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeEmptyCart, pkgerrors.As(err).Code())
}

func TestCalculateIsDeterministicAndBalanced(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(12) + 1
		in := Input{
			Policies:     map[uuid.UUID]Policy{},
			DeliveryMode: enums.DeliveryModeDelivery,
			Tax:          Tax{Rate: decimal.RequireFromString("0.0725")},
		}
		subtotal := 0
		for i := 0; i < n; i++ {
			vendor := uuid.New()
			g := group(vendor, rng.Intn(10000)+1)
			subtotal += g.SubtotalCents
			in.Groups = append(in.Groups, g)
			in.Policies[vendor] = Policy{
				VendorID:         vendor,
				DeliveryFeeCents: rng.Intn(500),
				PlatformFeeType:  enums.PlatformFeePercentage,
				PlatformFeeValue: decimal.NewFromInt(int64(rng.Intn(15))),
			}
		}
		in.PromoDiscountCents = rng.Intn(subtotal + 1)
		in.LoyaltyDiscountCents = (rng.Intn(subtotal-in.PromoDiscountCents+1) / 100) * 100

		first, err := Calculate(in)
		require.NoError(t, err)
		second, err := Calculate(in)
		require.NoError(t, err)
		require.Equal(t, first, second)

		totals := Aggregate(first)
		require.Equal(t, subtotal, totals.SubtotalCents)
		require.Equal(t, in.PromoDiscountCents, totals.PromoDiscountCents)
		require.Equal(t, in.LoyaltyDiscountCents, totals.LoyaltyDiscountCents)

		sum := 0
		for _, b := range first {
			require.GreaterOrEqual(t, b.PromoDiscountCents, 0)
			require.GreaterOrEqual(t, b.LoyaltyDiscountCents, 0)
			require.GreaterOrEqual(t, b.TotalCents, 0)
			sum += b.TotalCents
		}
		require.Equal(t, totals.TotalCents, sum)
	}
}

func TestCalculateManyVendorsKeepsEveryShareNonNegative(t *testing.T) {
	cases := []struct {
		name      string
		subtotals []int
		promo     int
		loyalty   int
	}{
		{"discount smaller than vendor count", []int{1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000}, 5, 0},
		{"half cent ties", []int{1000, 1000, 1000, 1000}, 150, 0},
		{"uneven subtotals", []int{1, 333, 4999, 12, 777, 10001}, 1234, 900},
		{"whole cart discounted", []int{250, 250, 250, 250, 250}, 1000, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := Input{
				Policies:             map[uuid.UUID]Policy{},
				DeliveryMode:         enums.DeliveryModePickup,
				PromoDiscountCents:   tc.promo,
				LoyaltyDiscountCents: tc.loyalty,
			}
			for _, subtotal := range tc.subtotals {
				vendor := uuid.New()
				in.Groups = append(in.Groups, group(vendor, subtotal))
				in.Policies[vendor] = freePolicy(vendor)
			}

			out, err := Calculate(in)
			require.NoError(t, err)
			require.Len(t, out, len(tc.subtotals))

			promo, loyalty, total := 0, 0, 0
			for _, b := range out {
				assert.GreaterOrEqual(t, b.PromoDiscountCents, 0)
				assert.GreaterOrEqual(t, b.LoyaltyDiscountCents, 0)
				assert.LessOrEqual(t, b.TotalCents, b.SubtotalCents)
				promo += b.PromoDiscountCents
				loyalty += b.LoyaltyDiscountCents
				total += b.TotalCents
			}
			assert.Equal(t, tc.promo, promo)
			assert.Equal(t, tc.loyalty, loyalty)
			assert.Equal(t, Aggregate(out).TotalCents, total)
		})
	}
}
