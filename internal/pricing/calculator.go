package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-checkout/internal/cart"
	"github.com/angelmondragon/marketplace-checkout/pkg/checkout"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
)

// Tax is the externally supplied tax input. AmountsByVendor, when it has an
// entry for a vendor, replaces the rate-based estimate for that vendor.
type Tax struct {
	Rate            decimal.Decimal
	AmountsByVendor map[uuid.UUID]int
}

type Input struct {
	Groups               []cart.VendorGroup
	Policies             map[uuid.UUID]Policy
	DeliveryMode         enums.DeliveryMode
	Tax                  Tax
	PromoDiscountCents   int
	LoyaltyDiscountCents int
}

// Breakdown is the priced result for one vendor group.
type Breakdown struct {
	Group                cart.VendorGroup
	Policy               Policy
	SubtotalCents        int
	DeliveryFeeCents     int
	PlatformFeeCents     int
	TaxCents             int
	PromoDiscountCents   int
	LoyaltyDiscountCents int
	DiscountCents        int
	TotalCents           int
}

// Calculate prices every group in order. It fails without a partial result
// if any vendor is unknown or below its minimum order.
func Calculate(in Input) ([]Breakdown, error) {
	if len(in.Groups) == 0 {
		return nil, checkout.EmptyCart()
	}
	if in.Tax.Rate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate must not be negative")
	}

	minimums := make([]checkout.VendorMinimumInput, 0, len(in.Groups))
	weights := make([]int, 0, len(in.Groups))
	for _, group := range in.Groups {
		policy, ok := in.Policies[group.VendorID]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "vendor %s not found", group.VendorID).WithDetails(map[string]any{
				"vendor_id": group.VendorID,
			})
		}
		minimums = append(minimums, checkout.VendorMinimumInput{
			VendorID:      group.VendorID,
			VendorName:    group.VendorName,
			MinimumCents:  policy.MinimumOrderCents,
			SubtotalCents: group.SubtotalCents,
		})
		weights = append(weights, group.SubtotalCents)
	}
	if err := checkout.ValidateVendorMinimums(minimums); err != nil {
		return nil, err
	}

	promoShares := Apportion(in.PromoDiscountCents, weights)
	loyaltyShares := Apportion(in.LoyaltyDiscountCents, weights)

	breakdowns := make([]Breakdown, 0, len(in.Groups))
	for i, group := range in.Groups {
		policy := in.Policies[group.VendorID]
		b := Breakdown{
			Group:                group,
			Policy:               policy,
			SubtotalCents:        group.SubtotalCents,
			PlatformFeeCents:     policy.PlatformFeeCents(group.SubtotalCents),
			PromoDiscountCents:   promoShares[i],
			LoyaltyDiscountCents: loyaltyShares[i],
		}
		if in.DeliveryMode == enums.DeliveryModeDelivery {
			b.DeliveryFeeCents = policy.DeliveryFeeCents
		}

		taxable := b.SubtotalCents + b.DeliveryFeeCents + b.PlatformFeeCents
		if exact, ok := in.Tax.AmountsByVendor[group.VendorID]; ok {
			b.TaxCents = exact
		} else {
			b.TaxCents = checkout.ApplyRate(taxable, in.Tax.Rate)
		}

		b.DiscountCents = b.PromoDiscountCents + b.LoyaltyDiscountCents
		b.TotalCents = taxable + b.TaxCents - b.DiscountCents
		if b.TotalCents < 0 {
			b.TotalCents = 0
		}
		breakdowns = append(breakdowns, b)
	}
	return breakdowns, nil
}

// Totals aggregates breakdowns for the session.
type Totals struct {
	SubtotalCents        int `json:"subtotal_cents"`
	DeliveryFeeCents     int `json:"delivery_fee_cents"`
	PlatformFeeCents     int `json:"platform_fee_cents"`
	TaxCents             int `json:"tax_cents"`
	PromoDiscountCents   int `json:"promo_discount_cents"`
	LoyaltyDiscountCents int `json:"loyalty_discount_cents"`
	DiscountCents        int `json:"discount_cents"`
	TotalCents           int `json:"total_cents"`
}

func Aggregate(breakdowns []Breakdown) Totals {
	var t Totals
	for _, b := range breakdowns {
		t.SubtotalCents += b.SubtotalCents
		t.DeliveryFeeCents += b.DeliveryFeeCents
		t.PlatformFeeCents += b.PlatformFeeCents
		t.TaxCents += b.TaxCents
		t.PromoDiscountCents += b.PromoDiscountCents
		t.LoyaltyDiscountCents += b.LoyaltyDiscountCents
		t.DiscountCents += b.DiscountCents
		t.TotalCents += b.TotalCents
	}
	return t
}
