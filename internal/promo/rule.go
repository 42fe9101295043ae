package promo

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-checkout/pkg/checkout"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
)

// Rule is a resolved promo code. Value is a percentage for PERCENTAGE rules
// and an amount in cents for FIXED rules.
type Rule struct {
	Code              string
	DiscountType      enums.DiscountType
	Value             decimal.Decimal
	MinimumOrderCents *int
	StartsAt          *time.Time
	ExpiresAt         *time.Time
	Active            bool
}

// DiscountCents is the discount the rule grants on subtotalCents. It never
// exceeds the subtotal and is never negative.
func (r Rule) DiscountCents(subtotalCents int) int {
	if subtotalCents <= 0 {
		return 0
	}

	var amount int
	switch r.DiscountType {
	case enums.DiscountTypePercentage:
		amount = checkout.PercentOf(subtotalCents, r.Value)
	case enums.DiscountTypeFixed:
		amount = int(r.Value.Round(0).IntPart())
	}

	if amount < 0 {
		return 0
	}
	if amount > subtotalCents {
		return subtotalCents
	}
	return amount
}

// Applied is the outcome of a successful validation.
type Applied struct {
	Rule          Rule
	DiscountCents int
}

// NormalizeCode trims and upper-cases a code so lookups are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
