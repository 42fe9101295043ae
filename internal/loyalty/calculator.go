package loyalty

import (
	"fmt"

	"github.com/angelmondragon/marketplace-checkout/pkg/checkout"
)

// RedemptionIncrement is the smallest redeemable block: 100 points buy 100 cents.
// One point is therefore worth one cent.
const RedemptionIncrement = 100

// MaxRedeemable is the largest legal redemption for the given balance and
// post-promo subtotal.
func MaxRedeemable(balance, subtotalCents int) int {
	limit := balance
	if subtotalCents < limit {
		limit = subtotalCents
	}
	if limit <= 0 {
		return 0
	}
	return limit - limit%RedemptionIncrement
}

// Redeem validates a request and returns the discount in cents.
func Redeem(requested, balance, subtotalCents int) (int, error) {
	if requested == 0 {
		return 0, nil
	}
	maxPoints := MaxRedeemable(balance, subtotalCents)
	switch {
	case requested < 0:
		return 0, checkout.InvalidRedemption("requested points must not be negative", requested, balance, maxPoints)
	case requested%RedemptionIncrement != 0:
		return 0, checkout.InvalidRedemption(fmt.Sprintf("points must be redeemed in multiples of %d", RedemptionIncrement), requested, balance, maxPoints)
	case requested > balance:
		return 0, checkout.InvalidRedemption("requested points exceed balance", requested, balance, maxPoints)
	case requested > subtotalCents:
		return 0, checkout.InvalidRedemption("requested points exceed order subtotal", requested, balance, maxPoints)
	}
	return requested, nil
}
