package pricing

import "github.com/angelmondragon/marketplace-checkout/pkg/checkout"

// Apportion splits amount across weights in proportion to each weight.
// Shares are the differences between half-up rounded cumulative boundaries,
// so each share is non-negative, lies within one cent of its exact
// proportion, and the shares sum to amount. The final boundary is amount
// itself, which leaves the rounding remainder with the last share.
func Apportion(amount int, weights []int) []int {
	shares := make([]int, len(weights))
	if len(weights) == 0 {
		return shares
	}

	total := 0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		shares[len(shares)-1] = amount
		return shares
	}

	cumulative, previous := 0, 0
	for i := 0; i < len(weights)-1; i++ {
		cumulative += weights[i]
		boundary := checkout.Proportion(amount, cumulative, total)
		shares[i] = boundary - previous
		previous = boundary
	}
	shares[len(shares)-1] = amount - previous
	return shares
}
