package promo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
)

// StaticCatalog is an in-memory Store used in development and tests.
type StaticCatalog map[string]Rule

func NewStaticCatalog(rules ...Rule) StaticCatalog {
	catalog := make(StaticCatalog, len(rules))
	for _, rule := range rules {
		rule.Code = NormalizeCode(rule.Code)
		catalog[rule.Code] = rule
	}
	return catalog
}

// DefaultCatalog holds the demo codes available when promo_codes is not used.
func DefaultCatalog() StaticCatalog {
	fifteen := 1500
	twentyFive := 2500
	return NewStaticCatalog(
		Rule{Code: "SAVE5", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(500), MinimumOrderCents: &fifteen, Active: true},
		Rule{Code: "WELCOME10", DiscountType: enums.DiscountTypePercentage, Value: decimal.NewFromInt(10), Active: true},
		Rule{Code: "FEAST20", DiscountType: enums.DiscountTypePercentage, Value: decimal.NewFromInt(20), MinimumOrderCents: &twentyFive, Active: true},
	)
}

func (c StaticCatalog) FindByCode(_ context.Context, code string) (*Rule, error) {
	rule, ok := c[NormalizeCode(code)]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}
