package enums

import (
	"fmt"
	"slices"
	"strings"
)

// Currency is the ISO 4217 code checkout totals are denominated in. Every
// supported code has two minor units, which the integer-cents math relies on.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCAD Currency = "CAD"
	CurrencyEUR Currency = "EUR"
)

var validCurrencies = []Currency{CurrencyUSD, CurrencyCAD, CurrencyEUR}

func (c Currency) IsValid() bool {
	return slices.Contains(validCurrencies, c)
}

// ParseCurrency accepts any casing and surrounding whitespace.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", value)
	}
	return c, nil
}
