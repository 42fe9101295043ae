package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PercentOf returns percent% of cents, rounded half-up to the cent.
func PercentOf(cents int, percent decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(cents)).Mul(percent).Div(hundred).Round(0).IntPart())
}

// ApplyRate returns cents multiplied by a fractional rate (0.0825), rounded half-up to the cent.
func ApplyRate(cents int, rate decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(cents)).Mul(rate).Round(0).IntPart())
}

// Proportion returns total * part / whole, rounded half-up to the cent.
func Proportion(total, part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(total)).
		Mul(decimal.NewFromInt(int64(part))).
		Div(decimal.NewFromInt(int64(whole))).
		Round(0).
		IntPart())
}

// FormatCents renders minor units as a dollar string, e.g. 1057 -> "$10.57".
func FormatCents(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
