// Package money fixes the monetary representation and rounding policy used by
// every financial computation in Meridian. Amounts are decimal, never float64,
// so balance checks compare exactly.
package money

import "github.com/shopspring/decimal"

// Places is the scale used for stored and presented amounts.
const Places = 2

// Hundred is reused by percentage computations.
var Hundred = decimal.NewFromInt(100)

// Round applies the presentation rounding policy: two decimal places, half-up.
// It is applied once at the edge; intermediate aggregation keeps full
// precision to avoid compounding cent drift.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns rate percent of base at full precision.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(Hundred)
}

// IsValidRate reports whether rate lies in the inclusive 0..100 range.
func IsValidRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(Hundred)
}
