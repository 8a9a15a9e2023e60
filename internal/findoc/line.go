package findoc

import (
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/money"
)

// LineInput is one document line as supplied by the caller. Rates are
// percentages in the inclusive 0..100 range.
type LineInput struct {
	Description  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	DiscountRate decimal.Decimal
	TaxRate      decimal.Decimal
}

// LineTotals carries the derived amounts of one line at full precision.
// Rounded() produces the presentation copy; aggregation reads the unrounded
// fields so cent drift cannot compound across lines.
type LineTotals struct {
	Description    string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	DiscountRate   decimal.Decimal
	TaxRate        decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableBase    decimal.Decimal
	TaxAmount      decimal.Decimal
	LineTotal      decimal.Decimal
}

// Validate checks the input's shape before any arithmetic.
func (in LineInput) Validate() error {
	if !in.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if in.UnitPrice.IsNegative() {
		return ErrInvalidRate
	}
	if !money.IsValidRate(in.DiscountRate) || !money.IsValidRate(in.TaxRate) {
		return ErrInvalidRate
	}
	return nil
}

// ComputeLine derives the amounts for one line under the fixed order of
// operations: subtotal, then discount, then tax on the discounted base.
func ComputeLine(in LineInput) (LineTotals, error) {
	if err := in.Validate(); err != nil {
		return LineTotals{}, err
	}

	subtotal := in.Quantity.Mul(in.UnitPrice)
	discount := money.Percent(subtotal, in.DiscountRate)
	base := subtotal.Sub(discount)
	tax := money.Percent(base, in.TaxRate)

	return LineTotals{
		Description:    in.Description,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		DiscountRate:   in.DiscountRate,
		TaxRate:        in.TaxRate,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableBase:    base,
		TaxAmount:      tax,
		LineTotal:      base.Add(tax),
	}, nil
}

// Rounded returns a copy with every monetary field rounded for presentation
// or storage.
func (lt LineTotals) Rounded() LineTotals {
	out := lt
	out.Subtotal = money.Round(lt.Subtotal)
	out.DiscountAmount = money.Round(lt.DiscountAmount)
	out.TaxableBase = money.Round(lt.TaxableBase)
	out.TaxAmount = money.Round(lt.TaxAmount)
	out.LineTotal = money.Round(lt.LineTotal)
	return out
}
