package findoc

import (
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/money"
)

// DocumentTotals sums a document's lines. Fields are rounded once, after all
// lines are aggregated at full precision.
type DocumentTotals struct {
	Subtotal          decimal.Decimal
	LineDiscountTotal decimal.Decimal
	DocumentDiscount  decimal.Decimal
	TaxTotal          decimal.Decimal
	Total             decimal.Decimal
}

// Aggregate computes document totals from line inputs and a document-level
// discount. It is a pure function of its arguments: identical input yields
// byte-identical output. A total below zero fails rather than clamping.
func Aggregate(lines []LineInput, documentDiscount decimal.Decimal) (DocumentTotals, []LineTotals, error) {
	if len(lines) == 0 {
		return DocumentTotals{}, nil, ErrNoLines
	}
	if documentDiscount.IsNegative() {
		return DocumentTotals{}, nil, ErrInvalidRate
	}

	subtotal := decimal.Zero
	lineDiscount := decimal.Zero
	taxTotal := decimal.Zero

	computed := make([]LineTotals, 0, len(lines))
	for _, in := range lines {
		lt, err := ComputeLine(in)
		if err != nil {
			return DocumentTotals{}, nil, err
		}
		subtotal = subtotal.Add(lt.Subtotal)
		lineDiscount = lineDiscount.Add(lt.DiscountAmount)
		taxTotal = taxTotal.Add(lt.TaxAmount)
		computed = append(computed, lt)
	}

	total := subtotal.Sub(lineDiscount).Sub(documentDiscount).Add(taxTotal)
	if total.IsNegative() {
		return DocumentTotals{}, nil, ErrNegativeTotal
	}

	return DocumentTotals{
		Subtotal:          money.Round(subtotal),
		LineDiscountTotal: money.Round(lineDiscount),
		DocumentDiscount:  money.Round(documentDiscount),
		TaxTotal:          money.Round(taxTotal),
		Total:             money.Round(total),
	}, computed, nil
}
