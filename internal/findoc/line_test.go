package findoc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeLineFixedOrderOfOperations(t *testing.T) {
	lt, err := ComputeLine(LineInput{
		Quantity:     d("3"),
		UnitPrice:    d("100"),
		DiscountRate: d("10"),
		TaxRate:      d("15"),
	})
	require.NoError(t, err)

	assert.True(t, lt.Subtotal.Equal(d("300")), "subtotal: %s", lt.Subtotal)
	assert.True(t, lt.DiscountAmount.Equal(d("30")), "discount: %s", lt.DiscountAmount)
	assert.True(t, lt.TaxableBase.Equal(d("270")), "base: %s", lt.TaxableBase)
	assert.True(t, lt.TaxAmount.Equal(d("40.5")), "tax: %s", lt.TaxAmount)
	assert.True(t, lt.LineTotal.Equal(d("310.5")), "total: %s", lt.LineTotal)
}

func TestComputeLineZeroRates(t *testing.T) {
	lt, err := ComputeLine(LineInput{Quantity: d("2"), UnitPrice: d("49.99")})
	require.NoError(t, err)
	assert.True(t, lt.LineTotal.Equal(d("99.98")))
	assert.True(t, lt.DiscountAmount.IsZero())
	assert.True(t, lt.TaxAmount.IsZero())
}

func TestComputeLineHundredPercentDiscount(t *testing.T) {
	lt, err := ComputeLine(LineInput{
		Quantity:     d("1"),
		UnitPrice:    d("80"),
		DiscountRate: d("100"),
		TaxRate:      d("20"),
	})
	require.NoError(t, err)
	assert.True(t, lt.TaxableBase.IsZero())
	assert.True(t, lt.LineTotal.IsZero())
}

func TestComputeLineValidation(t *testing.T) {
	cases := []struct {
		name string
		in   LineInput
		want error
	}{
		{"zero quantity", LineInput{Quantity: d("0"), UnitPrice: d("10")}, ErrInvalidQuantity},
		{"negative quantity", LineInput{Quantity: d("-1"), UnitPrice: d("10")}, ErrInvalidQuantity},
		{"negative price", LineInput{Quantity: d("1"), UnitPrice: d("-0.01")}, ErrInvalidRate},
		{"discount above 100", LineInput{Quantity: d("1"), UnitPrice: d("10"), DiscountRate: d("100.5")}, ErrInvalidRate},
		{"negative tax", LineInput{Quantity: d("1"), UnitPrice: d("10"), TaxRate: d("-5")}, ErrInvalidRate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeLine(tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLineTotalsRoundedHalfUp(t *testing.T) {
	// 7 * 1.515 = 10.605, 5% discount = 0.53025, base = 10.07475.
	lt, err := ComputeLine(LineInput{
		Quantity:     d("7"),
		UnitPrice:    d("1.515"),
		DiscountRate: d("5"),
	})
	require.NoError(t, err)

	rounded := lt.Rounded()
	assert.Equal(t, "10.61", rounded.Subtotal.String())
	assert.Equal(t, "0.53", rounded.DiscountAmount.String())
	assert.Equal(t, "10.07", rounded.TaxableBase.String())
	// The unrounded fields keep full precision for aggregation.
	assert.Equal(t, "10.07475", lt.TaxableBase.String())
}
