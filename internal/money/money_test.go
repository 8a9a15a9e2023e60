package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"40.505", "40.51"},
		{"40.504", "40.5"},
		{"0.005", "0.01"},
		{"310.5", "310.5"},
		{"0", "0"},
	}
	for _, tc := range cases {
		got := Round(decimal.RequireFromString(tc.in))
		assert.Equal(t, tc.want, got.String(), "rounding %s", tc.in)
	}
}

func TestPercentKeepsPrecision(t *testing.T) {
	base := decimal.NewFromInt(270)
	rate := decimal.NewFromInt(15)
	assert.Equal(t, "40.5", Percent(base, rate).String())
}

func TestIsValidRate(t *testing.T) {
	assert.True(t, IsValidRate(decimal.Zero))
	assert.True(t, IsValidRate(decimal.NewFromInt(100)))
	assert.False(t, IsValidRate(decimal.NewFromInt(101)))
	assert.False(t, IsValidRate(decimal.NewFromInt(-1)))
}
