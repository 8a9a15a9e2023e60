package journal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func debitLine(t *testing.T, account int64, amount string) Line {
	t.Helper()
	return Line{AccountID: account, Debit: dec(t, amount)}
}

func creditLine(t *testing.T, account int64, amount string) Line {
	t.Helper()
	return Line{AccountID: account, Credit: dec(t, amount)}
}

func TestStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusDraft, StatusApproved, true},
		{StatusDraft, StatusCancelled, true},
		{StatusDraft, StatusPosted, false},
		{StatusDraft, StatusDraft, false},
		{StatusApproved, StatusPosted, true},
		{StatusApproved, StatusCancelled, true},
		{StatusApproved, StatusDraft, false},
		{StatusPosted, StatusCancelled, false},
		{StatusPosted, StatusApproved, false},
		{StatusPosted, StatusDraft, false},
		{StatusCancelled, StatusDraft, false},
		{StatusCancelled, StatusApproved, false},
		{StatusCancelled, StatusPosted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidateLine(t *testing.T) {
	t.Run("valid debit", func(t *testing.T) {
		require.NoError(t, ValidateLine(0, debitLine(t, 101, "50")))
	})
	t.Run("valid credit", func(t *testing.T) {
		require.NoError(t, ValidateLine(0, creditLine(t, 201, "50")))
	})
	t.Run("missing account", func(t *testing.T) {
		err := ValidateLine(0, Line{Debit: dec(t, "10")})
		require.ErrorIs(t, err, ErrMissingAccount)
	})
	t.Run("both sides set", func(t *testing.T) {
		err := ValidateLine(0, Line{AccountID: 101, Debit: dec(t, "10"), Credit: dec(t, "10")})
		require.ErrorIs(t, err, ErrInvalidLine)
	})
	t.Run("both sides zero", func(t *testing.T) {
		err := ValidateLine(0, Line{AccountID: 101})
		require.ErrorIs(t, err, ErrInvalidLine)
	})
	t.Run("negative amount", func(t *testing.T) {
		err := ValidateLine(0, Line{AccountID: 101, Debit: dec(t, "-5")})
		require.ErrorIs(t, err, ErrInvalidLine)
	})
}

func TestValidateBalance(t *testing.T) {
	t.Run("balanced pair", func(t *testing.T) {
		require.NoError(t, ValidateBalance([]Line{
			debitLine(t, 101, "100"),
			creditLine(t, 201, "100"),
		}))
	})

	t.Run("balanced split", func(t *testing.T) {
		require.NoError(t, ValidateBalance([]Line{
			debitLine(t, 101, "0.1"),
			debitLine(t, 102, "0.2"),
			creditLine(t, 201, "0.3"),
		}))
	})

	t.Run("unbalanced always rejected", func(t *testing.T) {
		deltas := []string{"0.01", "0.001", "1", "1000000"}
		for _, delta := range deltas {
			err := ValidateBalance([]Line{
				debitLine(t, 101, "100"),
				creditLine(t, 201, dec(t, "100").Add(dec(t, delta)).String()),
			})
			require.ErrorIs(t, err, ErrUnbalanced, "delta %s", delta)
		}
	})

	t.Run("empty entry rejected", func(t *testing.T) {
		require.ErrorIs(t, ValidateBalance(nil), ErrTooFewLines)
		require.ErrorIs(t, ValidateBalance([]Line{}), ErrTooFewLines)
	})

	t.Run("single line rejected", func(t *testing.T) {
		require.ErrorIs(t, ValidateBalance([]Line{debitLine(t, 101, "100")}), ErrTooFewLines)
	})

	t.Run("bad line fails before balance", func(t *testing.T) {
		err := ValidateBalance([]Line{
			{AccountID: 101, Debit: dec(t, "10"), Credit: dec(t, "10")},
			creditLine(t, 201, "10"),
		})
		require.ErrorIs(t, err, ErrInvalidLine)
	})
}
