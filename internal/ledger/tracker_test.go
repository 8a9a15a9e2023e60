package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func bond(t *testing.T, number int64, typ BondType, status BondStatus, amt, date string) Bond {
	t.Helper()
	day, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	return Bond{
		ID:      number,
		Number:  number,
		PartyID: 1,
		Type:    typ,
		Status:  status,
		Amount:  amount(t, amt),
		Date:    day,
	}
}

func TestNetBalanceCustomerConvention(t *testing.T) {
	tracker := NewTracker(CustomerLedger())
	bonds := []Bond{
		bond(t, 1, BondReceipt, BondPosted, "500", "2026-04-01"),
		bond(t, 2, BondPayment, BondPosted, "200", "2026-04-02"),
	}

	net, err := tracker.NetBalance(bonds)
	require.NoError(t, err)
	assert.Equal(t, "300", net.String())
}

func TestNetBalanceExcludesDraftsAndCancelled(t *testing.T) {
	tracker := NewTracker(CustomerLedger())
	bonds := []Bond{
		bond(t, 1, BondReceipt, BondPosted, "500", "2026-04-01"),
		bond(t, 2, BondPayment, BondPosted, "200", "2026-04-02"),
		bond(t, 3, BondReceipt, BondDraft, "1000", "2026-04-03"),
		bond(t, 4, BondPayment, BondCancelled, "999", "2026-04-03"),
	}

	net, err := tracker.NetBalance(bonds)
	require.NoError(t, err)
	assert.Equal(t, "300", net.String())
}

func TestNetBalanceEmptySetIsZero(t *testing.T) {
	tracker := NewTracker(CustomerLedger())

	net, err := tracker.NetBalance(nil)
	require.NoError(t, err)
	assert.True(t, net.IsZero())

	net, err = tracker.NetBalance([]Bond{
		bond(t, 1, BondReceipt, BondDraft, "500", "2026-04-01"),
	})
	require.NoError(t, err)
	assert.True(t, net.IsZero())
}

func TestNetBalanceSupplierConventionFlipsSigns(t *testing.T) {
	tracker := NewTracker(SupplierLedger())
	bonds := []Bond{
		bond(t, 1, BondReceipt, BondPosted, "500", "2026-04-01"),
		bond(t, 2, BondPayment, BondPosted, "200", "2026-04-02"),
	}

	net, err := tracker.NetBalance(bonds)
	require.NoError(t, err)
	assert.Equal(t, "-300", net.String())
}

func TestNetBalanceUnknownType(t *testing.T) {
	tracker := NewTracker(CustomerLedger())
	_, err := tracker.NetBalance([]Bond{
		bond(t, 1, BondType("TRANSFER"), BondPosted, "10", "2026-04-01"),
	})
	require.ErrorIs(t, err, ErrUnknownBondType)
}

func TestRunningOrdersByDateThenNumber(t *testing.T) {
	tracker := NewTracker(CustomerLedger())
	bonds := []Bond{
		bond(t, 5, BondPayment, BondPosted, "50", "2026-04-02"),
		bond(t, 2, BondReceipt, BondPosted, "100", "2026-04-01"),
		bond(t, 3, BondReceipt, BondPosted, "40", "2026-04-02"),
		bond(t, 1, BondReceipt, BondDraft, "999", "2026-04-01"),
	}

	var numbers []int64
	var balances []string
	for point := range tracker.Running(bonds) {
		numbers = append(numbers, point.Bond.Number)
		balances = append(balances, point.Balance.String())
	}

	assert.Equal(t, []int64{2, 3, 5}, numbers)
	assert.Equal(t, []string{"100", "140", "90"}, balances)
}

func TestRunningSequenceRestarts(t *testing.T) {
	tracker := NewTracker(CustomerLedger())
	bonds := []Bond{
		bond(t, 1, BondReceipt, BondPosted, "100", "2026-04-01"),
		bond(t, 2, BondPayment, BondPosted, "30", "2026-04-02"),
	}
	seq := tracker.Running(bonds)

	first := collectBalances(seq)
	second := collectBalances(seq)
	assert.Equal(t, first, second, "each range replays from the start")
}

func TestRunningEarlyBreak(t *testing.T) {
	tracker := NewTracker(CustomerLedger())
	bonds := []Bond{
		bond(t, 1, BondReceipt, BondPosted, "100", "2026-04-01"),
		bond(t, 2, BondPayment, BondPosted, "30", "2026-04-02"),
		bond(t, 3, BondPayment, BondPosted, "20", "2026-04-03"),
	}

	var seen int
	for range tracker.Running(bonds) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestStatementMatchesNetBalance(t *testing.T) {
	tracker := NewTracker(CustomerLedger())
	bonds := []Bond{
		bond(t, 1, BondReceipt, BondPosted, "500", "2026-04-01"),
		bond(t, 2, BondPayment, BondPosted, "200", "2026-04-02"),
		bond(t, 3, BondReceipt, BondDraft, "70", "2026-04-03"),
	}

	points, err := tracker.Statement(bonds)
	require.NoError(t, err)
	require.Len(t, points, 2)

	net, err := tracker.NetBalance(bonds)
	require.NoError(t, err)
	assert.True(t, points[len(points)-1].Balance.Equal(net))
}

func collectBalances(seq func(func(BalancePoint) bool)) []string {
	var out []string
	for point := range seq {
		out = append(out, point.Balance.String())
	}
	return out
}
