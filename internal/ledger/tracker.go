package ledger

import (
	"iter"
	"sort"

	"github.com/shopspring/decimal"
)

// BalancePoint is one step of a running balance statement.
type BalancePoint struct {
	Bond    Bond
	Delta   decimal.Decimal
	Balance decimal.Decimal
}

// Tracker computes balances over a set of bonds under one sign convention.
// Drafts and cancelled bonds never count.
type Tracker struct {
	convention SignConvention
}

// NewTracker constructs a Tracker.
func NewTracker(convention SignConvention) *Tracker {
	return &Tracker{convention: convention}
}

// Convention returns the tracker's sign convention.
func (t *Tracker) Convention() SignConvention { return t.convention }

// NetBalance sums posted bonds. An empty or all-draft set yields zero.
func (t *Tracker) NetBalance(bonds []Bond) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, bond := range bonds {
		if bond.Status != BondPosted {
			continue
		}
		delta, err := t.convention.Apply(bond)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(delta)
	}
	return total, nil
}

// Running yields the statement sequence: posted bonds ordered by date, ties
// broken by bond number, each paired with the balance so far. The sequence
// is lazy and can be restarted; each range call replays from the start.
// A bond with an unknown type stops iteration; callers that need the error
// use NetBalance for validation first.
func (t *Tracker) Running(bonds []Bond) iter.Seq[BalancePoint] {
	ordered := make([]Bond, 0, len(bonds))
	for _, bond := range bonds {
		if bond.Status == BondPosted {
			ordered = append(ordered, bond)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		if ordered[i].Number != ordered[j].Number {
			return ordered[i].Number < ordered[j].Number
		}
		return ordered[i].ID < ordered[j].ID
	})

	return func(yield func(BalancePoint) bool) {
		balance := decimal.Zero
		for _, bond := range ordered {
			delta, err := t.convention.Apply(bond)
			if err != nil {
				return
			}
			balance = balance.Add(delta)
			if !yield(BalancePoint{Bond: bond, Delta: delta, Balance: balance}) {
				return
			}
		}
	}
}

// Statement materialises the running sequence.
func (t *Tracker) Statement(bonds []Bond) ([]BalancePoint, error) {
	if _, err := t.NetBalance(bonds); err != nil {
		return nil, err
	}
	var points []BalancePoint
	for point := range t.Running(bonds) {
		points = append(points, point)
	}
	return points, nil
}
