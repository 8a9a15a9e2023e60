package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BondType distinguishes money coming in from money going out.
type BondType string

const (
	BondReceipt BondType = "RECEIPT"
	BondPayment BondType = "PAYMENT"
)

// BondStatus is the bond lifecycle. Only posted bonds affect balances.
type BondStatus string

const (
	BondDraft     BondStatus = "DRAFT"
	BondPosted    BondStatus = "POSTED"
	BondCancelled BondStatus = "CANCELLED"
)

// Bond is a receipt or payment voucher against a party account.
type Bond struct {
	ID        int64
	Number    int64
	PartyID   int64
	Type      BondType
	Status    BondStatus
	Amount    decimal.Decimal
	Date      time.Time
	Memo      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	// ErrUnknownBondType indicates a bond type outside the convention.
	ErrUnknownBondType = errors.New("ledger: unknown bond type")
	// ErrPartyNotFound indicates no bonds or party record exists.
	ErrPartyNotFound = errors.New("ledger: party not found")
	// ErrInvalidAmount indicates a non-positive bond amount.
	ErrInvalidAmount = errors.New("ledger: bond amount must be positive")
	// ErrBondNotDraft indicates a status change on a non-draft bond.
	ErrBondNotDraft = errors.New("ledger: bond is no longer a draft")
)

// SignConvention maps bond types onto the balance sign. Customer ledgers
// count receipts as positive; supplier ledgers flip the signs.
type SignConvention struct {
	name  string
	signs map[BondType]int
}

// Name returns the convention's identifier.
func (c SignConvention) Name() string { return c.name }

// Sign returns +1 or -1 for the bond type.
func (c SignConvention) Sign(t BondType) (int, error) {
	sign, ok := c.signs[t]
	if !ok {
		return 0, ErrUnknownBondType
	}
	return sign, nil
}

// Apply returns the bond amount with the convention's sign.
func (c SignConvention) Apply(bond Bond) (decimal.Decimal, error) {
	sign, err := c.Sign(bond.Type)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if sign < 0 {
		return bond.Amount.Neg(), nil
	}
	return bond.Amount, nil
}

// CustomerLedger treats receipts as increases to what we hold from the party.
func CustomerLedger() SignConvention {
	return SignConvention{
		name:  "customer",
		signs: map[BondType]int{BondReceipt: 1, BondPayment: -1},
	}
}

// SupplierLedger mirrors the customer convention.
func SupplierLedger() SignConvention {
	return SignConvention{
		name:  "supplier",
		signs: map[BondType]int{BondReceipt: -1, BondPayment: 1},
	}
}

// ConventionByName resolves a configured convention name.
func ConventionByName(name string) (SignConvention, error) {
	switch name {
	case "", "customer":
		return CustomerLedger(), nil
	case "supplier":
		return SupplierLedger(), nil
	}
	return SignConvention{}, fmt.Errorf("ledger: unknown convention %q", name)
}
