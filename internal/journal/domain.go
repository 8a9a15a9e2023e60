package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates journal entry lifecycle values.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusPosted    Status = "POSTED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusPosted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo encodes the closed transition table:
// draft -> approved -> posted, draft/approved -> cancelled. Nothing leaves
// posted or cancelled; posted entries are corrected by reversing entries.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusApproved || target == StatusCancelled
	case StatusApproved:
		return target == StatusPosted || target == StatusCancelled
	default:
		return false
	}
}

// Line holds a debit or credit amount for an account. Exactly one side is
// positive, the other zero.
type Line struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Entry captures a manual journal entry and its lifecycle state. Lines are
// mutable only while the entry is a draft.
type Entry struct {
	ID         int64
	Number     int64
	SourceID   uuid.UUID
	Date       time.Time
	Memo       string
	Status     Status
	Lines      []Line
	ApprovedBy *int64
	ApprovedAt *time.Time
	PostedBy   *int64
	PostedAt   *time.Time
	ReversalOf *int64
	CreatedBy  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

var (
	// ErrUnbalanced indicates total debits differ from total credits.
	ErrUnbalanced = errors.New("journal: entry does not balance")
	// ErrMissingAccount indicates a line without a valid active account.
	ErrMissingAccount = errors.New("journal: line references no valid account")
	// ErrTooFewLines indicates fewer than two lines, including the empty set.
	ErrTooFewLines = errors.New("journal: entry requires at least two lines")
	// ErrInvalidLine indicates a line that is not a well-formed single-sided amount.
	ErrInvalidLine = errors.New("journal: invalid line")
	// ErrInvalidTransition indicates a transition outside the state machine.
	// It signals a caller logic error and must not be retried.
	ErrInvalidTransition = errors.New("journal: invalid state transition")
	// ErrEntryImmutable indicates a line mutation on a non-draft entry.
	ErrEntryImmutable = errors.New("journal: lines are immutable once entry leaves draft")
	// ErrEntryNotFound indicates a missing entry.
	ErrEntryNotFound = errors.New("journal: entry not found")
	// ErrValidationTimeout indicates balance validation did not finish in time.
	ErrValidationTimeout = errors.New("journal: validation timed out")
)

// ValidateLine checks one line's shape.
func ValidateLine(idx int, line Line) error {
	if line.AccountID == 0 {
		return fmt.Errorf("line %d: %w", idx, ErrMissingAccount)
	}
	if line.Debit.IsNegative() || line.Credit.IsNegative() {
		return fmt.Errorf("%w: line %d negative amount", ErrInvalidLine, idx)
	}
	debit := line.Debit.IsPositive()
	credit := line.Credit.IsPositive()
	if debit == credit {
		return fmt.Errorf("%w: line %d must have exactly one of debit or credit", ErrInvalidLine, idx)
	}
	return nil
}

// ValidateBalance enforces the double-entry invariant with exact decimal
// comparison; amounts are decimal throughout so no epsilon is involved.
func ValidateBalance(lines []Line) error {
	if len(lines) < 2 {
		return ErrTooFewLines
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range lines {
		if err := ValidateLine(idx, line); err != nil {
			return err
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debit %s != credit %s", ErrUnbalanced, debit, credit)
	}
	return nil
}
