package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntryWithLines(ctx context.Context, id int64) (Entry, error)
	ListEntries(ctx context.Context) ([]Entry, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	AllocateNumber(ctx context.Context, documentType string, now time.Time) (numbering.Allocation, error)
	GetEntryForUpdate(ctx context.Context, id int64) (Entry, error)
	GetLines(ctx context.Context, entryID int64) ([]Line, error)
	InsertEntry(ctx context.Context, entry Entry) (int64, error)
	InsertLines(ctx context.Context, entryID int64, lines []Line) error
	ReplaceLines(ctx context.Context, entryID int64, lines []Line) error
	UpdateStatus(ctx context.Context, entry Entry) error
}

// AccountDirectory resolves whether an account exists and is active.
type AccountDirectory interface {
	IsActive(ctx context.Context, accountID int64) (bool, error)
}

// AuditPort records lifecycle events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TransitionObserver records transition outcomes for monitoring.
type TransitionObserver interface {
	ObserveTransition(target string, err error)
}

// DraftInput groups fields required to create a draft entry.
type DraftInput struct {
	Date    time.Time
	Memo    string
	ActorID int64
	Lines   []Line
}

// TransitionInput wraps parameters for a state transition.
type TransitionInput struct {
	EntryID int64
	Target  Status
	ActorID int64
}

// ReverseInput wraps parameters for reversal of a posted entry.
type ReverseInput struct {
	EntryID int64
	ActorID int64
	Memo    string
}

const sequenceType = "JOURNAL_ENTRY"

// Service drives the journal entry state machine. Balance is validated at the
// draft->approved edge and again at approved->posted, since posting is the
// irreversible step.
type Service struct {
	repo     RepositoryPort
	accounts AccountDirectory
	audit    AuditPort
	observer TransitionObserver
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewService constructs the journal service.
func NewService(repo RepositoryPort, accounts AccountDirectory, audit AuditPort, observer TransitionObserver, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		audit:    audit,
		observer: observer,
		logger:   logger,
		timeout:  5 * time.Second,
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateDraft numbers and persists a new draft entry. Line shape is enforced
// at construction; balance is only required to leave draft.
func (s *Service) CreateDraft(ctx context.Context, input DraftInput) (Entry, error) {
	if len(input.Lines) < 2 {
		return Entry{}, ErrTooFewLines
	}
	for idx, line := range input.Lines {
		if err := ValidateLine(idx, line); err != nil {
			return Entry{}, err
		}
	}

	createdAt := s.now().UTC()
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		alloc, err := tx.AllocateNumber(ctx, sequenceType, createdAt)
		if err != nil {
			return err
		}
		entry = Entry{
			Number:    alloc.Value,
			SourceID:  uuid.New(),
			Date:      input.Date,
			Memo:      input.Memo,
			Status:    StatusDraft,
			CreatedBy: input.ActorID,
		}
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return fmt.Errorf("journal: insert entry: %w", err)
		}
		entry.ID = id
		if err := tx.InsertLines(ctx, id, input.Lines); err != nil {
			return fmt.Errorf("journal: insert lines: %w", err)
		}
		entry.Lines = input.Lines
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// UpdateLines replaces a draft entry's lines. Any other state fails with
// ErrEntryImmutable.
func (s *Service) UpdateLines(ctx context.Context, entryID int64, lines []Line) (Entry, error) {
	if len(lines) < 2 {
		return Entry{}, ErrTooFewLines
	}
	for idx, line := range lines {
		if err := ValidateLine(idx, line); err != nil {
			return Entry{}, err
		}
	}

	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrEntryImmutable
		}
		if err := tx.ReplaceLines(ctx, entryID, lines); err != nil {
			return err
		}
		entry = current
		entry.Lines = lines
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Transition moves an entry along the state machine. Approval and posting
// both re-validate balance and account references; posting stamps the posted
// date and freezes the entry for good.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (Entry, error) {
	if !input.Target.Valid() {
		err := fmt.Errorf("%w: unknown target %q", ErrInvalidTransition, input.Target)
		s.observeTransition(input.Target, err)
		return Entry{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	at := s.now().UTC()
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(input.Target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, input.Target)
		}

		if input.Target == StatusApproved || input.Target == StatusPosted {
			lines, err := tx.GetLines(ctx, input.EntryID)
			if err != nil {
				return err
			}
			if err := s.validateForPosting(ctx, lines); err != nil {
				return err
			}
			current.Lines = lines
		}

		current.Status = input.Target
		switch input.Target {
		case StatusApproved:
			current.ApprovedBy = &input.ActorID
			current.ApprovedAt = &at
		case StatusPosted:
			current.PostedBy = &input.ActorID
			current.PostedAt = &at
		}
		if err := tx.UpdateStatus(ctx, current); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = ErrValidationTimeout
	}
	s.observeTransition(input.Target, err)
	if err != nil {
		return Entry{}, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "journal entry transitioned",
			slog.Int64("entry_id", entry.ID),
			slog.String("status", string(entry.Status)),
		)
	}
	s.recordAudit(ctx, input.ActorID, auditActionFor(input.Target), entry, map[string]any{
		"number": entry.Number,
	})
	return entry, nil
}

// Reverse creates and posts a balancing entry for a posted one. The original
// is never mutated; this is the only correction path once posted.
func (s *Service) Reverse(ctx context.Context, input ReverseInput) (Entry, error) {
	at := s.now().UTC()
	var reversal Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if original.Status != StatusPosted {
			return fmt.Errorf("%w: cannot reverse %s entry", ErrInvalidTransition, original.Status)
		}
		lines, err := tx.GetLines(ctx, input.EntryID)
		if err != nil {
			return err
		}

		alloc, err := tx.AllocateNumber(ctx, sequenceType, at)
		if err != nil {
			return err
		}
		reversal = Entry{
			Number:     alloc.Value,
			SourceID:   uuid.New(),
			Date:       at,
			Memo:       defaultReversalMemo(input.Memo, original.Number),
			Status:     StatusPosted,
			PostedBy:   &input.ActorID,
			PostedAt:   &at,
			ReversalOf: &original.ID,
			CreatedBy:  input.ActorID,
		}
		id, err := tx.InsertEntry(ctx, reversal)
		if err != nil {
			return err
		}
		reversal.ID = id
		reversal.Lines = reverseLines(id, lines)
		return tx.InsertLines(ctx, id, reversal.Lines)
	})
	if err != nil {
		return Entry{}, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "journal entry reversed",
			slog.Int64("original_id", input.EntryID),
			slog.Int64("reversal_id", reversal.ID),
		)
	}
	s.recordAudit(ctx, input.ActorID, shared.AuditJournalReverse, reversal, map[string]any{
		"reversed_entry": input.EntryID,
		"number":         reversal.Number,
	})
	return reversal, nil
}

// Get loads one entry with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.repo.GetEntryWithLines(ctx, id)
}

// List returns all entries.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.repo.ListEntries(ctx)
}

func (s *Service) validateForPosting(ctx context.Context, lines []Line) error {
	if err := ValidateBalance(lines); err != nil {
		return err
	}
	if s.accounts == nil {
		return nil
	}
	for idx, line := range lines {
		active, err := s.accounts.IsActive(ctx, line.AccountID)
		if err != nil {
			return err
		}
		if !active {
			return fmt.Errorf("line %d account %d: %w", idx, line.AccountID, ErrMissingAccount)
		}
	}
	return nil
}

func (s *Service) observeTransition(target Status, err error) {
	if s.observer != nil {
		s.observer.ObserveTransition(string(target), err)
	}
}

func auditActionFor(target Status) shared.AuditAction {
	switch target {
	case StatusApproved:
		return shared.AuditJournalApprove
	case StatusPosted:
		return shared.AuditJournalPost
	default:
		return shared.AuditJournalCancel
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action shared.AuditAction, entry Entry, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta:     meta,
		At:       s.now(),
	})
}

func reverseLines(entryID int64, lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, Line{
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
		})
	}
	return out
}

func defaultReversalMemo(memo string, number int64) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of JE %d", number)
}
