package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts bond persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListByParty(ctx context.Context, partyID int64) ([]Bond, error)
	GetBond(ctx context.Context, id int64) (Bond, error)
}

// TxRepository exposes transactional bond operations.
type TxRepository interface {
	AllocateNumber(ctx context.Context, documentType string, now time.Time) (numbering.Allocation, error)
	InsertBond(ctx context.Context, bond Bond) (int64, error)
	GetBondForUpdate(ctx context.Context, id int64) (Bond, error)
	UpdateBondStatus(ctx context.Context, id int64, status BondStatus) error
}

// AuditPort records bond lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RecordInput groups fields to record a new bond.
type RecordInput struct {
	PartyID int64
	Type    BondType
	Amount  decimal.Decimal
	Date    time.Time
	Memo    string
	ActorID int64
}

// Summary aggregates a party's ledger position.
type Summary struct {
	PartyID  int64
	Receipts decimal.Decimal
	Payments decimal.Decimal
	Net      decimal.Decimal
}

// Service records bonds and reports balances.
type Service struct {
	repo    RepositoryPort
	tracker *Tracker
	audit   AuditPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, tracker *Tracker, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, tracker: tracker, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func sequenceFor(t BondType) (string, error) {
	switch t {
	case BondReceipt:
		return "RECEIPT_BOND", nil
	case BondPayment:
		return "PAYMENT_BOND", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBondType, t)
}

// Record numbers and persists a draft bond.
func (s *Service) Record(ctx context.Context, input RecordInput) (Bond, error) {
	seqType, err := sequenceFor(input.Type)
	if err != nil {
		return Bond{}, err
	}
	if input.Amount.Sign() <= 0 {
		return Bond{}, fmt.Errorf("%w, got %s", ErrInvalidAmount, input.Amount)
	}

	at := s.now().UTC()
	var bond Bond
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		alloc, err := tx.AllocateNumber(ctx, seqType, at)
		if err != nil {
			return err
		}
		bond = Bond{
			Number:  alloc.Value,
			PartyID: input.PartyID,
			Type:    input.Type,
			Status:  BondDraft,
			Amount:  input.Amount,
			Date:    input.Date,
			Memo:    input.Memo,
		}
		id, err := tx.InsertBond(ctx, bond)
		if err != nil {
			return err
		}
		bond.ID = id
		return nil
	})
	if err != nil {
		return Bond{}, err
	}

	s.recordAudit(ctx, input.ActorID, shared.AuditBondRecord, bond)
	return bond, nil
}

// Post moves a draft bond into the balance.
func (s *Service) Post(ctx context.Context, bondID, actorID int64) (Bond, error) {
	return s.setStatus(ctx, bondID, actorID, BondDraft, BondPosted, shared.AuditBondPost)
}

// Cancel voids a draft bond. Posted bonds stay put.
func (s *Service) Cancel(ctx context.Context, bondID, actorID int64) (Bond, error) {
	return s.setStatus(ctx, bondID, actorID, BondDraft, BondCancelled, shared.AuditBondCancel)
}

func (s *Service) setStatus(ctx context.Context, bondID, actorID int64, from, to BondStatus, action shared.AuditAction) (Bond, error) {
	var bond Bond
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetBondForUpdate(ctx, bondID)
		if err != nil {
			return err
		}
		if current.Status != from {
			return fmt.Errorf("%w: bond %d is %s", ErrBondNotDraft, bondID, current.Status)
		}
		if err := tx.UpdateBondStatus(ctx, bondID, to); err != nil {
			return err
		}
		current.Status = to
		bond = current
		return nil
	})
	if err != nil {
		return Bond{}, err
	}
	s.recordAudit(ctx, actorID, action, bond)
	return bond, nil
}

// NetBalance returns the party's posted net under the configured convention.
func (s *Service) NetBalance(ctx context.Context, partyID int64) (decimal.Decimal, error) {
	bonds, err := s.repo.ListByParty(ctx, partyID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return s.tracker.NetBalance(bonds)
}

// Statement returns the party's running balance, date ordered.
func (s *Service) Statement(ctx context.Context, partyID int64) ([]BalancePoint, error) {
	bonds, err := s.repo.ListByParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	return s.tracker.Statement(bonds)
}

// Summarize fans the per-type totals out over the same bond set.
func (s *Service) Summarize(ctx context.Context, partyID int64) (Summary, error) {
	bonds, err := s.repo.ListByParty(ctx, partyID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{PartyID: partyID}
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary.Receipts = sumPostedByType(bonds, BondReceipt)
		return nil
	})
	g.Go(func() error {
		summary.Payments = sumPostedByType(bonds, BondPayment)
		return nil
	})
	g.Go(func() (err error) {
		summary.Net, err = s.tracker.NetBalance(bonds)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func sumPostedByType(bonds []Bond, t BondType) decimal.Decimal {
	total := decimal.Zero
	for _, bond := range bonds {
		if bond.Status == BondPosted && bond.Type == t {
			total = total.Add(bond.Amount)
		}
	}
	return total
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action shared.AuditAction, bond Bond) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "bond",
		EntityID: fmt.Sprintf("%d", bond.ID),
		Meta: map[string]any{
			"party_id": bond.PartyID,
			"type":     string(bond.Type),
			"amount":   bond.Amount.String(),
		},
		At: s.now(),
	})
	if s.logger != nil {
		s.logger.Info(string(action),
			slog.Int64("bond_id", bond.ID),
			slog.Int64("party_id", bond.PartyID),
			slog.String("status", string(bond.Status)),
		)
	}
}
