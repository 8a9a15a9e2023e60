package findoc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetDocument(ctx context.Context, id int64) (Document, error)
}

// TxRepository exposes the operations that must share one transaction:
// number allocation and the document write commit or roll back together.
type TxRepository interface {
	AllocateNumber(ctx context.Context, documentType string, now time.Time) (numbering.Allocation, error)
	InsertDocument(ctx context.Context, doc Document) (int64, error)
	InsertLines(ctx context.Context, documentID int64, lines []LineTotals) error
}

// IdempotencyPort guards issuance against duplicate submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort records issuance events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IssueInput groups fields required to issue a financial document.
type IssueInput struct {
	Type             DocumentType
	PartyID          int64
	Lines            []LineInput
	DocumentDiscount decimal.Decimal
	ActorID          int64
	IdempotencyKey   string
}

const idempotencyModule = "findoc"

// Service issues financial documents: it reserves a number, computes totals,
// and persists the document in a single transaction.
type Service struct {
	repo   RepositoryPort
	idem   IdempotencyPort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the document service.
func NewService(repo RepositoryPort, idem IdempotencyPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, idem: idem, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Preview computes line and document totals without persisting anything.
func (s *Service) Preview(lines []LineInput, documentDiscount decimal.Decimal) (DocumentTotals, []LineTotals, error) {
	totals, computed, err := Aggregate(lines, documentDiscount)
	if err != nil {
		return DocumentTotals{}, nil, err
	}
	rounded := make([]LineTotals, len(computed))
	for i, lt := range computed {
		rounded[i] = lt.Rounded()
	}
	return totals, rounded, nil
}

// Issue validates, numbers, and persists a document. The allocated number and
// the document row share one transaction; if the write fails the reservation
// rolls back with it, so the durable counter only moves for documents that
// exist.
func (s *Service) Issue(ctx context.Context, input IssueInput) (Document, error) {
	totals, computed, err := Aggregate(input.Lines, input.DocumentDiscount)
	if err != nil {
		return Document{}, err
	}

	if input.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, input.IdempotencyKey, idempotencyModule); err != nil {
			return Document{}, err
		}
	}

	issuedAt := s.now().UTC()
	lines := make([]LineTotals, len(computed))
	for i, lt := range computed {
		lines[i] = lt.Rounded()
	}

	var doc Document
	txErr := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		alloc, err := tx.AllocateNumber(ctx, string(input.Type), issuedAt)
		if err != nil {
			return err
		}
		doc = Document{
			SourceID:         uuid.New(),
			Type:             input.Type,
			Number:           alloc.Value,
			NumberFormatted:  alloc.Formatted,
			PartyID:          input.PartyID,
			Status:           StatusIssued,
			DocumentDiscount: totals.DocumentDiscount,
			Totals:           totals,
			Lines:            lines,
			IssuedAt:         &issuedAt,
			CreatedBy:        input.ActorID,
		}
		id, err := tx.InsertDocument(ctx, doc)
		if err != nil {
			return fmt.Errorf("findoc: insert document: %w", err)
		}
		doc.ID = id
		if err := tx.InsertLines(ctx, id, lines); err != nil {
			return fmt.Errorf("findoc: insert lines: %w", err)
		}
		return nil
	})
	if txErr != nil {
		if input.IdempotencyKey != "" && s.idem != nil && !errors.Is(txErr, shared.ErrIdempotencyConflict) {
			_ = s.idem.Delete(ctx, input.IdempotencyKey)
		}
		return Document{}, txErr
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   shared.AuditDocumentIssue,
			Entity:   "document",
			EntityID: fmt.Sprintf("%d", doc.ID),
			Meta: map[string]any{
				"type":      string(doc.Type),
				"number":    doc.Number,
				"formatted": doc.NumberFormatted,
				"total":     doc.Totals.Total.String(),
			},
			At: issuedAt,
		})
	}
	if s.logger != nil {
		s.logger.Info("document issued",
			slog.String("type", string(doc.Type)),
			slog.String("number", doc.NumberFormatted),
			slog.Int64("id", doc.ID),
		)
	}
	return doc, nil
}

// Get loads a document with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	return s.repo.GetDocument(ctx, id)
}
