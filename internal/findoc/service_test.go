package findoc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type mockRepository struct {
	store       *numbering.MemoryStore
	documents   map[int64]Document
	lines       map[int64][]LineTotals
	nextID      int64
	insertError error
}

func newMockRepository(t *testing.T) *mockRepository {
	t.Helper()
	store := numbering.NewMemoryStore()
	require.NoError(t, store.Register(numbering.SequenceConfig{
		DocumentType:   "SALES_INVOICE",
		Prefix:         "INV",
		Separator:      "-",
		NumberLength:   5,
		NextNumber:     1,
		ResetFrequency: numbering.ResetNever,
		IsActive:       true,
	}))
	return &mockRepository{
		store:     store,
		documents: make(map[int64]Document),
		lines:     make(map[int64][]LineTotals),
		nextID:    1,
	}
}

type mockTx struct {
	repo    *mockRepository
	pending map[int64]Document
}

func (r *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &mockTx{repo: r, pending: make(map[int64]Document)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, doc := range tx.pending {
		r.documents[id] = doc
		r.lines[id] = doc.Lines
	}
	return nil
}

func (r *mockRepository) GetDocument(ctx context.Context, id int64) (Document, error) {
	doc, ok := r.documents[id]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	doc.Lines = r.lines[id]
	return doc, nil
}

func (tx *mockTx) AllocateNumber(ctx context.Context, documentType string, now time.Time) (numbering.Allocation, error) {
	return tx.repo.store.Allocate(ctx, documentType, now)
}

func (tx *mockTx) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	if tx.repo.insertError != nil {
		return 0, tx.repo.insertError
	}
	id := tx.repo.nextID
	tx.repo.nextID++
	doc.ID = id
	tx.pending[id] = doc
	return id, nil
}

func (tx *mockTx) InsertLines(ctx context.Context, documentID int64, lines []LineTotals) error {
	doc := tx.pending[documentID]
	doc.Lines = lines
	tx.pending[documentID] = doc
	return nil
}

type mockIdempotency struct {
	keys    map[string]bool
	deleted []string
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{keys: make(map[string]bool)}
}

func (m *mockIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *mockIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type mockAudit struct {
	records []shared.AuditLog
}

func (m *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.records = append(m.records, log)
	return nil
}

func TestIssueAllocatesNumberAndPersists(t *testing.T) {
	repo := newMockRepository(t)
	audit := &mockAudit{}
	svc := NewService(repo, newMockIdempotency(), audit, nil)

	doc, err := svc.Issue(context.Background(), IssueInput{
		Type:    TypeSalesInvoice,
		PartyID: 42,
		ActorID: 7,
		Lines:   sampleLines(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), doc.Number)
	assert.Equal(t, "INV-00001", doc.NumberFormatted)
	assert.Equal(t, StatusIssued, doc.Status)
	assert.Equal(t, "445.49", doc.Totals.Total.String())
	require.NotNil(t, doc.IssuedAt)

	stored, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 3)

	require.Len(t, audit.records, 1)
	assert.Equal(t, shared.AuditDocumentIssue, audit.records[0].Action)
}

func TestIssueSequentialNumbers(t *testing.T) {
	repo := newMockRepository(t)
	svc := NewService(repo, nil, nil, nil)

	for want := int64(1); want <= 3; want++ {
		doc, err := svc.Issue(context.Background(), IssueInput{
			Type:    TypeSalesInvoice,
			PartyID: 1,
			ActorID: 1,
			Lines:   sampleLines(),
		})
		require.NoError(t, err)
		assert.Equal(t, want, doc.Number)
	}
}

func TestIssueRejectsInvalidInputBeforeAllocating(t *testing.T) {
	repo := newMockRepository(t)
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Issue(context.Background(), IssueInput{
		Type:    TypeSalesInvoice,
		PartyID: 1,
		ActorID: 1,
		Lines:   []LineInput{{Quantity: d("0"), UnitPrice: d("10")}},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// The counter did not move.
	snap, err := repo.store.Snapshot("SALES_INVOICE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.NextNumber)
}

func TestIssueDuplicateIdempotencyKey(t *testing.T) {
	repo := newMockRepository(t)
	idem := newMockIdempotency()
	svc := NewService(repo, idem, nil, nil)

	input := IssueInput{
		Type:           TypeSalesInvoice,
		PartyID:        1,
		ActorID:        1,
		Lines:          sampleLines(),
		IdempotencyKey: "req-1",
	}
	_, err := svc.Issue(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), input)
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.Empty(t, idem.deleted, "a processed key must stay reserved")
}

func TestIssueReleasesKeyWhenTxFails(t *testing.T) {
	repo := newMockRepository(t)
	repo.insertError = errors.New("write failed")
	idem := newMockIdempotency()
	svc := NewService(repo, idem, nil, nil)

	_, err := svc.Issue(context.Background(), IssueInput{
		Type:           TypeSalesInvoice,
		PartyID:        1,
		ActorID:        1,
		Lines:          sampleLines(),
		IdempotencyKey: "req-2",
	})
	require.Error(t, err)
	assert.Equal(t, []string{"req-2"}, idem.deleted)
}

func TestPreviewRoundsLines(t *testing.T) {
	svc := NewService(newMockRepository(t), nil, nil, nil)

	totals, lines, err := svc.Preview([]LineInput{
		{Quantity: d("3"), UnitPrice: d("100"), DiscountRate: d("10"), TaxRate: d("15")},
	}, decimal.Zero)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "310.5", lines[0].LineTotal.String())
	assert.Equal(t, "310.5", totals.Total.String())
}
