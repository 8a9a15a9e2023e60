package findoc

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists documents and their lines.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction. Number allocation
// and document writes ride the same transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("findoc repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) AllocateNumber(ctx context.Context, documentType string, now time.Time) (numbering.Allocation, error) {
	return numbering.AllocateInTx(ctx, r.tx, documentType, now)
}

func (r *txRepository) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO documents
			(source_id, doc_type, number, number_formatted, party_id, status,
			 subtotal, line_discount_total, document_discount, tax_total, total,
			 issued_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id
	`, doc.SourceID, doc.Type, doc.Number, doc.NumberFormatted, doc.PartyID, doc.Status,
		doc.Totals.Subtotal, doc.Totals.LineDiscountTotal, doc.Totals.DocumentDiscount,
		doc.Totals.TaxTotal, doc.Totals.Total, doc.IssuedAt, doc.CreatedBy,
	).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLines(ctx context.Context, documentID int64, lines []LineTotals) error {
	for idx, line := range lines {
		_, err := r.tx.Exec(ctx, `
			INSERT INTO document_lines
				(document_id, position, description, quantity, unit_price, discount_rate, tax_rate,
				 subtotal, discount_amount, taxable_base, tax_amount, line_total, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		`, documentID, idx, line.Description, line.Quantity, line.UnitPrice, line.DiscountRate,
			line.TaxRate, line.Subtotal, line.DiscountAmount, line.TaxableBase, line.TaxAmount, line.LineTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetDocument loads one document with its lines.
func (r *Repository) GetDocument(ctx context.Context, id int64) (Document, error) {
	var doc Document
	err := r.pool.QueryRow(ctx, `
		SELECT id, source_id, doc_type, number, number_formatted, party_id, status,
		       subtotal, line_discount_total, document_discount, tax_total, total,
		       issued_at, created_by, created_at, updated_at
		FROM documents WHERE id = $1
	`, id).Scan(
		&doc.ID, &doc.SourceID, &doc.Type, &doc.Number, &doc.NumberFormatted, &doc.PartyID, &doc.Status,
		&doc.Totals.Subtotal, &doc.Totals.LineDiscountTotal, &doc.Totals.DocumentDiscount,
		&doc.Totals.TaxTotal, &doc.Totals.Total,
		&doc.IssuedAt, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrDocumentNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.DocumentDiscount = doc.Totals.DocumentDiscount

	rows, err := r.pool.Query(ctx, `
		SELECT description, quantity, unit_price, discount_rate, tax_rate,
		       subtotal, discount_amount, taxable_base, tax_amount, line_total
		FROM document_lines WHERE document_id = $1 ORDER BY position
	`, id)
	if err != nil {
		return Document{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var lt LineTotals
		if err := rows.Scan(
			&lt.Description, &lt.Quantity, &lt.UnitPrice, &lt.DiscountRate, &lt.TaxRate,
			&lt.Subtotal, &lt.DiscountAmount, &lt.TaxableBase, &lt.TaxAmount, &lt.LineTotal,
		); err != nil {
			return Document{}, err
		}
		doc.Lines = append(doc.Lines, lt)
	}
	return doc, rows.Err()
}
