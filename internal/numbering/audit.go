package numbering

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Gap is a hole between two issued numbers: everything strictly between
// After and Before was allocated but never committed.
type Gap struct {
	After  int64
	Before int64
}

// PostgresAuditor reads issued numbers back out of the domain tables to find
// holes. Only non-resetting sequences are audited; resetting ones restart
// legitimately each period.
type PostgresAuditor struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditor constructs PostgresAuditor.
func NewPostgresAuditor(pool *pgxpool.Pool) *PostgresAuditor {
	return &PostgresAuditor{pool: pool}
}

// numberSources maps a document type to the query returning its issued
// numbers in ascending order.
var numberSources = map[string]string{
	"QUOTE":            `SELECT number FROM documents WHERE doc_type = 'QUOTE' ORDER BY number`,
	"SALES_INVOICE":    `SELECT number FROM documents WHERE doc_type = 'SALES_INVOICE' ORDER BY number`,
	"PURCHASE_INVOICE": `SELECT number FROM documents WHERE doc_type = 'PURCHASE_INVOICE' ORDER BY number`,
	"JOURNAL_ENTRY":    `SELECT number FROM journal_entries ORDER BY number`,
	"RECEIPT_BOND":     `SELECT number FROM bonds WHERE bond_type = 'RECEIPT' ORDER BY number`,
	"PAYMENT_BOND":     `SELECT number FROM bonds WHERE bond_type = 'PAYMENT' ORDER BY number`,
}

// ListDocumentTypes returns active, never-resetting sequences with a known
// number source.
func (a *PostgresAuditor) ListDocumentTypes(ctx context.Context) ([]string, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT document_type FROM document_sequences
		WHERE is_active AND reset_frequency = 'never'
		ORDER BY document_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []string
	for rows.Next() {
		var docType string
		if err := rows.Scan(&docType); err != nil {
			return nil, err
		}
		if _, ok := numberSources[docType]; ok {
			types = append(types, docType)
		}
	}
	return types, rows.Err()
}

// FindGaps returns the holes in a document type's issued numbers.
func (a *PostgresAuditor) FindGaps(ctx context.Context, documentType string) ([]Gap, error) {
	query, ok := numberSources[documentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocumentType, documentType)
	}
	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var numbers []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return findGaps(numbers), nil
}

// CounterBehind reports how far the stored counter trails the highest issued
// number. Zero means healthy; a positive value means the next allocation
// would hand out an already-taken number.
func (a *PostgresAuditor) CounterBehind(ctx context.Context, documentType string) (int64, error) {
	query, ok := numberSources[documentType]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDocumentType, documentType)
	}
	var maxIssued int64
	wrapped := fmt.Sprintf("SELECT COALESCE(MAX(number), 0) FROM (%s) issued", query)
	if err := a.pool.QueryRow(ctx, wrapped).Scan(&maxIssued); err != nil {
		return 0, err
	}
	var nextNumber int64
	err := a.pool.QueryRow(ctx, `
		SELECT next_number FROM document_sequences WHERE document_type = $1
	`, documentType).Scan(&nextNumber)
	if err != nil {
		return 0, err
	}
	if behind := maxIssued - nextNumber + 1; behind > 0 {
		return behind, nil
	}
	return 0, nil
}

func findGaps(sorted []int64) []Gap {
	var gaps []Gap
	for i := 1; i < len(sorted); i++ {
		if sorted[i] > sorted[i-1]+1 {
			gaps = append(gaps, Gap{After: sorted[i-1], Before: sorted[i]})
		}
	}
	return gaps
}
