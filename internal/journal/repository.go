package journal

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists journal entries and lines.
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

// WithTx executes fn within a repeatable-read transaction. Transition checks
// rely on the row lock taken by GetEntryForUpdate.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("journal repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) AllocateNumber(ctx context.Context, documentType string, now time.Time) (numbering.Allocation, error) {
	return numbering.AllocateInTx(ctx, r.tx, documentType, now)
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (Entry, error) {
	var e Entry
	err := r.tx.QueryRow(ctx, `
		SELECT id, number, source_id, entry_date, memo, status,
		       approved_by, approved_at, posted_by, posted_at, reversal_of,
		       created_by, created_at, updated_at
		FROM journal_entries WHERE id = $1 FOR UPDATE
	`, id).Scan(
		&e.ID, &e.Number, &e.SourceID, &e.Date, &e.Memo, &e.Status,
		&e.ApprovedBy, &e.ApprovedAt, &e.PostedBy, &e.PostedAt, &e.ReversalOf,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	return e, err
}

func (r *txRepository) GetLines(ctx context.Context, entryID int64) ([]Line, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, entry_id, account_id, debit, credit
		FROM journal_lines WHERE entry_id = $1 ORDER BY id
	`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.Debit, &l.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *txRepository) InsertEntry(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO journal_entries
			(number, source_id, entry_date, memo, status,
			 approved_by, approved_at, posted_by, posted_at, reversal_of,
			 created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id
	`, entry.Number, entry.SourceID, entry.Date, entry.Memo, entry.Status,
		entry.ApprovedBy, entry.ApprovedAt, entry.PostedBy, entry.PostedAt,
		entry.ReversalOf, entry.CreatedBy,
	).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []Line) error {
	for _, line := range lines {
		_, err := r.tx.Exec(ctx, `
			INSERT INTO journal_lines (entry_id, account_id, debit, credit)
			VALUES ($1, $2, $3, $4)
		`, entryID, line.AccountID, line.Debit, line.Credit)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) ReplaceLines(ctx context.Context, entryID int64, lines []Line) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id = $1`, entryID); err != nil {
		return err
	}
	return r.InsertLines(ctx, entryID, lines)
}

func (r *txRepository) UpdateStatus(ctx context.Context, entry Entry) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE journal_entries
		SET status = $2, approved_by = $3, approved_at = $4,
		    posted_by = $5, posted_at = $6, updated_at = NOW()
		WHERE id = $1
	`, entry.ID, entry.Status, entry.ApprovedBy, entry.ApprovedAt, entry.PostedBy, entry.PostedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// GetEntryWithLines loads one entry and its lines outside a transaction.
func (r *Repository) GetEntryWithLines(ctx context.Context, id int64) (Entry, error) {
	var e Entry
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, source_id, entry_date, memo, status,
		       approved_by, approved_at, posted_by, posted_at, reversal_of,
		       created_by, created_at, updated_at
		FROM journal_entries WHERE id = $1
	`, id).Scan(
		&e.ID, &e.Number, &e.SourceID, &e.Date, &e.Memo, &e.Status,
		&e.ApprovedBy, &e.ApprovedAt, &e.PostedBy, &e.PostedAt, &e.ReversalOf,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return Entry{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, entry_id, account_id, debit, credit
		FROM journal_lines WHERE entry_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return Entry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.Debit, &l.Credit); err != nil {
			return Entry{}, err
		}
		e.Lines = append(e.Lines, l)
	}
	return e, rows.Err()
}

// ListEntries returns entries newest first, without lines.
func (r *Repository) ListEntries(ctx context.Context) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, number, source_id, entry_date, memo, status,
		       approved_by, approved_at, posted_by, posted_at, reversal_of,
		       created_by, created_at, updated_at
		FROM journal_entries ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.Number, &e.SourceID, &e.Date, &e.Memo, &e.Status,
			&e.ApprovedBy, &e.ApprovedAt, &e.PostedBy, &e.PostedAt, &e.ReversalOf,
			&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
