package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists bonds.
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

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) AllocateNumber(ctx context.Context, documentType string, now time.Time) (numbering.Allocation, error) {
	return numbering.AllocateInTx(ctx, r.tx, documentType, now)
}

func (r *txRepository) InsertBond(ctx context.Context, bond Bond) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO bonds (number, party_id, bond_type, status, amount, bond_date, memo, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id
	`, bond.Number, bond.PartyID, bond.Type, bond.Status, bond.Amount, bond.Date, bond.Memo).Scan(&id)
	return id, err
}

func (r *txRepository) GetBondForUpdate(ctx context.Context, id int64) (Bond, error) {
	bond, err := scanBond(r.tx.QueryRow(ctx, `
		SELECT id, number, party_id, bond_type, status, amount, bond_date, memo, created_at, updated_at
		FROM bonds WHERE id = $1 FOR UPDATE
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Bond{}, ErrPartyNotFound
	}
	return bond, err
}

func (r *txRepository) UpdateBondStatus(ctx context.Context, id int64, status BondStatus) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE bonds SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPartyNotFound
	}
	return nil
}

// GetBond loads one bond.
func (r *Repository) GetBond(ctx context.Context, id int64) (Bond, error) {
	bond, err := scanBond(r.pool.QueryRow(ctx, `
		SELECT id, number, party_id, bond_type, status, amount, bond_date, memo, created_at, updated_at
		FROM bonds WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Bond{}, ErrPartyNotFound
	}
	return bond, err
}

// ListByParty returns all of a party's bonds, any status.
func (r *Repository) ListByParty(ctx context.Context, partyID int64) ([]Bond, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, number, party_id, bond_type, status, amount, bond_date, memo, created_at, updated_at
		FROM bonds WHERE party_id = $1 ORDER BY bond_date, number
	`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bonds []Bond
	for rows.Next() {
		bond, err := scanBond(rows)
		if err != nil {
			return nil, err
		}
		bonds = append(bonds, bond)
	}
	return bonds, rows.Err()
}

func scanBond(row pgx.Row) (Bond, error) {
	var b Bond
	err := row.Scan(
		&b.ID, &b.Number, &b.PartyID, &b.Type, &b.Status,
		&b.Amount, &b.Date, &b.Memo, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}
