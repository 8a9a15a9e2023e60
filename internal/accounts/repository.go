package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the chart of accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads one account by id.
func (r *Repository) Get(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, is_active, created_at, updated_at
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Code, &a.Name, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

// List returns all accounts ordered by code.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, is_active, created_at, updated_at
		FROM accounts ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// IsActive reports whether the account exists and is active. It satisfies the
// account directory port of the journal service.
func (r *Repository) IsActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT is_active FROM accounts WHERE id = $1`, id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return active, nil
}
