package numbering

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by the allocation statement, satisfied by
// both *pgxpool.Pool and pgx.Tx so a caller can allocate inside its own
// transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps sequence state in the document_sequences table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Allocate reserves the next number using a single UPDATE .. RETURNING. The
// row lock serializes concurrent callers; the reset-period check rides in the
// same statement so it cannot race with the increment.
func (s *PostgresStore) Allocate(ctx context.Context, documentType string, now time.Time) (Allocation, error) {
	return AllocateInTx(ctx, s.pool, documentType, now)
}

// AllocateInTx performs the atomic read-and-increment against q, which may be
// a pool or an open transaction. Document issuance runs it inside the same
// transaction that writes the document, so a crash cannot produce a number
// without a document.
func AllocateInTx(ctx context.Context, q Querier, documentType string, now time.Time) (Allocation, error) {
	monthly := ResetMonthly.PeriodFor(now)
	yearly := ResetYearly.PeriodFor(now)

	var (
		cfg   SequenceConfig
		newLP string
	)
	err := q.QueryRow(ctx, `
		UPDATE document_sequences SET
			next_number = CASE
				WHEN reset_frequency = 'monthly' AND last_reset_period <> $2 THEN 2
				WHEN reset_frequency = 'yearly'  AND last_reset_period <> $3 THEN 2
				ELSE next_number + 1
			END,
			last_reset_period = CASE
				WHEN reset_frequency = 'monthly' THEN $2
				WHEN reset_frequency = 'yearly'  THEN $3
				ELSE last_reset_period
			END,
			updated_at = NOW()
		WHERE document_type = $1 AND is_active
		RETURNING prefix, separator, number_length, suffix, next_number, reset_frequency, last_reset_period
	`, documentType, monthly, yearly).Scan(
		&cfg.Prefix, &cfg.Separator, &cfg.NumberLength, &cfg.Suffix,
		&cfg.NextNumber, &cfg.ResetFrequency, &newLP,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		var active bool
		lookupErr := q.QueryRow(ctx, `SELECT is_active FROM document_sequences WHERE document_type = $1`, documentType).Scan(&active)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return Allocation{}, ErrUnknownDocumentType
		}
		if lookupErr != nil {
			return Allocation{}, lookupErr
		}
		return Allocation{}, ErrDocumentTypeDisabled
	}
	if err != nil {
		return Allocation{}, err
	}

	cfg.DocumentType = documentType
	issued := cfg.NextNumber - 1
	return Allocation{
		DocumentType: documentType,
		Value:        issued,
		Formatted:    cfg.Format(issued),
		Period:       newLP,
	}, nil
}

// CreateConfig registers a sequence at setup time.
func (s *PostgresStore) CreateConfig(ctx context.Context, cfg SequenceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO document_sequences
			(document_type, prefix, separator, number_length, suffix, next_number, reset_frequency, last_reset_period, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`, cfg.DocumentType, cfg.Prefix, cfg.Separator, cfg.NumberLength, cfg.Suffix,
		cfg.NextNumber, cfg.ResetFrequency, cfg.LastResetPeriod, cfg.IsActive)
	return err
}

// ListConfigs returns every persisted sequence configuration.
func (s *PostgresStore) ListConfigs(ctx context.Context) ([]SequenceConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT document_type, prefix, separator, number_length, suffix, next_number, reset_frequency, last_reset_period, is_active, created_at, updated_at
		FROM document_sequences ORDER BY document_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var configs []SequenceConfig
	for rows.Next() {
		var cfg SequenceConfig
		if err := rows.Scan(
			&cfg.DocumentType, &cfg.Prefix, &cfg.Separator, &cfg.NumberLength, &cfg.Suffix,
			&cfg.NextNumber, &cfg.ResetFrequency, &cfg.LastResetPeriod, &cfg.IsActive,
			&cfg.CreatedAt, &cfg.UpdatedAt,
		); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// Deactivate disables a document type. Sequences are never deleted.
func (s *PostgresStore) Deactivate(ctx context.Context, documentType string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE document_sequences SET is_active = FALSE, updated_at = NOW() WHERE document_type = $1`, documentType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownDocumentType
	}
	return nil
}

// GetConfig returns the current persisted state for a document type.
func (s *PostgresStore) GetConfig(ctx context.Context, documentType string) (SequenceConfig, error) {
	var cfg SequenceConfig
	err := s.pool.QueryRow(ctx, `
		SELECT document_type, prefix, separator, number_length, suffix, next_number, reset_frequency, last_reset_period, is_active, created_at, updated_at
		FROM document_sequences WHERE document_type = $1
	`, documentType).Scan(
		&cfg.DocumentType, &cfg.Prefix, &cfg.Separator, &cfg.NumberLength, &cfg.Suffix,
		&cfg.NextNumber, &cfg.ResetFrequency, &cfg.LastResetPeriod, &cfg.IsActive,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return SequenceConfig{}, ErrUnknownDocumentType
	}
	return cfg, err
}
