package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sessiongate/internal/core/domain"
)

// PgxAccountRepository implements domain.AccountRepository using pgxpool.
type PgxAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new PgxAccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{pool: pool}
}

// GetByUsername returns the account matching the given login identifier.
// Returns (nil, nil) when no account is found.
func (r *PgxAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.AccountRow, error) {
	query := `SELECT id, username, bound_session_token FROM accounts WHERE username = $1`

	var row domain.AccountRow
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&row.ID, &row.Username, &row.BoundSessionToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// GetByID returns the account with the given ID.
// Returns (nil, nil) when no account is found.
func (r *PgxAccountRepository) GetByID(ctx context.Context, id int) (*domain.AccountRow, error) {
	query := `SELECT id, username, bound_session_token FROM accounts WHERE id = $1`

	var row domain.AccountRow
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.Username, &row.BoundSessionToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// BindSession sets bound_session_token for the given account.
func (r *PgxAccountRepository) BindSession(ctx context.Context, accountID int, token string) error {
	query := `UPDATE accounts SET bound_session_token = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, accountID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ClearSession sets bound_session_token to NULL for the given account.
// Clearing an already-NULL column is a no-op.
func (r *PgxAccountRepository) ClearSession(ctx context.Context, accountID int) error {
	query := `UPDATE accounts SET bound_session_token = NULL WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, accountID)
	return err
}
