package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sessiongate/internal/core/domain"
)

// PgxSessionRepository implements domain.SessionRepository using pgxpool.
type PgxSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PgxSessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PgxSessionRepository {
	return &PgxSessionRepository{pool: pool}
}

// Create inserts a session for the given account. A re-submitted token
// refreshes the existing row's expiry instead of failing on the primary
// key; ownership columns are never rewritten, a session row belongs to
// the account that created it.
func (r *PgxSessionRepository) Create(ctx context.Context, token string, accountID int, username string, expiresAt time.Time) error {
	query := `
		INSERT INTO sessions (token, account_id, username, created_at, expires_at)
		VALUES ($1, $2, $3, now(), $4)
		ON CONFLICT (token) DO UPDATE
		SET expires_at = EXCLUDED.expires_at
	`
	_, err := r.pool.Exec(ctx, query, token, accountID, username, expiresAt)
	return err
}

// GetByToken looks up a session by its opaque token.
// Returns (nil, nil) when the token does not match any session.
func (r *PgxSessionRepository) GetByToken(ctx context.Context, token string) (*domain.SessionRow, error) {
	query := `
		SELECT token, account_id, username, created_at, expires_at
		FROM sessions
		WHERE token = $1
	`

	var row domain.SessionRow
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&row.Token, &row.AccountID, &row.Username, &row.CreatedAt, &row.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// Delete removes the session with the given token. Missing tokens are a no-op.
func (r *PgxSessionRepository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM sessions WHERE token = $1`
	_, err := r.pool.Exec(ctx, query, token)
	return err
}

// PurgeExpired deletes all sessions past their expiry.
func (r *PgxSessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at <= now()`
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
