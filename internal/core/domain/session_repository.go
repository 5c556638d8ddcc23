package domain

import (
	"context"
	"time"
)

// SessionRow represents a session record. The account identity is stored on
// the row itself so the guard can resolve "who is this" in one lookup.
type SessionRow struct {
	Token     string
	AccountID int
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepository defines the data-access contract for session operations.
// Implementations live in internal/core/repository (Core layer).
//
// Store membership is NOT authority: a row can outlive its usefulness when a
// newer login supersedes it. The account's bound token decides validity; the
// store only holds payload and expiry.
type SessionRepository interface {
	// Create inserts a new session for the given account. If the token
	// already has a row, only its expiry is refreshed: a device
	// re-submitting its login keeps its token, and an existing row never
	// changes owner.
	Create(ctx context.Context, token string, accountID int, username string, expiresAt time.Time) error

	// GetByToken looks up a session by its opaque token.
	// Returns (nil, nil) when the token does not match any session.
	GetByToken(ctx context.Context, token string) (*SessionRow, error)

	// Delete removes the session with the given token. Deleting a token
	// that does not exist is a no-op, not an error, because a superseding login
	// may race against natural expiry of the session it replaces.
	Delete(ctx context.Context, token string) error

	// PurgeExpired deletes all sessions past their expiry and returns how
	// many rows were removed.
	PurgeExpired(ctx context.Context) (int64, error)
}
