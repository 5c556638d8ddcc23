package domain

import "context"

// AccountRow represents an account record returned from the database.
// BoundSessionToken is the single source of truth for which session is
// currently valid for the account; nil means no session is bound.
type AccountRow struct {
	ID                int
	Username          string
	BoundSessionToken *string
}

// AccountRepository defines the data-access contract for account operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only — never on SQL or pgx directly.
type AccountRepository interface {
	// GetByUsername returns the account matching the given login identifier.
	// The match is a case-sensitive exact comparison.
	// Returns (nil, nil) when no account is found.
	GetByUsername(ctx context.Context, username string) (*AccountRow, error)

	// GetByID returns the account with the given ID, including its
	// currently bound session token.
	// Returns (nil, nil) when no account is found.
	GetByID(ctx context.Context, id int) (*AccountRow, error)

	// BindSession sets bound_session_token to the given token, making it
	// the account's one recognized session.
	BindSession(ctx context.Context, accountID int, token string) error

	// ClearSession sets bound_session_token to NULL. Clearing an account
	// that has no bound session is not an error.
	ClearSession(ctx context.Context, accountID int) error
}
