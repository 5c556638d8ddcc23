// Package v1 implements the single-active-session business logic.
//
// Error Handling:
// This package defines sentinel errors that represent the outcomes of the
// login, guard, and logout flows. They should be wrapped with context using
// fmt.Errorf("%w") when returned from business logic methods.
//
// Example Usage:
//
//	if account == nil {
//	    return nil, fmt.Errorf("authenticate %q: %w", identifier, ErrAccountNotFound)
//	}
//
// Error Checking (in handlers):
//
//	switch {
//	case errors.Is(err, logicv1.ErrEmptyIdentifier):
//	    c.Redirect(http.StatusFound, "/login?error=empty")
//	case errors.Is(err, logicv1.ErrAccountNotFound):
//	    c.Redirect(http.StatusFound, "/login?error=invalid")
//	default:
//	    c.Redirect(http.StatusFound, "/login?error=server")
//	}
package v1

import "errors"

// Sentinel errors for session-gate operations.
// These errors should be wrapped with context using fmt.Errorf("%w") when returned.
var (
	// ErrEmptyIdentifier indicates the login identifier was empty or
	// whitespace-only. User-correctable input error.
	ErrEmptyIdentifier = errors.New("empty identifier")

	// ErrAccountNotFound indicates no account matches the login identifier.
	// There is no password check, so account existence is the entire
	// authentication test. Surfaced identically to a validation error.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSessionNotFound indicates the presented token matches no session
	// record. HTTP surface: unauthenticated.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the session record exists but is past
	// its expiry. HTTP surface: unauthenticated.
	ErrSessionExpired = errors.New("session expired")

	// ErrStaleSession indicates the presented token is no longer the
	// account's bound token: a newer login superseded it, the account
	// logged out, or the account could not be read (fail closed). Not a
	// fault: normal control flow forcing re-authentication.
	ErrStaleSession = errors.New("stale session")
)
