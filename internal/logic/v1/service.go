package v1

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sessiongate/internal/core/domain"
	"sessiongate/middleware"
)

// SessionService implements the single-active-session rules.
// It depends on repository interfaces (injected via constructor) and
// MUST NOT access the database or SQL directly.
//
// The account row's bound_session_token is the single authority for which
// session is current. Deleting a superseded session from the store is
// cleanup; the guard's comparison is what actually locks the old device out.
type SessionService struct {
	accounts domain.AccountRepository
	sessions domain.SessionRepository
	ttl      time.Duration
	locks    *accountLocks
}

// NewSessionService creates a SessionService with the given repository
// dependencies and session lifetime.
func NewSessionService(accounts domain.AccountRepository, sessions domain.SessionRepository, ttl time.Duration) *SessionService {
	return &SessionService{
		accounts: accounts,
		sessions: sessions,
		ttl:      ttl,
		locks:    newAccountLocks(),
	}
}

// Login binds a freshly issued session token to the account matching the
// identifier, superseding whatever session the account had before.
//
// newToken is generated by the caller (the web layer issues it alongside the
// cookie) and must not be bound to any account yet. On success the token is
// the account's one recognized session; any prior session stops being
// accepted by the guard on its very next request.
func (s *SessionService) Login(ctx context.Context, identifier, newToken string) (*domain.AccountRow, error) {
	ctx, span := middleware.StartSpan(ctx, "session.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		span.SetAttributes(attribute.Bool("login.success", false))
		loginsTotal.WithLabelValues("empty_identifier").Inc()
		return nil, fmt.Errorf("validate identifier: %w", ErrEmptyIdentifier)
	}

	account, err := s.accounts.GetByUsername(ctx, identifier)
	if err != nil {
		span.RecordError(err)
		loginsTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("query account %q: %w", identifier, err)
	}
	if account == nil {
		// No password check exists: account existence is the whole test.
		span.SetAttributes(attribute.Bool("login.success", false))
		span.AddEvent("authentication.failed")
		loginsTotal.WithLabelValues("unknown_account").Inc()
		return nil, fmt.Errorf("authenticate %q: %w", identifier, ErrAccountNotFound)
	}

	// The read-modify-write below must not interleave with another login
	// for the same account.
	lock := s.locks.get(account.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: another login may have rebound the account
	// between the lookup above and acquiring the lock.
	account, err = s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		span.RecordError(err)
		loginsTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("reread account %q: %w", identifier, err)
	}
	if account == nil {
		span.SetAttributes(attribute.Bool("login.success", false))
		loginsTotal.WithLabelValues("unknown_account").Inc()
		return nil, fmt.Errorf("authenticate %q: %w", identifier, ErrAccountNotFound)
	}

	logger := zerolog.Ctx(ctx)

	if old := account.BoundSessionToken; old != nil && *old != newToken {
		// Best-effort cleanup of the superseded session. The old token may
		// already have expired out of the store; that is not a failure.
		if delErr := s.sessions.Delete(ctx, *old); delErr != nil {
			span.RecordError(fmt.Errorf("delete superseded session: %w", delErr))
			logger.Warn().Err(delErr).Int("account_id", account.ID).
				Msg("Failed to delete superseded session, continuing login")
		}
		supersededSessionsTotal.Inc()
		span.AddEvent("session.superseded")
	}

	// Create is an upsert, so re-submitting a login from a device that
	// already holds this token refreshes the record instead of erroring.
	expiresAt := time.Now().Add(s.ttl)
	if err := s.sessions.Create(ctx, newToken, account.ID, account.Username, expiresAt); err != nil {
		span.RecordError(err)
		loginsTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("create session for account %d: %w", account.ID, err)
	}

	if err := s.accounts.BindSession(ctx, account.ID, newToken); err != nil {
		// The bind is the operation that matters; without it the new
		// session would itself be a zombie. Roll back the row we created.
		span.RecordError(err)
		if delErr := s.sessions.Delete(ctx, newToken); delErr != nil {
			logger.Warn().Err(delErr).Int("account_id", account.ID).
				Msg("Failed to delete session after bind failure")
		}
		loginsTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("bind session for account %d: %w", account.ID, err)
	}

	account.BoundSessionToken = &newToken

	span.SetAttributes(
		attribute.Int("account.id", account.ID),
		attribute.Bool("login.success", true),
	)
	span.AddEvent("session.bound")
	loginsTotal.WithLabelValues("success").Inc()

	return account, nil
}

// Verify is the single-session guard check: it decides whether the presented
// token is the current session of its account.
//
// The bound token is re-read from the directory on every call, since it can
// change at any moment from another device's login and must never be cached.
// A failure to read the account fails closed: the session is treated as
// stale, never accepted.
func (s *SessionService) Verify(ctx context.Context, token string) (*domain.SessionRow, error) {
	ctx, span := middleware.StartSpan(ctx, "session.verify", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query session: %w", err)
	}
	if session == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("lookup session: %w", ErrSessionNotFound)
	}

	if time.Now().After(session.ExpiresAt) {
		s.expire(ctx, session)
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("session expired at %v: %w", session.ExpiresAt, ErrSessionExpired)
	}

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		// Fail closed: if the directory cannot be read, the session cannot
		// be proven current.
		span.RecordError(err)
		staleRejectionsTotal.Inc()
		return nil, fmt.Errorf("read account %d: %v: %w", session.AccountID, err, ErrStaleSession)
	}
	if account == nil || account.BoundSessionToken == nil || *account.BoundSessionToken != token {
		// Zombie session: the row exists in the store but the account
		// recognizes a different (or no) token. Clean it up.
		s.terminate(ctx, token)
		span.SetAttributes(attribute.Bool("session.valid", false))
		span.AddEvent("session.stale")
		staleRejectionsTotal.Inc()
		return nil, fmt.Errorf("token no longer bound to account %d: %w", session.AccountID, ErrStaleSession)
	}

	span.SetAttributes(
		attribute.Int("account.id", account.ID),
		attribute.Bool("session.valid", true),
	)

	return session, nil
}

// Logout clears the account's bound token and destroys the session record.
// Both halves are idempotent: logging out twice, or logging out a session
// that was already superseded, succeeds without error.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	ctx, span := middleware.StartSpan(ctx, "session.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if token == "" {
		return nil
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("query session: %w", err)
	}
	if session == nil {
		// Already gone, nothing to clear.
		span.AddEvent("logout.noop")
		return nil
	}

	// Only clear the pointer when it still references this session. A newer
	// login owns the pointer now; logout from a stale device must not log
	// the new device out.
	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("read account %d: %w", session.AccountID, err)
	}
	if account != nil && account.BoundSessionToken != nil && *account.BoundSessionToken == token {
		if err := s.accounts.ClearSession(ctx, account.ID); err != nil {
			span.RecordError(err)
			return fmt.Errorf("clear session for account %d: %w", account.ID, err)
		}
	}

	if err := s.sessions.Delete(ctx, token); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete session: %w", err)
	}

	span.AddEvent("session.logged_out")
	return nil
}

// terminate removes a zombie session record without touching the account
// pointer, which already points elsewhere.
func (s *SessionService) terminate(ctx context.Context, token string) {
	if err := s.sessions.Delete(ctx, token); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to delete stale session record")
	}
}

// expire cleans up after a session rejected for expiry. Unlike a zombie,
// the account pointer may still reference the expired token; clear it so
// it does not dangle until the next login. Best effort on both halves,
// the caller rejects the session either way.
func (s *SessionService) expire(ctx context.Context, session *domain.SessionRow) {
	logger := zerolog.Ctx(ctx)

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		logger.Warn().Err(err).Int("account_id", session.AccountID).
			Msg("Failed to read account during expired session cleanup")
	} else if account != nil && account.BoundSessionToken != nil && *account.BoundSessionToken == session.Token {
		if err := s.accounts.ClearSession(ctx, account.ID); err != nil {
			logger.Warn().Err(err).Int("account_id", account.ID).
				Msg("Failed to clear expired session binding")
		}
	}

	if err := s.sessions.Delete(ctx, session.Token); err != nil {
		logger.Warn().Err(err).Msg("Failed to delete expired session record")
	}
}
