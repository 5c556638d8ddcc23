package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sessiongate/internal/core/domain"
	logicv1 "sessiongate/internal/logic/v1"
)

// sessionKey is the gin context key carrying the verified session.
const sessionKey = "session"

// SessionGuard resolves and verifies the caller's session on every request.
//
// It is a soft check: requests without a cookie, or with a token that is no
// longer the account's bound token, proceed unauthenticated; route handlers
// decide whether that means a redirect or a 401. What the guard does enforce
// is that a stale session never passes as authenticated: the bound token is
// re-read from the directory on each request, and a mismatch terminates the
// local session and clears the cookie right there.
func (h *Handler) SessionGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(h.cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		session, err := h.sessions.Verify(c.Request.Context(), token)
		if err != nil {
			logger := zerolog.Ctx(c.Request.Context())
			switch {
			case errors.Is(err, logicv1.ErrStaleSession):
				// Logged in elsewhere: the server-side record is gone,
				// drop the cookie so the browser stops presenting it.
				logger.Info().Msg("Stale session rejected")
				h.clearCookie(c)
			case errors.Is(err, logicv1.ErrSessionNotFound),
				errors.Is(err, logicv1.ErrSessionExpired):
				h.clearCookie(c)
			default:
				// Storage failure: fail closed, proceed unauthenticated
				// but keep the cookie, since the session may still be valid
				// once the store recovers.
				logger.Error().Err(err).Msg("Session verification failed")
			}
			c.Next()
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireAuth gates page routes: unauthenticated requests are redirected to
// the login page.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentSession(c); !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentSession returns the session the guard attached, if any.
func currentSession(c *gin.Context) (*domain.SessionRow, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*domain.SessionRow)
	return session, ok
}
