package v1

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	logicv1 "sessiongate/internal/logic/v1"
	"sessiongate/middleware"
)

// Handler groups the HTTP handlers of the session gate.
// Dependencies are injected via the constructor — no global state.
type Handler struct {
	sessions     *logicv1.SessionService
	cookieName   string
	cookieMaxAge int
	cookieSecure bool
}

// NewHandler creates a Handler around the given SessionService.
// cookieMaxAge is in seconds and should match the session TTL.
func NewHandler(sessions *logicv1.SessionService, cookieName string, cookieMaxAge int, cookieSecure bool) *Handler {
	return &Handler{
		sessions:     sessions,
		cookieName:   cookieName,
		cookieMaxAge: cookieMaxAge,
		cookieSecure: cookieSecure,
	}
}

// RegisterRoutes wires all routes onto the engine. The session guard runs
// for every route; page routes additionally require authentication.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(h.SessionGuard())

	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)
	r.GET("/verificar-sesion", h.SessionStatus)

	r.GET("/", h.RequireAuth(), h.Home)
}

// Login handles the login form submission. The identifier is the entire
// credential; there is no password. On success a fresh session supersedes
// whatever session the account had on any other device.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.login", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	identifier := c.PostForm("identifier")

	// A device re-submitting the form for the account it is already logged
	// in as keeps its token; that re-bind is idempotent. Any other cookie,
	// including one bound to a different account, is ignored: reusing it
	// would hand that account's session token to the new login.
	token := uuid.NewString()
	if session, ok := currentSession(c); ok && session.Username == strings.TrimSpace(identifier) {
		token = session.Token
	}

	account, err := h.sessions.Login(ctx, identifier, token)
	if err != nil {
		span.RecordError(err)

		switch {
		case errors.Is(err, logicv1.ErrEmptyIdentifier):
			c.Redirect(http.StatusFound, "/login?error=empty")
		case errors.Is(err, logicv1.ErrAccountNotFound):
			logger.Info().Err(err).Msg("Login rejected")
			c.Redirect(http.StatusFound, "/login?error=invalid")
		default:
			logger.Error().Err(err).Msg("Login failed")
			c.Redirect(http.StatusFound, "/login?error=server")
		}
		return
	}

	h.setCookie(c, token)

	logger.Info().Int("account_id", account.ID).Msg("Login successful")
	span.SetAttributes(attribute.Bool("login.success", true))
	c.Redirect(http.StatusFound, "/")
}

// Logout destroys the caller's session and unbinds it from the account.
// Logging out without a session, or twice in a row, is not an error.
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.logout", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	token, err := c.Cookie(h.cookieName)
	if err == nil && token != "" {
		if err := h.sessions.Logout(ctx, token); err != nil {
			// The cookie is cleared regardless; the sweeper reaps the row.
			span.RecordError(err)
			zerolog.Ctx(ctx).Error().Err(err).Msg("Logout cleanup failed")
		}
	}

	h.clearCookie(c)
	c.Redirect(http.StatusFound, "/login")
}

// SessionStatus reports whether the caller's session is currently the
// account's bound session. API route class: it answers 401, never redirects.
func (h *Handler) SessionStatus(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"active": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":   true,
		"username": session.Username,
	})
}

// LoginPage renders the login form. Presentation is incidental; the error
// query parameter is the redirect flag set by Login.
func (h *Handler) LoginPage(c *gin.Context) {
	var notice string
	switch c.Query("error") {
	case "empty":
		notice = "<p>Enter a username.</p>"
	case "invalid":
		notice = "<p>Unknown user.</p>"
	case "server":
		notice = "<p>Something went wrong, try again.</p>"
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Login</title></head><body>
<h1>Login</h1>
%s
<form method="post" action="/login">
<input type="text" name="identifier" placeholder="username" autofocus>
<button type="submit">Enter</button>
</form>
</body></html>`, notice)

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// Home is the protected landing page.
func (h *Handler) Home(c *gin.Context) {
	session, _ := currentSession(c)

	page := fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Home</title></head><body>
<h1>Welcome, %s</h1>
<p>This is your only active session.</p>
<a href="/logout">Log out</a>
</body></html>`, html.EscapeString(session.Username))

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *Handler) setCookie(c *gin.Context, token string) {
	c.SetCookie(h.cookieName, token, h.cookieMaxAge, "/", "", h.cookieSecure, true)
}

func (h *Handler) clearCookie(c *gin.Context) {
	c.SetCookie(h.cookieName, "", -1, "/", "", h.cookieSecure, true)
}
