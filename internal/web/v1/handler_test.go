package v1_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessiongate/internal/core/domain"
	logicv1 "sessiongate/internal/logic/v1"
	webv1 "sessiongate/internal/web/v1"
)

const cookieName = "session_token"

// In-memory repositories backing the handler under test.

type memDirectory struct {
	mu       sync.Mutex
	accounts map[int]*domain.AccountRow
	byName   map[string]int
}

func newMemDirectory() *memDirectory {
	d := &memDirectory{
		accounts: map[int]*domain.AccountRow{
			1: {ID: 1, Username: "alice"},
			2: {ID: 2, Username: "bob"},
		},
		byName: map[string]int{"alice": 1, "bob": 2},
	}
	return d
}

func (d *memDirectory) GetByUsername(_ context.Context, username string) (*domain.AccountRow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.byName[username]
	if !ok {
		return nil, nil
	}
	row := *d.accounts[id]
	return &row, nil
}

func (d *memDirectory) GetByID(_ context.Context, id int) (*domain.AccountRow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.accounts[id]
	if !ok {
		return nil, nil
	}
	row := *acc
	return &row, nil
}

func (d *memDirectory) BindSession(_ context.Context, accountID int, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[accountID].BoundSessionToken = &token
	return nil
}

func (d *memDirectory) ClearSession(_ context.Context, accountID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[accountID].BoundSessionToken = nil
	return nil
}

type memStore struct {
	mu   sync.Mutex
	rows map[string]domain.SessionRow
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]domain.SessionRow)}
}

func (s *memStore) Create(_ context.Context, token string, accountID int, username string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[token]; ok {
		row.ExpiresAt = expiresAt
		s.rows[token] = row
		return nil
	}
	s.rows[token] = domain.SessionRow{
		Token: token, AccountID: accountID, Username: username,
		CreatedAt: time.Now(), ExpiresAt: expiresAt,
	}
	return nil
}

func (s *memStore) GetByToken(_ context.Context, token string) (*domain.SessionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[token]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *memStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, token)
	return nil
}

func (s *memStore) PurgeExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := logicv1.NewSessionService(newMemDirectory(), newMemStore(), time.Hour)
	handler := webv1.NewHandler(svc, cookieName, 3600, false)

	r := gin.New()
	handler.RegisterRoutes(r)
	return r
}

func postLogin(r *gin.Engine, identifier string, cookie *http.Cookie) *httptest.ResponseRecorder {
	form := url.Values{"identifier": {identifier}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r *gin.Engine, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", cookieName)
	return nil
}

func TestLogin(t *testing.T) {
	t.Run("success sets cookie and redirects home", func(t *testing.T) {
		r := newTestRouter(t)

		w := postLogin(r, "alice", nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		c := sessionCookie(t, w)
		assert.True(t, c.HttpOnly)
	})

	t.Run("empty identifier redirects with error flag", func(t *testing.T) {
		r := newTestRouter(t)

		w := postLogin(r, "  ", nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?error=empty", w.Header().Get("Location"))
	})

	t.Run("unknown identifier redirects with error flag", func(t *testing.T) {
		r := newTestRouter(t)

		w := postLogin(r, "mallory", nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?error=invalid", w.Header().Get("Location"))
	})

	t.Run("re-login with existing session keeps the token", func(t *testing.T) {
		r := newTestRouter(t)

		first := sessionCookie(t, postLogin(r, "alice", nil))
		w := postLogin(r, "alice", first)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Equal(t, first.Value, sessionCookie(t, w).Value)
	})

	t.Run("login as a different account mints a fresh token", func(t *testing.T) {
		r := newTestRouter(t)

		bob := sessionCookie(t, postLogin(r, "bob", nil))
		alice := sessionCookie(t, postLogin(r, "alice", bob))

		assert.NotEqual(t, bob.Value, alice.Value)
	})
}

// A browser switching accounts must not carry the first account's token into
// the second account's session. If it did, the first account's later login
// would supersede a token it no longer owns and knock the second account out.
func TestAccountSwitchDoesNotCaptureSession(t *testing.T) {
	r := newTestRouter(t)

	// Bob logs in, then the same browser logs in as alice while still
	// presenting bob's cookie.
	bob := sessionCookie(t, postLogin(r, "bob", nil))
	alice := sessionCookie(t, postLogin(r, "alice", bob))
	require.NotEqual(t, bob.Value, alice.Value)

	assert.Equal(t, http.StatusOK, get(r, "/verificar-sesion", alice).Code)

	// Bob logs in again on a fresh device. Only bob's own old session may
	// be superseded; alice stays logged in.
	bob2 := sessionCookie(t, postLogin(r, "bob", nil))

	assert.Equal(t, http.StatusOK, get(r, "/verificar-sesion", alice).Code)
	assert.Equal(t, http.StatusOK, get(r, "/verificar-sesion", bob2).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/verificar-sesion", bob).Code)
}

func TestProtectedRoutes(t *testing.T) {
	t.Run("home without session redirects to login", func(t *testing.T) {
		r := newTestRouter(t)

		w := get(r, "/", nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("home with session renders", func(t *testing.T) {
		r := newTestRouter(t)
		c := sessionCookie(t, postLogin(r, "alice", nil))

		w := get(r, "/", c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "alice")
	})

	t.Run("login page is reachable without a session", func(t *testing.T) {
		r := newTestRouter(t)

		w := get(r, "/login", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "identifier")
	})
}

func TestSessionStatus(t *testing.T) {
	t.Run("bound session reports active", func(t *testing.T) {
		r := newTestRouter(t)
		c := sessionCookie(t, postLogin(r, "alice", nil))

		w := get(r, "/verificar-sesion", c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"active":true`)
		assert.Contains(t, w.Body.String(), "alice")
	})

	t.Run("no session reports unauthorized", func(t *testing.T) {
		r := newTestRouter(t)

		w := get(r, "/verificar-sesion", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"active":false`)
	})
}

func TestSingleActiveSession(t *testing.T) {
	r := newTestRouter(t)

	// Device 1 logs in, device 2 logs in afterwards.
	device1 := sessionCookie(t, postLogin(r, "alice", nil))
	device2 := sessionCookie(t, postLogin(r, "alice", nil))
	require.NotEqual(t, device1.Value, device2.Value)

	// Device 1's very next request is rejected and its cookie cleared.
	w := get(r, "/", device1)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			assert.Empty(t, c.Value)
			assert.Negative(t, c.MaxAge)
		}
	}

	// Device 1's status probe answers 401, device 2's 200.
	assert.Equal(t, http.StatusUnauthorized, get(r, "/verificar-sesion", device1).Code)
	assert.Equal(t, http.StatusOK, get(r, "/verificar-sesion", device2).Code)

	// Another account's session is unaffected.
	bob := sessionCookie(t, postLogin(r, "bob", nil))
	assert.Equal(t, http.StatusOK, get(r, "/verificar-sesion", bob).Code)
	assert.Equal(t, http.StatusOK, get(r, "/verificar-sesion", device2).Code)
}

func TestLogout(t *testing.T) {
	t.Run("destroys the session and redirects to login", func(t *testing.T) {
		r := newTestRouter(t)
		c := sessionCookie(t, postLogin(r, "alice", nil))

		w := get(r, "/logout", c)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))

		// The old token is rejected afterwards.
		assert.Equal(t, http.StatusUnauthorized, get(r, "/verificar-sesion", c).Code)
	})

	t.Run("is idempotent", func(t *testing.T) {
		r := newTestRouter(t)
		c := sessionCookie(t, postLogin(r, "alice", nil))

		first := get(r, "/logout", c)
		second := get(r, "/logout", c)

		assert.Equal(t, first.Code, second.Code)
		assert.Equal(t, first.Header().Get("Location"), second.Header().Get("Location"))
	})

	t.Run("without a session still redirects", func(t *testing.T) {
		r := newTestRouter(t)

		w := get(r, "/logout", nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})
}
