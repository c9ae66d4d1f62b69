package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/utils"
	"github.com/iliyamo/cinema-booking/internal/web"
)

var (
	quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))
	msk      = time.FixedZone("MSK", 3*3600)
	authCfg  = config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTTLMin:    5,
		RefreshTTLDays:  1,
		SessionTTLHours: 24,
		BcryptCost:      4,
	}
)

func newEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	r, err := web.NewRenderer()
	require.NoError(t, err)
	e.Renderer = r
	return e
}

// asUser installs u as the authenticated caller for every request.
func asUser(u *model.User) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if u != nil {
				middleware.SetCurrentUser(c, u)
			}
			return next(c)
		}
	}
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doForm(e *echo.Echo, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// fakeAccounts is an in-memory AccountStore.
type fakeAccounts struct {
	mu     sync.Mutex
	nextID uint64
	users  []model.User
	failOn string
}

func (f *fakeAccounts) add(t *testing.T, username, email, password string, staff bool) model.User {
	t.Helper()
	id, err := f.Create(context.Background(), repository.NewUser{
		Username: username, Email: email, Password: password, IsStaff: staff,
	}, 4)
	require.NoError(t, err)
	u, err := f.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fakeAccounts) Create(_ context.Context, nu repository.NewUser, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == nu.Username {
			return 0, repository.ErrUsernameExists
		}
	}
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	f.nextID++
	f.users = append(f.users, model.User{
		ID: f.nextID, Username: nu.Username, Email: strings.ToLower(nu.Email),
		FirstName: nu.FirstName, LastName: nu.LastName, PasswordHash: hash,
		IsStaff: nu.IsStaff, IsActive: true,
	})
	return f.nextID, nil
}

func (f *fakeAccounts) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccounts) GetByUsername(_ context.Context, username string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

type storedToken struct {
	userID  uint64
	kind    string
	exp     time.Time
	revoked bool
}

// fakeTokens is an in-memory TokenStore keyed by hash.
type fakeTokens struct {
	mu     sync.Mutex
	tokens map[string]*storedToken
}

func newFakeTokens() *fakeTokens { return &fakeTokens{tokens: map[string]*storedToken{}} }

func (f *fakeTokens) Store(_ context.Context, userID uint64, kind, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[hash] = &storedToken{userID: userID, kind: kind, exp: exp}
	return nil
}

func (f *fakeTokens) Validate(_ context.Context, kind, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[hash]
	if !ok || tok.kind != kind || tok.revoked || time.Now().After(tok.exp) {
		return 0, repository.ErrTokenInvalid
	}
	return tok.userID, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok, ok := f.tokens[hash]; ok {
		tok.revoked = true
	}
	return nil
}

func (f *fakeTokens) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, tok := range f.tokens {
		if tok.kind == kind {
			n++
		}
	}
	return n
}

type countingCache struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}
