package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/web"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingSaver struct{ calls int }

func (r *recordingSaver) SaveMovie(context.Context, service.MovieInput) (service.MovieResult, error) {
	r.calls++
	return service.MovieResult{MovieID: 1}, nil
}

type noBookings struct{}

func (noBookings) ListByUser(context.Context, uint64) ([]model.BookingSummary, error) {
	return nil, nil
}

type noMovies struct{}

func (noMovies) ListMovies(context.Context) ([]model.MovieListing, error) { return nil, nil }

// headerIdentity maps the X-Test-User header to a caller.
func headerIdentity(users map[string]*model.User) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if u, ok := users[c.Request().Header.Get("X-Test-User")]; ok {
				middleware.SetCurrentUser(c, u)
			}
			return next(c)
		}
	}
}

func newServer(t *testing.T, saver *recordingSaver) *echo.Echo {
	t.Helper()
	e := echo.New()
	r, err := web.NewRenderer()
	require.NoError(t, err)
	e.Renderer = r

	loc := time.UTC
	cfg := config.AuthConfig{JWTSecret: "s", AccessTTLMin: 5, RefreshTTLDays: 1, SessionTTLHours: 1, BcryptCost: 4}
	Register(e, Deps{
		Accounts: handler.NewAccountHandler(cfg, nil, nil, quietLog),
		Tokens:   handler.NewTokenHandler(cfg, nil, nil, quietLog),
		Catalog:  handler.NewCatalogHandler(noMovies{}, loc, quietLog),
		Profile:  handler.NewProfileHandler(noBookings{}, loc, quietLog),
		Booking:  handler.NewBookingHandler(nil, nil, nil, loc, quietLog),
		Admin:    handler.NewAdminHandler(saver, nil, nil, time.UTC, quietLog),
		Authenticate: headerIdentity(map[string]*model.User{
			"bob":   {ID: 1, Username: "bob", IsActive: true},
			"staff": {ID: 2, Username: "staff", IsStaff: true, IsActive: true},
		}),
		CSRF: middleware.CSRF(false),
	})
	return e
}

func do(e *echo.Echo, method, target, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const movieBody = `{"title":"Heat","genre":"Crime","times":["10:00"]}`

func TestAdminRequiresStaff(t *testing.T) {
	saver := &recordingSaver{}
	e := newServer(t, saver)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/api/admin/movie/", "", movieBody).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/api/admin/movie/", "bob", movieBody).Code)
	assert.Zero(t, saver.calls)

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/admin/movie/", "staff", movieBody).Code)
	assert.Equal(t, 1, saver.calls)
}

func TestUserEndpointsRequireAuth(t *testing.T) {
	e := newServer(t, &recordingSaver{})

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/user/", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/api/booking/", "", `{}`).Code)

	rec := do(e, http.MethodGet, "/api/user/", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"bob"`)
}

func TestPublicRoutes(t *testing.T) {
	e := newServer(t, &recordingSaver{})

	rec := do(e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(e, http.MethodGet, "/api/movies/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(e, http.MethodGet, "/profile/", "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = do(e, http.MethodGet, "/static/app.css", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// csrfCookie fetches the login page and returns the CSRF cookie it sets.
func csrfCookie(t *testing.T, e *echo.Echo) *http.Cookie {
	t.Helper()
	rec := do(e, http.MethodGet, "/accounts/login/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.CSRFCookie {
			require.NotEmpty(t, ck.Value)
			assert.Contains(t, rec.Body.String(), `value="`+ck.Value+`"`, "token is embedded in the form")
			return ck
		}
	}
	t.Fatal("no csrf cookie")
	return nil
}

func TestLogoutAliases(t *testing.T) {
	e := newServer(t, &recordingSaver{})
	ck := csrfCookie(t, e)
	for _, p := range []string{"/logout/", "/accounts/logout/"} {
		rec := do(e, http.MethodGet, p, "bob", "")
		assert.Equal(t, http.StatusFound, rec.Code, "GET "+p)
		assert.Equal(t, "/accounts/login/", rec.Header().Get(echo.HeaderLocation), "GET "+p)

		req := httptest.NewRequest(http.MethodPost, p, nil)
		req.Header.Set("X-Test-User", "bob")
		req.Header.Set(echo.HeaderXCSRFToken, ck.Value)
		req.AddCookie(ck)
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code, "POST "+p)
		assert.Equal(t, "/accounts/login/", rec.Header().Get(echo.HeaderLocation), "POST "+p)

		assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, p, "bob", "").Code, "POST without token "+p)
	}
}

func postForm(e *echo.Echo, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAccountFormsRequireCSRFToken(t *testing.T) {
	e := newServer(t, &recordingSaver{})
	ck := csrfCookie(t, e)
	creds := url.Values{"username": {"bob"}, "password": {"secret-pass"}}

	for _, p := range []string{"/accounts/login/", "/register/"} {
		rec := postForm(e, p, creds)
		assert.Equal(t, http.StatusForbidden, rec.Code, p)
		assert.JSONEq(t, `{"error":"CSRF token missing or incorrect"}`, rec.Body.String(), p)
		for _, c := range rec.Result().Cookies() {
			assert.NotEqual(t, middleware.SessionCookie, c.Name, p)
		}

		forged := url.Values{"username": {"bob"}, "password": {"secret-pass"}, middleware.CSRFField: {"forged"}}
		assert.Equal(t, http.StatusForbidden, postForm(e, p, forged, ck).Code, p)
	}

	// A matching token reaches the handler, which rejects the empty form
	// without touching the store.
	ok := url.Values{middleware.CSRFField: {ck.Value}}
	rec := postForm(e, "/accounts/login/", ok, ck)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/accounts/login/"`)
}

func TestCookieAPICallsRequireCSRFToken(t *testing.T) {
	e := newServer(t, &recordingSaver{})
	session := &http.Cookie{Name: middleware.SessionCookie, Value: "abc"}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/movie/", strings.NewReader(movieBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", "staff")
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "session cookie without token")

	req = httptest.NewRequest(http.MethodPost, "/api/admin/movie/", strings.NewReader(movieBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", "staff")
	req.Header.Set(echo.HeaderAuthorization, "Bearer x")
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "bearer callers skip the check")
}
