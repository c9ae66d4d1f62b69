package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

func accountServer(t *testing.T, users *fakeAccounts, tokens *fakeTokens, current *model.User) *echo.Echo {
	t.Helper()
	e := newEcho(t)
	h := NewAccountHandler(authCfg, users, tokens, quietLog)
	e.Use(asUser(current))
	e.GET("/register/", h.RegisterPage)
	e.POST("/register/", h.Register)
	e.GET("/accounts/login/", h.LoginPage)
	e.POST("/accounts/login/", h.Login)
	e.Match([]string{http.MethodGet, http.MethodPost}, "/logout/", h.Logout)
	return e
}

func validRegistration() url.Values {
	return url.Values{
		"username":   {"alice"},
		"email":      {"Alice@Example.com"},
		"first_name": {"Alice"},
		"password1":  {"s3cret-pass"},
		"password2":  {"s3cret-pass"},
	}
}

func TestRegisterCreatesAndAuthenticates(t *testing.T) {
	users, tokens := &fakeAccounts{}, newFakeTokens()
	e := accountServer(t, users, tokens, nil)

	rec := doForm(e, "/register/", validRegistration())
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	require.Len(t, users.users, 1)
	u := users.users[0]
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "s3cret-pass"))

	ck := findCookie(rec, middleware.SessionCookie)
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)
	id, err := tokens.Validate(t.Context(), model.TokenKindSession, utils.HashToken(ck.Value))
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestRegisterRejectsDuplicateEmailAnyCase(t *testing.T) {
	users, tokens := &fakeAccounts{}, newFakeTokens()
	users.add(t, "bob", "alice@example.com", "password-1", false)
	e := accountServer(t, users, tokens, nil)

	rec := doForm(e, "/register/", validRegistration())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgEmailTaken)
	assert.Contains(t, rec.Body.String(), "Проверьте форму")
	assert.Len(t, users.users, 1)
	assert.Zero(t, tokens.count(model.TokenKindSession))
}

func TestRegisterUsernameTakenIsFieldError(t *testing.T) {
	users, tokens := &fakeAccounts{}, newFakeTokens()
	users.add(t, "alice", "other@example.com", "password-1", false)
	e := accountServer(t, users, tokens, nil)

	rec := doForm(e, "/register/", validRegistration())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgUsernameTaken)
	assert.Len(t, users.users, 1)
}

func TestRegisterValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(v url.Values)
		want   string
	}{
		"short password":   {func(v url.Values) { v.Set("password1", "short"); v.Set("password2", "short") }, "Пароль слишком короткий"},
		"numeric password": {func(v url.Values) { v.Set("password1", "12345678"); v.Set("password2", "12345678") }, "только из цифр"},
		"mismatch":         {func(v url.Values) { v.Set("password2", "different-pass") }, "Пароли не совпадают"},
		"bad email":        {func(v url.Values) { v.Set("email", "not-an-email") }, "правильный адрес"},
		"bad username":     {func(v url.Values) { v.Set("username", "al ice!") }, "Допустимы только"},
		"missing username": {func(v url.Values) { v.Del("username") }, "Обязательное поле"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			users := &fakeAccounts{}
			e := accountServer(t, users, newFakeTokens(), nil)
			form := validRegistration()
			tc.mutate(form)

			rec := doForm(e, "/register/", form)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
			assert.Empty(t, users.users)
		})
	}
}

func TestRegisterRedirectsAuthenticated(t *testing.T) {
	e := accountServer(t, &fakeAccounts{}, newFakeTokens(), &model.User{ID: 1, Username: "alice"})
	rec := doJSON(e, http.MethodGet, "/register/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestLogin(t *testing.T) {
	users, tokens := &fakeAccounts{}, newFakeTokens()
	users.add(t, "alice", "alice@example.com", "password-1", false)
	e := accountServer(t, users, tokens, nil)

	rec := doForm(e, "/accounts/login/", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgBadCredentials)
	assert.Nil(t, findCookie(rec, middleware.SessionCookie))

	rec = doForm(e, "/accounts/login/", url.Values{"username": {"alice"}, "password": {"password-1"}, "next": {"/profile/"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/", rec.Header().Get(echo.HeaderLocation))
	assert.NotNil(t, findCookie(rec, middleware.SessionCookie))

	rec = doForm(e, "/accounts/login/", url.Values{"username": {"alice"}, "password": {"password-1"}, "next": {"//evil.example"}})
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestLoginPageRedirectsAuthenticated(t *testing.T) {
	e := accountServer(t, &fakeAccounts{}, newFakeTokens(), &model.User{ID: 1})
	rec := doJSON(e, http.MethodGet, "/accounts/login/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	users, tokens := &fakeAccounts{}, newFakeTokens()
	users.add(t, "alice", "alice@example.com", "password-1", false)
	e := accountServer(t, users, tokens, nil)

	login := doForm(e, "/accounts/login/", url.Values{"username": {"alice"}, "password": {"password-1"}})
	ck := findCookie(login, middleware.SessionCookie)
	require.NotNil(t, ck)

	rec := doForm(e, "/logout/", url.Values{}, ck)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, loginPath, rec.Header().Get(echo.HeaderLocation))
	cleared := findCookie(rec, middleware.SessionCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	_, err := tokens.Validate(t.Context(), model.TokenKindSession, utils.HashToken(ck.Value))
	assert.Error(t, err)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/", safeNext(""))
	assert.Equal(t, "/", safeNext("http://evil.example/"))
	assert.Equal(t, "/", safeNext("//evil.example"))
	assert.Equal(t, "/", safeNext(`/\evil.example`))
	assert.Equal(t, "/api/user/", safeNext("/api/user/"))
}
