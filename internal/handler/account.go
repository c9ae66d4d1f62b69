package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/utils"
	"github.com/iliyamo/cinema-booking/internal/web"
)

const (
	loginPath = "/accounts/login/"

	msgFormInvalid    = "Проверьте форму — есть ошибки."
	msgUsernameTaken  = "Пользователь с таким логином уже существует."
	msgEmailTaken     = "Пользователь с таким email уже зарегистрирован."
	msgBadCredentials = "Неверное имя пользователя или пароль."
)

// AccountHandler serves the browser registration, login and logout pages.
// Browser sessions are opaque tokens stored hashed and carried in the
// session cookie.
type AccountHandler struct {
	Cfg    config.AuthConfig
	Users  AccountStore
	Tokens TokenStore
	Log    *slog.Logger
}

// NewAccountHandler wires the browser account pages.
func NewAccountHandler(cfg config.AuthConfig, users AccountStore, tokens TokenStore, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{Cfg: cfg, Users: users, Tokens: tokens, Log: logger}
}

type registerForm struct {
	Username  string `schema:"username" validate:"required,max=150,username"`
	Email     string `schema:"email" validate:"required,email,max=254"`
	FirstName string `schema:"first_name" validate:"max=150"`
	LastName  string `schema:"last_name" validate:"max=150"`
	Password1 string `schema:"password1" validate:"required,min=8"`
	Password2 string `schema:"password2" validate:"required,eqfield=Password1"`
}

type loginForm struct {
	Username string `schema:"username"`
	Password string `schema:"password"`
	Next     string `schema:"next"`
}

func (f *registerForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
}

// check validates the form and returns per-field messages.
func (f *registerForm) check() map[string]string {
	fields := make(map[string]string)
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			fields["username"] = err.Error()
			return fields
		}
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; !seen {
				fields[fe.Field()] = fieldMessage(fe)
			}
		}
	}
	if _, seen := fields["password1"]; !seen && f.Password1 != "" && isAllDigits(f.Password1) {
		fields["password1"] = "Пароль не может состоять только из цифр."
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Обязательное поле."
	case "max":
		return "Слишком длинное значение (максимум " + fe.Param() + " символов)."
	case "min":
		return "Пароль слишком короткий. Минимум " + fe.Param() + " символов."
	case "email":
		return "Введите правильный адрес электронной почты."
	case "username":
		return "Допустимы только буквы, цифры и символы @/./+/-/_."
	case "eqfield":
		return "Пароли не совпадают."
	}
	return "Некорректное значение."
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// safeNext accepts only local absolute paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (h *AccountHandler) renderRegister(c echo.Context, f registerForm, fields map[string]string, msg string) error {
	if fields == nil {
		fields = map[string]string{}
	}
	return c.Render(http.StatusOK, web.PageRegister, map[string]any{
		"User": middleware.CurrentUser(c), "Form": f, "Fields": fields, "Error": msg,
		"CSRF": middleware.CSRFToken(c),
	})
}

func (h *AccountHandler) renderLogin(c echo.Context, username, next, msg string) error {
	return c.Render(http.StatusOK, web.PageLogin, map[string]any{
		"User": middleware.CurrentUser(c), "Username": username, "Next": next, "Error": msg,
		"CSRF": middleware.CSRFToken(c),
	})
}

// RegisterPage shows the empty registration form.
func (h *AccountHandler) RegisterPage(c echo.Context) error {
	if middleware.CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, "/")
	}
	return h.renderRegister(c, registerForm{}, nil, "")
}

// Register creates an account and signs the new user in.
func (h *AccountHandler) Register(c echo.Context) error {
	if middleware.CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, "/")
	}
	params, err := c.FormParams()
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid form")
	}
	var f registerForm
	if err := formDecoder.Decode(&f, params); err != nil {
		return c.String(http.StatusBadRequest, "invalid form")
	}
	f.normalize()

	fields := f.check()
	if len(fields) > 0 {
		return h.renderRegister(c, f, fields, msgFormInvalid)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	exists, err := h.Users.EmailExists(ctx, f.Email)
	if err != nil {
		h.Log.Error("register: email lookup", "err", err)
		return c.String(http.StatusInternalServerError, "internal error")
	}
	if exists {
		return h.renderRegister(c, f, map[string]string{"email": msgEmailTaken}, msgFormInvalid)
	}

	id, err := h.Users.Create(ctx, repository.NewUser{
		Username:  f.Username,
		Email:     f.Email,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Password:  f.Password1,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return h.renderRegister(c, f, map[string]string{"username": msgUsernameTaken}, msgFormInvalid)
		}
		h.Log.Error("register: create user", "err", err)
		return c.String(http.StatusInternalServerError, "internal error")
	}

	if err := h.startSession(ctx, c, id); err != nil {
		h.Log.Error("register: start session", "err", err)
		return c.String(http.StatusInternalServerError, "internal error")
	}
	h.Log.Info("user registered", "user_id", id, "username", f.Username)
	return c.Redirect(http.StatusFound, "/")
}

// LoginPage shows the login form. Signed-in users are sent on.
func (h *AccountHandler) LoginPage(c echo.Context) error {
	next := c.QueryParam("next")
	if middleware.CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, safeNext(next))
	}
	return h.renderLogin(c, "", next, "")
}

// Login verifies the credentials and opens a browser session.
func (h *AccountHandler) Login(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid form")
	}
	var f loginForm
	if err := formDecoder.Decode(&f, params); err != nil {
		return c.String(http.StatusBadRequest, "invalid form")
	}
	if f.Next == "" {
		f.Next = c.QueryParam("next")
	}
	if middleware.CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, safeNext(f.Next))
	}
	f.Username = strings.TrimSpace(f.Username)
	if f.Username == "" || f.Password == "" {
		return h.renderLogin(c, f.Username, f.Next, msgBadCredentials)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, f.Username)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		h.Log.Error("login: load user", "err", err)
		return c.String(http.StatusInternalServerError, "internal error")
	}
	if err != nil || !u.IsActive || !utils.VerifyPassword(u.PasswordHash, f.Password) {
		return h.renderLogin(c, f.Username, f.Next, msgBadCredentials)
	}

	if err := h.startSession(ctx, c, u.ID); err != nil {
		h.Log.Error("login: start session", "err", err)
		return c.String(http.StatusInternalServerError, "internal error")
	}
	return c.Redirect(http.StatusFound, safeNext(f.Next))
}

// Logout revokes the current session and clears the cookie. It answers
// both GET and POST.
func (h *AccountHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.SessionCookie); err == nil && cookie.Value != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
		defer cancel()
		if err := h.Tokens.RevokeByHash(ctx, utils.HashToken(cookie.Value)); err != nil {
			h.Log.Warn("logout: revoke session", "err", err)
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, loginPath)
}

func (h *AccountHandler) startSession(ctx context.Context, c echo.Context, userID uint64) error {
	tok, err := utils.NewOpaqueToken(time.Duration(h.Cfg.SessionTTLHours) * time.Hour)
	if err != nil {
		return err
	}
	if err := h.Tokens.Store(ctx, userID, model.TokenKindSession, utils.HashToken(tok.Raw), tok.Exp); err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    tok.Raw,
		Path:     "/",
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
