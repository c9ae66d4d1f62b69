package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// SessionCookie is the browser session cookie name.
const SessionCookie = "sessionid"

const userKey = "user"

// SessionLookup resolves an opaque token hash of a given kind to its owner.
type SessionLookup interface {
	Validate(ctx context.Context, kind, tokenHash string) (uint64, error)
}

// UserLookup loads a user by id.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Authenticate resolves the caller from an Authorization Bearer access token
// or, failing that, from the session cookie. The user row is loaded on every
// request so staff and active flags are current. Inactive users are treated
// as anonymous. It never rejects a request; RequireAuth and RequireStaff do.
func Authenticate(secret string, sessions SessionLookup, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if id, ok := resolveUserID(c, secret, sessions); ok {
				u, err := users.GetByID(ctx, id)
				if err == nil && u.IsActive {
					c.Set(userKey, &u)
				}
			}
			return next(c)
		}
	}
}

func resolveUserID(c echo.Context, secret string, sessions SessionLookup) (uint64, bool) {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if id, err := utils.ParseAccessToken(secret, raw); err == nil {
			return id, true
		}
		return 0, false
	}
	cookie, err := c.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return 0, false
	}
	id, err := sessions.Validate(c.Request().Context(), model.TokenKindSession, utils.HashToken(cookie.Value))
	if err != nil {
		return 0, false
	}
	return id, true
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}

// SetCurrentUser stores u as the authenticated user. Used right after login
// so the rest of the request sees the new identity.
func SetCurrentUser(c echo.Context, u *model.User) { c.Set(userKey, u) }

// RequireAuth rejects anonymous callers with 401.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			return next(c)
		}
	}
}

// RequireStaff rejects anonymous callers with 401 and non-staff users
// with 403.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			if !u.IsStaff {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
