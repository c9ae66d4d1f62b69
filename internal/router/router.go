// Package router wires handlers to paths. Authentication is resolved once
// for every request by the middleware installed in New; authorization is a
// single guard per route group.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/web"
)

// Deps bundles everything the routes need.
type Deps struct {
	Accounts *handler.AccountHandler
	Tokens   *handler.TokenHandler
	Catalog  *handler.CatalogHandler
	Profile  *handler.ProfileHandler
	Booking  *handler.BookingHandler
	Admin    *handler.AdminHandler

	// Authenticate resolves the caller; see middleware.Authenticate.
	Authenticate echo.MiddlewareFunc
	// RateLimit guards credential endpoints. Optional.
	RateLimit echo.MiddlewareFunc
	// CatalogCache caches the public catalog listing. Optional.
	CatalogCache echo.MiddlewareFunc
	// CSRF guards cookie-authenticated unsafe requests; see middleware.CSRF.
	// Optional.
	CSRF echo.MiddlewareFunc
}

func orPass(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return mw
}

// Register installs identity resolution and every route on e.
func Register(e *echo.Echo, d Deps) {
	if d.Authenticate != nil {
		e.Use(d.Authenticate)
	}
	if d.CSRF != nil {
		e.Use(d.CSRF)
	}
	RegisterRoutes(e)
	RegisterAccounts(e, d.Accounts, orPass(d.RateLimit))
	RegisterAPI(e, d, orPass(d.RateLimit), orPass(d.CatalogCache))
	RegisterAdmin(e, d.Admin)
}

// RegisterRoutes registers the health check, the shell and static assets.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/", handler.Index)
	e.GET("/profile/", handler.ProfileRedirect)
	e.StaticFS("/static", web.Static())
}

// RegisterAccounts registers the browser registration, login and logout
// pages. Credential POSTs pass through the rate limiter.
func RegisterAccounts(e *echo.Echo, a *handler.AccountHandler, limit echo.MiddlewareFunc) {
	for _, p := range []string{"/register", "/register/"} {
		e.GET(p, a.RegisterPage)
		e.POST(p, a.Register, limit)
	}
	e.GET("/accounts/login/", a.LoginPage)
	e.POST("/accounts/login/", a.Login, limit)
	for _, p := range []string{"/logout/", "/accounts/logout/"} {
		e.Match([]string{http.MethodGet, http.MethodPost}, p, a.Logout)
	}
}
