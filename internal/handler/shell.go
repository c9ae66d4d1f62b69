package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/web"
)

// Index renders the single-page shell.
func Index(c echo.Context) error {
	return c.Render(http.StatusOK, web.PageIndex, map[string]any{
		"User": middleware.CurrentUser(c), "CSRF": middleware.CSRFToken(c),
	})
}

// ProfileRedirect sends the legacy profile page to the shell.
func ProfileRedirect(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/")
}
