package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/middleware"
)

// RegisterAPI registers the JSON API: public catalog, bearer token issuance
// and the authenticated user endpoints.
func RegisterAPI(e *echo.Echo, d Deps, limit, cache echo.MiddlewareFunc) {
	api := e.Group("/api")
	api.GET("/movies/", d.Catalog.List, cache)

	token := api.Group("/token", limit)
	token.POST("/", d.Tokens.Obtain)
	token.POST("/refresh/", d.Tokens.Refresh)

	authed := api.Group("", middleware.RequireAuth())
	authed.GET("/user/", d.Profile.Me)
	authed.POST("/booking/", d.Booking.Create)
}
