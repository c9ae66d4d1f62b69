package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
)

// RegisterAdmin registers staff catalog management under /api/admin. The
// group carries the only staff check.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler) {
	g := e.Group("/api/admin", middleware.RequireStaff())
	g.POST("/movie/", a.SaveMovie)
	g.DELETE("/movie/:id/", a.DeleteMovie)

	g.GET("/halls/", a.ListHalls)
	g.POST("/halls/", a.CreateHall)
	g.DELETE("/halls/:id/", a.DeleteHall)

	g.GET("/genres/", a.ListGenres)
	g.POST("/genres/", a.CreateGenre)

	g.GET("/sessions/", a.ListSessions)
	g.GET("/sessions/:id/", a.GetSession)
	g.PATCH("/sessions/:id/", a.UpdateSession)
	g.DELETE("/sessions/:id/", a.DeleteSession)

	g.GET("/bookings/", a.ListBookings)
}
