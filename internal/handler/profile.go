package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/middleware"
)

// ProfileHandler serves the current user's profile.
type ProfileHandler struct {
	Bookings BookingLister
	Loc      *time.Location
	Log      *slog.Logger
}

// NewProfileHandler wires a ProfileHandler.
func NewProfileHandler(bookings BookingLister, loc *time.Location, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{Bookings: bookings, Loc: loc, Log: logger}
}

type profileBookingJSON struct {
	ID          uint64  `json:"id"`
	Movie       string  `json:"movie"`
	SessionTime string  `json:"session_time"`
	Quantity    uint32  `json:"quantity"`
	TotalPrice  float64 `json:"total_price"`
}

type profileJSON struct {
	Username  string               `json:"username"`
	Email     string               `json:"email"`
	FirstName string               `json:"first_name"`
	LastName  string               `json:"last_name"`
	IsStaff   bool                 `json:"is_staff"`
	Bookings  []profileBookingJSON `json:"bookings"`
}

// Me returns the profile and bookings, newest first. It must be mounted
// behind RequireAuth.
func (h *ProfileHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	bookings, err := h.Bookings.ListByUser(ctx, u.ID)
	if err != nil {
		h.Log.Error("profile: list bookings", "user_id", u.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := profileJSON{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsStaff:   u.IsStaff,
		Bookings:  make([]profileBookingJSON, 0, len(bookings)),
	}
	for _, b := range bookings {
		out.Bookings = append(out.Bookings, profileBookingJSON{
			ID:          b.ID,
			Movie:       b.MovieTitle,
			SessionTime: b.SessionTime.In(h.Loc).Format("2006-01-02 15:04"),
			Quantity:    b.Quantity,
			TotalPrice:  b.TotalPrice.InexactFloat64(),
		})
	}
	return c.JSON(http.StatusOK, out)
}
