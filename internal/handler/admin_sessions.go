package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// maxSessionPrice is the first price that no longer fits DECIMAL(6,2).
var maxSessionPrice = decimal.NewFromInt(10000)

type adminSessionJSON struct {
	ID        uint64 `json:"id"`
	MovieID   uint64 `json:"movie_id"`
	HallID    uint64 `json:"hall_id"`
	StartTime string `json:"start_time"`
	Price     string `json:"price"`
}

func (h *AdminHandler) toSessionJSON(s model.Session) adminSessionJSON {
	return adminSessionJSON{
		ID:        s.ID,
		MovieID:   s.MovieID,
		HallID:    s.HallID,
		StartTime: s.StartTime.In(h.Loc).Format(time.RFC3339),
		Price:     s.Price.StringFixed(2),
	}
}

// sessionPatch carries the editable session fields. Absent fields are left
// unchanged.
type sessionPatch struct {
	HallID    *uint64          `json:"hall_id"`
	StartTime *time.Time       `json:"start_time"`
	Price     *decimal.Decimal `json:"price"`
}

func (p sessionPatch) apply(s *model.Session) string {
	if p.HallID != nil {
		if *p.HallID == 0 {
			return "hall_id must be positive"
		}
		s.HallID = *p.HallID
	}
	if p.StartTime != nil {
		s.StartTime = p.StartTime.UTC()
	}
	if p.Price != nil {
		price := *p.Price
		if price.IsNegative() || price.GreaterThanOrEqual(maxSessionPrice) || !price.Equal(price.Round(2)) {
			return "price must be between 0 and 9999.99 with at most two decimals"
		}
		s.Price = price
	}
	return ""
}

func sessionID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil
}

// ListSessions returns every session ordered by start time.
func (h *AdminHandler) ListSessions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	sessions, err := h.Catalog.ListSessions(ctx)
	if err != nil {
		h.Log.Error("admin: list sessions", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminSessionJSON, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, h.toSessionJSON(s))
	}
	return c.JSON(http.StatusOK, out)
}

// GetSession returns one session.
func (h *AdminHandler) GetSession(c echo.Context) error {
	id, ok := sessionID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	s, err := h.Catalog.GetSession(ctx, id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	if err != nil {
		h.Log.Error("admin: get session", "session_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, h.toSessionJSON(s))
}

// UpdateSession changes the hall, start time or price of a session.
func (h *AdminHandler) UpdateSession(c echo.Context) error {
	id, ok := sessionID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	var patch sessionPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	s, err := h.Catalog.GetSession(ctx, id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	if err != nil {
		h.Log.Error("admin: get session", "session_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if msg := patch.apply(&s); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	switch err := h.Catalog.UpdateSession(ctx, s); {
	case err == nil:
	case errors.Is(err, repository.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, repository.ErrHallNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hall not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session slot already taken"})
	default:
		h.Log.Error("admin: update session", "session_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update session failed"})
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, h.toSessionJSON(s))
}

// DeleteSession removes a session and its bookings.
func (h *AdminHandler) DeleteSession(c echo.Context) error {
	id, ok := sessionID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	switch err := h.Catalog.DeleteSession(ctx, id); {
	case err == nil:
	case errors.Is(err, repository.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	default:
		h.Log.Error("admin: delete session", "session_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete session failed"})
	}
	h.invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}

type adminBookingJSON struct {
	ID          uint64 `json:"id"`
	UserID      uint64 `json:"user_id"`
	User        string `json:"user"`
	SessionID   uint64 `json:"session_id"`
	Movie       string `json:"movie"`
	Hall        string `json:"hall"`
	SessionTime string `json:"session_time"`
	Quantity    uint32 `json:"quantity"`
	TotalPrice  string `json:"total_price"`
	CreatedAt   string `json:"created_at"`
}

// dayParam parses a YYYY-MM-DD query parameter as midnight in loc. The
// result is nil when the parameter is absent.
func dayParam(c echo.Context, name string, loc *time.Location) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListBookings returns all bookings newest first. created_from and
// created_to narrow the list to whole days in the display timezone, both
// inclusive.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	from, err := dayParam(c, "created_from", h.Loc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "created_from must be YYYY-MM-DD"})
	}
	to, err := dayParam(c, "created_to", h.Loc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "created_to must be YYYY-MM-DD"})
	}
	if to != nil {
		next := to.AddDate(0, 0, 1)
		to = &next
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	records, err := h.Catalog.ListBookings(ctx, model.BookingFilter{CreatedFrom: from, CreatedTo: to})
	if err != nil {
		h.Log.Error("admin: list bookings", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminBookingJSON, 0, len(records))
	for _, b := range records {
		out = append(out, adminBookingJSON{
			ID:          b.ID,
			UserID:      b.UserID,
			User:        b.Username,
			SessionID:   b.SessionID,
			Movie:       b.MovieTitle,
			Hall:        b.HallName,
			SessionTime: b.SessionTime.In(h.Loc).Format(time.RFC3339),
			Quantity:    b.Quantity,
			TotalPrice:  b.TotalPrice.StringFixed(2),
			CreatedAt:   b.CreatedAt.In(h.Loc).Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, out)
}
