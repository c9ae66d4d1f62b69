package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/service"
)

const msgBookingFailed = "Ошибка при создании бронирования"

// BookingHandler records bookings for the current user.
type BookingHandler struct {
	Bookings  Booker
	Cache     CacheInvalidator // optional
	Publisher EventPublisher   // optional
	Loc       *time.Location
	Log       *slog.Logger

	// publish runs the event delivery; replaced in tests.
	publish func(fn func())
}

// NewBookingHandler wires a BookingHandler; cache and pub may be nil.
func NewBookingHandler(b Booker, cache CacheInvalidator, pub EventPublisher, loc *time.Location, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{Bookings: b, Cache: cache, Publisher: pub, Loc: loc, Log: logger,
		publish: func(fn func()) { go fn() }}
}

type bookingReq struct {
	MovieTitle string            `json:"movie_title"`
	Seats      []json.RawMessage `json:"seats"`
}

// Create books len(seats) places (at least one) for the named movie. It
// must be mounted behind RequireAuth.
func (h *BookingHandler) Create(c echo.Context) error {
	u := middleware.CurrentUser(c)
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Bookings.Book(ctx, service.BookingRequest{
		UserID:     u.ID,
		MovieTitle: req.MovieTitle,
		Seats:      len(req.Seats),
	})
	if err != nil {
		h.Log.Error("booking failed", "user_id", u.ID, "movie_title", req.MovieTitle, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgBookingFailed, "detail": "internal error"})
	}
	h.Log.Info("booking created", "booking_id", res.Booking.ID, "user_id", u.ID,
		"session_id", res.Session.ID, "quantity", res.Booking.Quantity)

	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx); err != nil {
			h.Log.Warn("booking: cache invalidate", "err", err)
		}
	}
	if h.Publisher != nil {
		ev := queue.NewBookingCreatedEvent(res, u.Username, h.Loc)
		h.publish(func() {
			pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer pcancel()
			if err := h.Publisher.Publish(pctx, ev); err != nil {
				h.Log.Warn("booking: publish event", "booking_id", ev.BookingID, "err", err)
			}
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "booking_id": res.Booking.ID})
}
