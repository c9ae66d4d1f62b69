// Package queue carries booking events over RabbitMQ: a publisher used by
// the booking handler and a background consumer that appends each event to
// the booking log.
package queue

import (
	"time"

	"github.com/iliyamo/cinema-booking/internal/service"
)

// BookingQueue is the durable queue booking events are routed to.
const BookingQueue = "booking.created"

// EventBookingCreated is the AMQP message type of BookingCreatedEvent.
const EventBookingCreated = "booking.created.v1"

// BookingCreatedEvent is published after a booking has been committed. It is
// self-contained so consumers do not need to query the database.
type BookingCreatedEvent struct {
	BookingID  uint64 `json:"booking_id"`
	UserID     uint64 `json:"user_id"`
	Username   string `json:"username"`
	SessionID  uint64 `json:"session_id"`
	MovieTitle string `json:"movie_title"`
	HallName   string `json:"hall_name"`
	StartsAt   string `json:"starts_at"`
	Quantity   uint32 `json:"quantity"`
	TotalPrice string `json:"total_price"`
	CreatedAt  string `json:"created_at"`
}

// NewBookingCreatedEvent describes a booking result. Times are rendered in
// RFC 3339 in loc.
func NewBookingCreatedEvent(res service.BookingResult, username string, loc *time.Location) BookingCreatedEvent {
	if loc == nil {
		loc = time.UTC
	}
	return BookingCreatedEvent{
		BookingID:  res.Booking.ID,
		UserID:     res.Booking.UserID,
		Username:   username,
		SessionID:  res.Session.ID,
		MovieTitle: res.Movie.Title,
		HallName:   res.Hall.Name,
		StartsAt:   res.Session.StartTime.In(loc).Format(time.RFC3339),
		Quantity:   res.Booking.Quantity,
		TotalPrice: res.Booking.TotalPrice.StringFixed(2),
		CreatedAt:  res.Booking.CreatedAt.In(loc).Format(time.RFC3339),
	}
}
