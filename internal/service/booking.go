package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// BookingRequest is a booking as submitted by a user. Seats is the number of
// seat descriptors the client sent; their content is not inspected.
type BookingRequest struct {
	UserID     uint64
	MovieTitle string
	Seats      int
}

// BookingResult carries the booking together with the rows it was attached
// to, so callers can describe it without further queries.
type BookingResult struct {
	Booking model.Booking
	Movie   model.Movie
	Hall    model.Hall
	Session model.Session
}

// BookingService records bookings.
type BookingService struct {
	store    CatalogStore
	defaults Defaults
	now      func() time.Time
}

// NewBookingService constructs a BookingService.
func NewBookingService(store CatalogStore, d Defaults) *BookingService {
	return &BookingService{store: store, defaults: d, now: time.Now}
}

// Book finds or creates the movie by title, the default hall and the movie's
// earliest session, then records a booking priced at session price times
// quantity. Quantity is never below one and is not checked against hall
// capacity.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (BookingResult, error) {
	title := req.MovieTitle
	if title == "" {
		title = s.defaults.MovieTitle
	}
	quantity := req.Seats
	if quantity < 1 {
		quantity = 1
	}

	var res BookingResult
	err := s.store.InTx(ctx, func(q repository.CatalogQueries) error {
		movie, err := q.GetOrCreateMovie(ctx, model.Movie{
			Title:           title,
			DurationMinutes: s.defaults.MovieDuration,
		})
		if err != nil {
			return fmt.Errorf("movie: %w", err)
		}
		hall, err := q.GetOrCreateHall(ctx, s.defaultHall())
		if err != nil {
			return fmt.Errorf("hall: %w", err)
		}
		session, ok, err := q.EarliestSession(ctx, movie.ID)
		if err != nil {
			return fmt.Errorf("session: %w", err)
		}
		if !ok {
			session = model.Session{
				MovieID:   movie.ID,
				HallID:    hall.ID,
				StartTime: s.now().UTC(),
				Price:     s.defaults.SessionPrice,
			}
			if err := q.CreateSession(ctx, &session); err != nil {
				return fmt.Errorf("session: %w", err)
			}
		} else if session.HallID != hall.ID {
			if hall, err = q.GetHall(ctx, session.HallID); err != nil {
				return fmt.Errorf("session hall: %w", err)
			}
		}

		booking := model.Booking{
			UserID:     req.UserID,
			SessionID:  session.ID,
			Quantity:   uint32(quantity),
			TotalPrice: TotalPrice(session.Price, quantity),
		}
		if err := q.CreateBooking(ctx, &booking); err != nil {
			return fmt.Errorf("booking: %w", err)
		}
		res = BookingResult{Booking: booking, Movie: movie, Hall: hall, Session: session}
		return nil
	})
	if err != nil {
		return BookingResult{}, err
	}
	return res, nil
}

func (s *BookingService) defaultHall() model.Hall {
	return model.Hall{
		Name:        s.defaults.HallName,
		Rows:        s.defaults.HallRows,
		SeatsPerRow: s.defaults.HallSeatsPerRow,
	}
}

// TotalPrice multiplies a unit price by a seat count with decimal arithmetic.
func TotalPrice(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
