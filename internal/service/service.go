// Package service implements the booking and catalog management flows on
// top of the repository layer. Every multi-step write runs in a single
// transaction so a failure leaves no partially created catalog rows.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// CatalogStore runs a function against catalog queries inside one
// transaction.
type CatalogStore interface {
	InTx(ctx context.Context, fn func(q repository.CatalogQueries) error) error
}

// Defaults are the values used when the flows create rows on the fly.
type Defaults struct {
	Location           *time.Location // display timezone; admin showtimes are wall times here
	SessionPrice       decimal.Decimal
	HallName           string
	HallRows           uint32
	HallSeatsPerRow    uint32
	MovieTitle         string // used when a booking names no movie
	MovieDuration      uint32 // minutes, for movies created by bookings
	AdminMovieDuration uint32 // minutes, for movies created by the admin flow
}

// DefaultDefaults returns the values the service ships with.
func DefaultDefaults() Defaults {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return Defaults{
		Location:           loc,
		SessionPrice:       decimal.NewFromInt(400),
		HallName:           "Main",
		HallRows:           5,
		HallSeatsPerRow:    10,
		MovieTitle:         "Untitled",
		MovieDuration:      90,
		AdminMovieDuration: 120,
	}
}

// DefaultsFromConfig resolves the booking section of the configuration.
func DefaultsFromConfig(b config.BookingConfig) (Defaults, error) {
	loc, err := b.Location()
	if err != nil {
		return Defaults{}, err
	}
	price, err := b.Price()
	if err != nil {
		return Defaults{}, err
	}
	return Defaults{
		Location:           loc,
		SessionPrice:       price,
		HallName:           b.HallName,
		HallRows:           b.HallRows,
		HallSeatsPerRow:    b.HallSeatsPerRow,
		MovieTitle:         b.MovieTitle,
		MovieDuration:      b.MovieDuration,
		AdminMovieDuration: b.AdminMovieDuration,
	}, nil
}
