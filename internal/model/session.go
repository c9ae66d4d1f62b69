package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is a single scheduled showing of a movie in a hall. StartTime is
// stored in UTC; (MovieID, HallID, StartTime) is unique.
type Session struct {
	ID        uint64          // sessions.id
	MovieID   uint64          // sessions.movie_id
	HallID    uint64          // sessions.hall_id
	StartTime time.Time       // sessions.start_time
	Price     decimal.Decimal // sessions.price DECIMAL(6,2)
}
