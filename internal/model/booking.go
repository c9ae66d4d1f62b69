package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking records a purchase of Quantity seats for a session. Rows are
// written once and never updated.
type Booking struct {
	ID         uint64          // bookings.id
	UserID     uint64          // bookings.user_id
	SessionID  uint64          // bookings.session_id
	Quantity   uint32          // bookings.quantity
	TotalPrice decimal.Decimal // bookings.total_price DECIMAL(8,2)
	CreatedAt  time.Time       // bookings.created_at
}

// BookingSummary is a booking joined with the movie and session it belongs
// to, as listed in a user's profile.
type BookingSummary struct {
	ID          uint64
	MovieTitle  string
	SessionTime time.Time
	Quantity    uint32
	TotalPrice  decimal.Decimal
	CreatedAt   time.Time
}

// BookingRecord is a booking as listed to staff, joined with the user, the
// movie, the hall and the session time.
type BookingRecord struct {
	Booking
	Username    string
	MovieTitle  string
	HallName    string
	SessionTime time.Time
}

// BookingFilter narrows a staff booking listing by creation time. Both
// bounds are optional; From is inclusive and To exclusive.
type BookingFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
