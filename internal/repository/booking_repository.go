package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// BookingRepo reads booking history. Bookings are written through
// CatalogQueries.CreateBooking as part of the booking transaction.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// ListByUser returns the user's bookings newest first, joined with the
// movie title and session start time.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingSummary, error) {
	const q = `SELECT b.id, m.title, s.start_time, b.quantity, b.total_price, b.created_at
	           FROM bookings b
	           JOIN sessions s ON s.id = b.session_id
	           JOIN movies m ON m.id = s.movie_id
	           WHERE b.user_id = ?
	           ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.BookingSummary, 0)
	for rows.Next() {
		var b model.BookingSummary
		if err := rows.Scan(&b.ID, &b.MovieTitle, &b.SessionTime, &b.Quantity, &b.TotalPrice, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
