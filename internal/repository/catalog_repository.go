package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// CatalogQueries is the set of catalog operations that the booking and
// admin flows compose inside one transaction. The Get-or-create methods are
// idempotent: they rely on the natural-key unique indexes and return the
// existing row when one is already present.
type CatalogQueries interface {
	GetOrCreateGenre(ctx context.Context, name, slug string) (model.Genre, error)
	// GetOrCreateMovie looks the movie up by title. Fields of m other than
	// Title are only used when the row has to be inserted.
	GetOrCreateMovie(ctx context.Context, m model.Movie) (model.Movie, error)
	UpdateMovie(ctx context.Context, m model.Movie) error
	GetOrCreateHall(ctx context.Context, h model.Hall) (model.Hall, error)
	GetHall(ctx context.Context, id uint64) (model.Hall, error)
	// EarliestSession returns the movie's session with the smallest start
	// time, or ok=false when the movie has none.
	EarliestSession(ctx context.Context, movieID uint64) (s model.Session, ok bool, err error)
	CreateSession(ctx context.Context, s *model.Session) error
	// GetOrCreateSession looks the session up by movie, hall and start time.
	GetOrCreateSession(ctx context.Context, s model.Session) (model.Session, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
}

// CatalogRepo provides catalog persistence on top of MySQL.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo constructs a CatalogRepo with the given DB handle.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// InTx runs fn inside a single transaction. The transaction is committed
// when fn returns nil and rolled back otherwise.
func (r *CatalogRepo) InTx(ctx context.Context, fn func(q CatalogQueries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&catalogQueries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Queries returns CatalogQueries bound to the plain connection pool, each
// statement running in its own implicit transaction.
func (r *CatalogRepo) Queries() CatalogQueries { return &catalogQueries{q: r.db} }

type catalogQueries struct {
	q DBTX
}

// upsertID runs an INSERT ... ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)
// statement. LastInsertId then yields the id of the inserted row or of the
// row that already held the natural key.
func upsertID(ctx context.Context, q DBTX, query string, args ...any) (uint64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (c *catalogQueries) GetOrCreateGenre(ctx context.Context, name, slug string) (model.Genre, error) {
	return getOrCreateGenre(ctx, c.q, name, slug)
}

func getOrCreateGenre(ctx context.Context, q DBTX, name, slug string) (model.Genre, error) {
	id, err := upsertID(ctx, q,
		"INSERT INTO genres (name, slug) VALUES (?, ?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)",
		name, slug)
	if err != nil {
		return model.Genre{}, fmt.Errorf("upsert genre: %w", err)
	}
	var g model.Genre
	err = q.QueryRowContext(ctx, "SELECT id, name, slug FROM genres WHERE id = ?", id).
		Scan(&g.ID, &g.Name, &g.Slug)
	return g, err
}

const movieColumns = "id, title, description, duration_minutes, genre_id, poster_url"

func scanMovie(row interface{ Scan(...any) error }) (model.Movie, error) {
	var (
		m       model.Movie
		genreID sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.DurationMinutes, &genreID, &m.PosterURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Movie{}, ErrMovieNotFound
		}
		return model.Movie{}, err
	}
	if genreID.Valid {
		gid := uint64(genreID.Int64)
		m.GenreID = &gid
	}
	return m, nil
}

func (c *catalogQueries) GetOrCreateMovie(ctx context.Context, m model.Movie) (model.Movie, error) {
	id, err := upsertID(ctx, c.q,
		`INSERT INTO movies (title, description, duration_minutes, genre_id, poster_url)
		 VALUES (?, ?, ?, ?, ?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`,
		m.Title, m.Description, m.DurationMinutes, m.GenreID, m.PosterURL)
	if err != nil {
		return model.Movie{}, fmt.Errorf("upsert movie: %w", err)
	}
	return scanMovie(c.q.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id = ?", id))
}

func (c *catalogQueries) UpdateMovie(ctx context.Context, m model.Movie) error {
	res, err := c.q.ExecContext(ctx,
		`UPDATE movies SET title = ?, description = ?, duration_minutes = ?, genre_id = ?, poster_url = ?
		 WHERE id = ?`,
		m.Title, m.Description, m.DurationMinutes, m.GenreID, m.PosterURL, m.ID)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	// Zero rows affected is also reported for an unchanged row, so confirm
	// existence before failing.
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := scanMovie(c.q.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id = ?", m.ID))
		return err
	}
	return nil
}

const hallColumns = "id, name, `rows`, seats_per_row"

func scanHall(row interface{ Scan(...any) error }) (model.Hall, error) {
	var h model.Hall
	if err := row.Scan(&h.ID, &h.Name, &h.Rows, &h.SeatsPerRow); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Hall{}, ErrHallNotFound
		}
		return model.Hall{}, err
	}
	return h, nil
}

func (c *catalogQueries) GetOrCreateHall(ctx context.Context, h model.Hall) (model.Hall, error) {
	id, err := upsertID(ctx, c.q,
		"INSERT INTO halls (name, `rows`, seats_per_row) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)",
		h.Name, h.Rows, h.SeatsPerRow)
	if err != nil {
		return model.Hall{}, fmt.Errorf("upsert hall: %w", err)
	}
	return c.GetHall(ctx, id)
}

func (c *catalogQueries) GetHall(ctx context.Context, id uint64) (model.Hall, error) {
	return scanHall(c.q.QueryRowContext(ctx, "SELECT "+hallColumns+" FROM halls WHERE id = ?", id))
}

const sessionColumns = "id, movie_id, hall_id, start_time, price"

func scanSession(row interface{ Scan(...any) error }) (model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.MovieID, &s.HallID, &s.StartTime, &s.Price)
	return s, err
}

func (c *catalogQueries) EarliestSession(ctx context.Context, movieID uint64) (model.Session, bool, error) {
	s, err := scanSession(c.q.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE movie_id = ? ORDER BY start_time, id LIMIT 1", movieID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, err
	}
	return s, true, nil
}

func (c *catalogQueries) CreateSession(ctx context.Context, s *model.Session) error {
	res, err := c.q.ExecContext(ctx,
		"INSERT INTO sessions (movie_id, hall_id, start_time, price) VALUES (?, ?, ?, ?)",
		s.MovieID, s.HallID, s.StartTime.UTC(), s.Price)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (c *catalogQueries) GetOrCreateSession(ctx context.Context, s model.Session) (model.Session, error) {
	id, err := upsertID(ctx, c.q,
		`INSERT INTO sessions (movie_id, hall_id, start_time, price)
		 VALUES (?, ?, ?, ?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`,
		s.MovieID, s.HallID, s.StartTime.UTC(), s.Price)
	if err != nil {
		return model.Session{}, fmt.Errorf("upsert session: %w", err)
	}
	return scanSession(c.q.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id))
}

func (c *catalogQueries) CreateBooking(ctx context.Context, b *model.Booking) error {
	res, err := c.q.ExecContext(ctx,
		"INSERT INTO bookings (user_id, session_id, quantity, total_price) VALUES (?, ?, ?, ?)",
		b.UserID, b.SessionID, b.Quantity, b.TotalPrice)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return c.q.QueryRowContext(ctx, "SELECT created_at FROM bookings WHERE id = ?", b.ID).Scan(&b.CreatedAt)
}

// ListMovies returns every movie in id order with its genre and sessions.
func (r *CatalogRepo) ListMovies(ctx context.Context) ([]model.MovieListing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.title, m.description, m.duration_minutes, m.genre_id, m.poster_url, g.name, g.slug
		 FROM movies m LEFT JOIN genres g ON g.id = m.genre_id
		 ORDER BY m.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.MovieListing, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var (
			l         model.MovieListing
			genreID   sql.NullInt64
			genreName sql.NullString
			genreSlug sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Title, &l.Description, &l.DurationMinutes, &genreID, &l.PosterURL, &genreName, &genreSlug); err != nil {
			return nil, err
		}
		if genreID.Valid {
			gid := uint64(genreID.Int64)
			l.GenreID = &gid
			l.Genre = &model.Genre{ID: gid, Name: genreName.String, Slug: genreSlug.String}
		}
		l.Sessions = []model.Session{}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	srows, err := r.db.QueryContext(ctx, "SELECT "+sessionColumns+" FROM sessions ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		s, err := scanSession(srows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[s.MovieID]; ok {
			out[i].Sessions = append(out[i].Sessions, s)
		}
	}
	return out, srows.Err()
}

// DeleteMovie removes a movie. Its sessions and their bookings go with it
// through ON DELETE CASCADE. Returns ErrMovieNotFound when no row matched.
func (r *CatalogRepo) DeleteMovie(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM movies WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// ListHalls returns every hall in id order.
func (r *CatalogRepo) ListHalls(ctx context.Context) ([]model.Hall, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+hallColumns+" FROM halls ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Hall, 0)
	for rows.Next() {
		h, err := scanHall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// CreateHall inserts a hall; a duplicate name yields ErrHallExists.
func (r *CatalogRepo) CreateHall(ctx context.Context, h *model.Hall) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO halls (name, `rows`, seats_per_row) VALUES (?, ?, ?)", h.Name, h.Rows, h.SeatsPerRow)
	if err != nil {
		if isDuplicate(err) {
			return ErrHallExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// DeleteHall removes a hall. Halls referenced by sessions are protected and
// yield ErrHallInUse.
func (r *CatalogRepo) DeleteHall(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM halls WHERE id = ?", id)
	if err != nil {
		if isReferenced(err) {
			return ErrHallInUse
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHallNotFound
	}
	return nil
}

// ListGenres returns every genre ordered by name.
func (r *CatalogRepo) ListGenres(ctx context.Context) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug FROM genres ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Genre, 0)
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetOrCreateGenre finds a genre by name or slug, inserting it when absent.
func (r *CatalogRepo) GetOrCreateGenre(ctx context.Context, name, slug string) (model.Genre, error) {
	return getOrCreateGenre(ctx, r.db, name, slug)
}

// ListSessions returns every session ordered by start time.
func (r *CatalogRepo) ListSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+sessionColumns+" FROM sessions ORDER BY start_time, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSession returns the session by id or ErrSessionNotFound.
func (r *CatalogRepo) GetSession(ctx context.Context, id uint64) (model.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrSessionNotFound
	}
	return s, err
}

// UpdateSession rewrites the hall, start time and price of a session. A
// missing hall yields ErrHallNotFound and a taken slot ErrSessionExists.
func (r *CatalogRepo) UpdateSession(ctx context.Context, s model.Session) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET hall_id = ?, start_time = ?, price = ? WHERE id = ?",
		s.HallID, s.StartTime.UTC(), s.Price, s.ID)
	switch {
	case isDuplicate(err):
		return ErrSessionExists
	case isMissingParent(err):
		return ErrHallNotFound
	case err != nil:
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.GetSession(ctx, s.ID)
		return err
	}
	return nil
}

// DeleteSession removes a session together with its bookings.
func (r *CatalogRepo) DeleteSession(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListBookings returns all bookings newest first, optionally bounded by
// creation time.
func (r *CatalogRepo) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.BookingRecord, error) {
	query := `SELECT b.id, b.user_id, b.session_id, b.quantity, b.total_price, b.created_at,
	                 u.username, m.title, h.name, s.start_time
	          FROM bookings b
	          JOIN users u ON u.id = b.user_id
	          JOIN sessions s ON s.id = b.session_id
	          JOIN movies m ON m.id = s.movie_id
	          JOIN halls h ON h.id = s.hall_id`
	var (
		where []string
		args  []any
	)
	if f.CreatedFrom != nil {
		where = append(where, "b.created_at >= ?")
		args = append(args, f.CreatedFrom.UTC())
	}
	if f.CreatedTo != nil {
		where = append(where, "b.created_at < ?")
		args = append(args, f.CreatedTo.UTC())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.created_at DESC, b.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BookingRecord, 0)
	for rows.Next() {
		var b model.BookingRecord
		if err := rows.Scan(&b.ID, &b.UserID, &b.SessionID, &b.Quantity, &b.TotalPrice, &b.CreatedAt,
			&b.Username, &b.MovieTitle, &b.HallName, &b.SessionTime); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
