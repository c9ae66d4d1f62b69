package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// MovieInput is an admin request to create or update a movie together with
// today's showtimes. Times holds "HH:MM" wall-clock strings.
type MovieInput struct {
	Title     string
	Genre     string
	Times     []string
	PosterURL string
}

// MovieResult reports the saved movie and the sessions matched or created
// for each parsable time, in input order.
type MovieResult struct {
	MovieID    uint64
	SessionIDs []uint64
}

// CatalogService implements staff catalog management.
type CatalogService struct {
	store    CatalogStore
	defaults Defaults
	now      func() time.Time
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(store CatalogStore, d Defaults) *CatalogService {
	return &CatalogService{store: store, defaults: d, now: time.Now}
}

// SaveMovie finds or creates the genre and the movie, overwrites the movie's
// genre and (when given) poster, and finds or creates a session in the
// default hall for every parsable time on today's date in the display
// timezone. Unparsable times are skipped.
func (s *CatalogService) SaveMovie(ctx context.Context, in MovieInput) (MovieResult, error) {
	title, genreName := in.Title, in.Genre
	posterURL := strings.TrimSpace(in.PosterURL)

	var res MovieResult
	err := s.store.InTx(ctx, func(q repository.CatalogQueries) error {
		genre, err := q.GetOrCreateGenre(ctx, genreName, model.GenreSlug(genreName))
		if err != nil {
			return fmt.Errorf("genre: %w", err)
		}
		movie, err := q.GetOrCreateMovie(ctx, model.Movie{
			Title:           title,
			DurationMinutes: s.defaults.AdminMovieDuration,
			GenreID:         &genre.ID,
			PosterURL:       posterURL,
		})
		if err != nil {
			return fmt.Errorf("movie: %w", err)
		}
		movie.GenreID = &genre.ID
		if posterURL != "" {
			movie.PosterURL = posterURL
		}
		if err := q.UpdateMovie(ctx, movie); err != nil {
			return fmt.Errorf("movie: %w", err)
		}

		hall, err := q.GetOrCreateHall(ctx, model.Hall{
			Name:        s.defaults.HallName,
			Rows:        s.defaults.HallRows,
			SeatsPerRow: s.defaults.HallSeatsPerRow,
		})
		if err != nil {
			return fmt.Errorf("hall: %w", err)
		}

		today := s.now().In(s.defaults.Location)
		ids := make([]uint64, 0, len(in.Times))
		for _, t := range in.Times {
			hour, minute, ok := ParseShowtime(t)
			if !ok {
				continue
			}
			start := time.Date(today.Year(), today.Month(), today.Day(), hour, minute, 0, 0, s.defaults.Location)
			sess, err := q.GetOrCreateSession(ctx, model.Session{
				MovieID:   movie.ID,
				HallID:    hall.ID,
				StartTime: start.UTC(),
				Price:     s.defaults.SessionPrice,
			})
			if err != nil {
				return fmt.Errorf("session %s: %w", t, err)
			}
			ids = append(ids, sess.ID)
		}
		res = MovieResult{MovieID: movie.ID, SessionIDs: ids}
		return nil
	})
	if err != nil {
		return MovieResult{}, err
	}
	return res, nil
}

// ParseShowtime parses "H:M" into hour and minute. Surrounding whitespace
// around either part is allowed; anything else, including out-of-range
// values, reports ok=false.
func ParseShowtime(s string) (hour, minute int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
