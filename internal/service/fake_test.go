package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// memStore is an in-memory CatalogStore. InTx works on a copy of the state
// and only keeps it when fn succeeds.
type memStore struct {
	state   *memState
	failOn  string
	commits int
}

type memState struct {
	nextID   uint64
	genres   []model.Genre
	movies   []model.Movie
	halls    []model.Hall
	sessions []model.Session
	bookings []model.Booking
}

func newMemStore() *memStore { return &memStore{state: &memState{}} }

func (s *memState) clone() *memState {
	c := *s
	c.genres = append([]model.Genre(nil), s.genres...)
	c.movies = append([]model.Movie(nil), s.movies...)
	c.halls = append([]model.Hall(nil), s.halls...)
	c.sessions = append([]model.Session(nil), s.sessions...)
	c.bookings = append([]model.Booking(nil), s.bookings...)
	return &c
}

func (m *memStore) InTx(ctx context.Context, fn func(q repository.CatalogQueries) error) error {
	work := m.state.clone()
	if err := fn(&memQueries{s: work, failOn: m.failOn}); err != nil {
		return err
	}
	m.state = work
	m.commits++
	return nil
}

var errInjected = errors.New("injected failure")

type memQueries struct {
	s      *memState
	failOn string
}

func (q *memQueries) id() uint64 {
	q.s.nextID++
	return q.s.nextID
}

func (q *memQueries) GetOrCreateGenre(_ context.Context, name, slug string) (model.Genre, error) {
	if q.failOn == "genre" {
		return model.Genre{}, errInjected
	}
	for _, g := range q.s.genres {
		if g.Name == name || g.Slug == slug {
			return g, nil
		}
	}
	g := model.Genre{ID: q.id(), Name: name, Slug: slug}
	q.s.genres = append(q.s.genres, g)
	return g, nil
}

func (q *memQueries) GetOrCreateMovie(_ context.Context, m model.Movie) (model.Movie, error) {
	if q.failOn == "movie" {
		return model.Movie{}, errInjected
	}
	for _, existing := range q.s.movies {
		if existing.Title == m.Title {
			return existing, nil
		}
	}
	m.ID = q.id()
	q.s.movies = append(q.s.movies, m)
	return m, nil
}

func (q *memQueries) UpdateMovie(_ context.Context, m model.Movie) error {
	for i := range q.s.movies {
		if q.s.movies[i].ID == m.ID {
			q.s.movies[i] = m
			return nil
		}
	}
	return repository.ErrMovieNotFound
}

func (q *memQueries) GetOrCreateHall(_ context.Context, h model.Hall) (model.Hall, error) {
	for _, existing := range q.s.halls {
		if existing.Name == h.Name {
			return existing, nil
		}
	}
	h.ID = q.id()
	q.s.halls = append(q.s.halls, h)
	return h, nil
}

func (q *memQueries) GetHall(_ context.Context, id uint64) (model.Hall, error) {
	for _, h := range q.s.halls {
		if h.ID == id {
			return h, nil
		}
	}
	return model.Hall{}, repository.ErrHallNotFound
}

func (q *memQueries) EarliestSession(_ context.Context, movieID uint64) (model.Session, bool, error) {
	var found []model.Session
	for _, s := range q.s.sessions {
		if s.MovieID == movieID {
			found = append(found, s)
		}
	}
	if len(found) == 0 {
		return model.Session{}, false, nil
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].StartTime.Before(found[j].StartTime) })
	return found[0], true, nil
}

func (q *memQueries) CreateSession(_ context.Context, s *model.Session) error {
	s.ID = q.id()
	q.s.sessions = append(q.s.sessions, *s)
	return nil
}

func (q *memQueries) GetOrCreateSession(_ context.Context, s model.Session) (model.Session, error) {
	if q.failOn == "session" {
		return model.Session{}, errInjected
	}
	for _, existing := range q.s.sessions {
		if existing.MovieID == s.MovieID && existing.HallID == s.HallID && existing.StartTime.Equal(s.StartTime) {
			return existing, nil
		}
	}
	s.ID = q.id()
	q.s.sessions = append(q.s.sessions, s)
	return s, nil
}

func (q *memQueries) CreateBooking(_ context.Context, b *model.Booking) error {
	if q.failOn == "booking" {
		return errInjected
	}
	b.ID = q.id()
	b.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q.s.bookings = append(q.s.bookings, *b)
	return nil
}
