package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
)

func newCatalogService(store *memStore) *CatalogService {
	svc := NewCatalogService(store, DefaultDefaults())
	// 23:30 UTC is already the next day in Moscow.
	svc.now = func() time.Time { return time.Date(2026, 5, 9, 23, 30, 0, 0, time.UTC) }
	return svc
}

func TestSaveMovieCreatesGenreMovieAndSessions(t *testing.T) {
	store := newMemStore()
	svc := newCatalogService(store)

	res, err := svc.SaveMovie(context.Background(), MovieInput{
		Title: "Heat", Genre: "Crime Drama", Times: []string{"10:00", "bogus", "25:00", " 18 : 45 "},
	})
	require.NoError(t, err)

	require.Len(t, store.state.genres, 1)
	assert.Equal(t, "crime-drama", store.state.genres[0].Slug)
	require.Len(t, store.state.movies, 1)
	m := store.state.movies[0]
	assert.Equal(t, res.MovieID, m.ID)
	assert.Equal(t, uint32(120), m.DurationMinutes)
	require.NotNil(t, m.GenreID)
	assert.Equal(t, store.state.genres[0].ID, *m.GenreID)

	require.Len(t, res.SessionIDs, 2)
	require.Len(t, store.state.sessions, 2)
	loc := DefaultDefaults().Location
	first := store.state.sessions[0].StartTime.In(loc)
	assert.Equal(t, "2026-05-10 10:00", first.Format("2006-01-02 15:04"))
	assert.Equal(t, "2026-05-10 18:45", store.state.sessions[1].StartTime.In(loc).Format("2006-01-02 15:04"))
	assert.Equal(t, "400.00", store.state.sessions[0].Price.StringFixed(2))
}

func TestSaveMovieIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := newCatalogService(store)
	in := MovieInput{Title: "Heat", Genre: "Crime", Times: []string{"10:00"}}

	first, err := svc.SaveMovie(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.SaveMovie(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.state.sessions, 1)
	assert.Len(t, store.state.movies, 1)
}

func TestSaveMovieKeepsTitleAndGenreVerbatim(t *testing.T) {
	store := newMemStore()
	svc := newCatalogService(store)
	ctx := context.Background()

	_, err := svc.SaveMovie(ctx, MovieInput{Title: "Heat", Genre: "Crime", Times: []string{"10:00"}})
	require.NoError(t, err)
	_, err = svc.SaveMovie(ctx, MovieInput{Title: " heat ", Genre: " Noir", Times: []string{"10:00"}})
	require.NoError(t, err)

	require.Len(t, store.state.movies, 2)
	assert.Equal(t, "Heat", store.state.movies[0].Title)
	assert.Equal(t, " heat ", store.state.movies[1].Title)
	require.Len(t, store.state.genres, 2)
	assert.Equal(t, " Noir", store.state.genres[1].Name)
}

func TestSaveMovieOverwritesGenreAndPoster(t *testing.T) {
	store := newMemStore()
	svc := newCatalogService(store)

	_, err := svc.SaveMovie(context.Background(), MovieInput{Title: "Heat", Genre: "Crime", Times: []string{"10:00"}, PosterURL: "http://a/p.jpg"})
	require.NoError(t, err)
	_, err = svc.SaveMovie(context.Background(), MovieInput{Title: "Heat", Genre: "Thriller", Times: []string{"10:00"}})
	require.NoError(t, err)

	m := store.state.movies[0]
	var thriller model.Genre
	for _, g := range store.state.genres {
		if g.Name == "Thriller" {
			thriller = g
		}
	}
	require.NotZero(t, thriller.ID)
	assert.Equal(t, thriller.ID, *m.GenreID)
	assert.Equal(t, "http://a/p.jpg", m.PosterURL, "empty poster keeps the old one")
}

func TestSaveMovieRollsBack(t *testing.T) {
	store := newMemStore()
	store.failOn = "session"
	svc := newCatalogService(store)

	_, err := svc.SaveMovie(context.Background(), MovieInput{Title: "Heat", Genre: "Crime", Times: []string{"10:00"}})
	require.ErrorIs(t, err, errInjected)
	assert.Empty(t, store.state.genres)
	assert.Empty(t, store.state.movies)
}

func TestParseShowtime(t *testing.T) {
	cases := []struct {
		in     string
		h, m   int
		wantOK bool
	}{
		{"10:00", 10, 0, true},
		{"9:5", 9, 5, true},
		{" 23 : 59 ", 23, 59, true},
		{"00:00", 0, 0, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"-1:10", 0, 0, false},
		{"1200", 0, 0, false},
		{"10:00:00", 0, 0, false},
		{"ab:cd", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			h, m, ok := ParseShowtime(tc.in)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.h, h)
				assert.Equal(t, tc.m, m)
			}
		})
	}
}
