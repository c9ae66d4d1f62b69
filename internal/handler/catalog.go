package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// CatalogHandler serves the public movie listing.
type CatalogHandler struct {
	Movies MovieLister
	Loc    *time.Location
	Log    *slog.Logger
}

// NewCatalogHandler wires a CatalogHandler rendering times in loc.
func NewCatalogHandler(movies MovieLister, loc *time.Location, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{Movies: movies, Loc: loc, Log: logger}
}

type genreJSON struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type sessionJSON struct {
	ID        uint64 `json:"id"`
	StartTime string `json:"start_time"`
	Price     string `json:"price"`
}

type movieJSON struct {
	ID              uint64        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	DurationMinutes uint32        `json:"duration_minutes"`
	Genre           *genreJSON    `json:"genre"`
	PosterURL       string        `json:"poster_url"`
	Sessions        []sessionJSON `json:"sessions"`
}

func toMovieJSON(l model.MovieListing, loc *time.Location) movieJSON {
	out := movieJSON{
		ID:              l.ID,
		Title:           l.Title,
		Description:     l.Description,
		DurationMinutes: l.DurationMinutes,
		PosterURL:       l.PosterURL,
		Sessions:        make([]sessionJSON, 0, len(l.Sessions)),
	}
	if l.Genre != nil {
		out.Genre = &genreJSON{ID: l.Genre.ID, Name: l.Genre.Name}
	}
	for _, s := range l.Sessions {
		out.Sessions = append(out.Sessions, sessionJSON{
			ID:        s.ID,
			StartTime: s.StartTime.In(loc).Format(time.RFC3339),
			Price:     s.Price.StringFixed(2),
		})
	}
	return out
}

// List returns every movie with its genre and sessions.
func (h *CatalogHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	listings, err := h.Movies.ListMovies(ctx)
	if err != nil {
		h.Log.Error("catalog: list movies", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]movieJSON, 0, len(listings))
	for _, l := range listings {
		out = append(out, toMovieJSON(l, h.Loc))
	}
	return c.JSON(http.StatusOK, out)
}
