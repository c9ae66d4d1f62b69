package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/service"
)

const msgMovieNotFound = "Фильм не найден"

// AdminHandler serves the staff catalog management API. Every route is
// expected behind RequireStaff.
type AdminHandler struct {
	Movies  MovieSaver
	Catalog CatalogAdmin
	Cache   CacheInvalidator // optional
	Loc     *time.Location
	Log     *slog.Logger
}

// NewAdminHandler wires an AdminHandler; cache may be nil.
func NewAdminHandler(movies MovieSaver, catalog CatalogAdmin, cache CacheInvalidator, loc *time.Location, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{Movies: movies, Catalog: catalog, Cache: cache, Loc: loc, Log: logger}
}

type adminMovieReq struct {
	Title     string          `json:"title"`
	Genre     string          `json:"genre"`
	Times     json.RawMessage `json:"times"`
	PosterURL string          `json:"poster_url"`
}

// showtimes extracts the string entries of a JSON list. ok is false when
// raw is not a non-empty list.
func showtimes(raw json.RawMessage) (times []string, ok bool) {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil || len(items) == 0 {
		return nil, false
	}
	times = make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if json.Unmarshal(it, &s) == nil {
			times = append(times, s)
		}
	}
	return times, true
}

func (h *AdminHandler) invalidate(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(ctx); err != nil {
		h.Log.Warn("admin: cache invalidate", "err", err)
	}
}

// SaveMovie creates or updates a movie and today's sessions.
func (h *AdminHandler) SaveMovie(c echo.Context) error {
	var req adminMovieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	times, ok := showtimes(req.Times)
	if req.Title == "" || req.Genre == "" || !ok {
		return c.String(http.StatusBadRequest, "title, genre, times required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Movies.SaveMovie(ctx, service.MovieInput{
		Title:     req.Title,
		Genre:     req.Genre,
		Times:     times,
		PosterURL: req.PosterURL,
	})
	if err != nil {
		h.Log.Error("admin: save movie", "title", req.Title, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save movie failed"})
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "movie_id": res.MovieID, "sessions": res.SessionIDs})
}

// DeleteMovie removes a movie with its sessions and their bookings.
func (h *AdminHandler) DeleteMovie(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": msgMovieNotFound})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Catalog.DeleteMovie(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": msgMovieNotFound})
		}
		h.Log.Error("admin: delete movie", "movie_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, echo.Map{"message": "Удалено"})
}

type hallJSON struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Rows        uint32 `json:"rows"`
	SeatsPerRow uint32 `json:"seats_per_row"`
}

type hallReq struct {
	Name        string `json:"name" validate:"required,max=100"`
	Rows        uint32 `json:"rows" validate:"min=1"`
	SeatsPerRow uint32 `json:"seats_per_row" validate:"min=1"`
}

func toHallJSON(h model.Hall) hallJSON {
	return hallJSON{ID: h.ID, Name: h.Name, Rows: h.Rows, SeatsPerRow: h.SeatsPerRow}
}

// ListHalls returns all halls.
func (h *AdminHandler) ListHalls(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	halls, err := h.Catalog.ListHalls(ctx)
	if err != nil {
		h.Log.Error("admin: list halls", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]hallJSON, 0, len(halls))
	for _, hl := range halls {
		out = append(out, toHallJSON(hl))
	}
	return c.JSON(http.StatusOK, out)
}

// CreateHall adds a hall.
func (h *AdminHandler) CreateHall(c echo.Context) error {
	var req hallReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	hall := model.Hall{Name: req.Name, Rows: req.Rows, SeatsPerRow: req.SeatsPerRow}
	if err := h.Catalog.CreateHall(ctx, &hall); err != nil {
		if errors.Is(err, repository.ErrHallExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "hall already exists"})
		}
		h.Log.Error("admin: create hall", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create hall failed"})
	}
	return c.JSON(http.StatusCreated, toHallJSON(hall))
}

// DeleteHall removes a hall that no session uses.
func (h *AdminHandler) DeleteHall(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	switch err := h.Catalog.DeleteHall(ctx, id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrHallNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "hall has sessions"})
	default:
		h.Log.Error("admin: delete hall", "hall_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete hall failed"})
	}
}

type genreReq struct {
	Name string `json:"name" validate:"required,max=100"`
}

type genreFullJSON struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ListGenres returns all genres by name.
func (h *AdminHandler) ListGenres(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	genres, err := h.Catalog.ListGenres(ctx)
	if err != nil {
		h.Log.Error("admin: list genres", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]genreFullJSON, 0, len(genres))
	for _, g := range genres {
		out = append(out, genreFullJSON{ID: g.ID, Name: g.Name, Slug: g.Slug})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateGenre finds or creates a genre by name.
func (h *AdminHandler) CreateGenre(c echo.Context) error {
	var req genreReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	g, err := h.Catalog.GetOrCreateGenre(ctx, req.Name, model.GenreSlug(req.Name))
	if err != nil {
		h.Log.Error("admin: create genre", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create genre failed"})
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, genreFullJSON{ID: g.ID, Name: g.Name, Slug: g.Slug})
}
