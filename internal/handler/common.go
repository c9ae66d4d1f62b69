// Package handler implements the HTTP endpoints: browser pages, the public
// catalog API, bookings, profile, token issuance and staff catalog
// management. Handlers depend on the small interfaces declared here so they
// can be exercised without a database.
package handler

import (
	"context"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// dbTimeout bounds the database work of a single request.
const dbTimeout = 5 * time.Second

// AccountStore is the user persistence used by registration, login and
// token issuance.
type AccountStore interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists hashed opaque tokens.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, kind, tokenHash string, exp time.Time) error
	Validate(ctx context.Context, kind, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
}

// MovieLister lists the catalog.
type MovieLister interface {
	ListMovies(ctx context.Context) ([]model.MovieListing, error)
}

// BookingLister lists a user's bookings.
type BookingLister interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingSummary, error)
}

// Booker records bookings.
type Booker interface {
	Book(ctx context.Context, req service.BookingRequest) (service.BookingResult, error)
}

// MovieSaver creates or updates a movie with showtimes.
type MovieSaver interface {
	SaveMovie(ctx context.Context, in service.MovieInput) (service.MovieResult, error)
}

// CatalogAdmin holds the direct catalog reads and writes available to staff.
type CatalogAdmin interface {
	DeleteMovie(ctx context.Context, id uint64) error
	ListHalls(ctx context.Context) ([]model.Hall, error)
	CreateHall(ctx context.Context, h *model.Hall) error
	DeleteHall(ctx context.Context, id uint64) error
	ListGenres(ctx context.Context) ([]model.Genre, error)
	GetOrCreateGenre(ctx context.Context, name, slug string) (model.Genre, error)

	ListSessions(ctx context.Context) ([]model.Session, error)
	GetSession(ctx context.Context, id uint64) (model.Session, error)
	UpdateSession(ctx context.Context, s model.Session) error
	DeleteSession(ctx context.Context, id uint64) error
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.BookingRecord, error)
}

// CacheInvalidator drops cached catalog responses.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// EventPublisher delivers booking events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingCreatedEvent) error
}

var usernameRe = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	// Report fields by their form/json name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"schema", "json"} {
			if name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

var validate = newValidator()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

var formDecoder = newFormDecoder()
