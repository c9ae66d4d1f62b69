// Package config loads application configuration from environment variables.
// A .env file in the working directory is honoured by the binaries before
// Load is called.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration values. Each leaf field maps to an
// environment variable.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Auth      AuthConfig
	Booking   BookingConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
}

// AppConfig describes the HTTP process itself.
type AppConfig struct {
	Env   string `env:"APP_ENV" env-default:"dev"`
	Port  string `env:"APP_PORT" env-default:"8000"`
	Debug bool   `env:"APP_DEBUG" env-default:"false"`
}

// DBConfig holds the MySQL connection parameters.
type DBConfig struct {
	User         string        `env:"DB_USER" env-required:"true"`
	Pass         string        `env:"DB_PASS"` // empty allowed
	Host         string        `env:"DB_HOST" env-default:"localhost"`
	Port         string        `env:"DB_PORT" env-default:"3306"`
	Name         string        `env:"DB_NAME" env-required:"true"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" env-default:"25"`
	ConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
}

// AuthConfig controls credential hashing, bearer tokens and browser sessions.
type AuthConfig struct {
	JWTSecret       string `env:"JWT_SECRET" env-required:"true"`
	AccessTTLMin    int    `env:"ACCESS_TOKEN_TTL_MIN" env-default:"5"`
	RefreshTTLDays  int    `env:"REFRESH_TOKEN_TTL_DAYS" env-default:"1"`
	SessionTTLHours int    `env:"SESSION_TTL_HOURS" env-default:"336"`
	BcryptCost      int    `env:"BCRYPT_COST" env-default:"10"`
	CookieSecure    bool   `env:"SESSION_COOKIE_SECURE" env-default:"false"`

	// CleanupInterval is how often the server purges expired tokens. Zero
	// disables the job.
	CleanupInterval time.Duration `env:"TOKEN_CLEANUP_INTERVAL" env-default:"1h"`
}

// BookingConfig carries the catalog defaults used by the booking and admin
// flows when they have to create rows on the fly.
type BookingConfig struct {
	Timezone           string `env:"BOOKING_TIMEZONE" env-default:"Europe/Moscow"`
	SessionPrice       string `env:"BOOKING_SESSION_PRICE" env-default:"400"`
	HallName           string `env:"BOOKING_HALL_NAME" env-default:"Main"`
	HallRows           uint32 `env:"BOOKING_HALL_ROWS" env-default:"5"`
	HallSeatsPerRow    uint32 `env:"BOOKING_HALL_SEATS_PER_ROW" env-default:"10"`
	MovieTitle         string `env:"BOOKING_MOVIE_TITLE" env-default:"Untitled"`
	MovieDuration      uint32 `env:"BOOKING_MOVIE_DURATION_MIN" env-default:"90"`
	AdminMovieDuration uint32 `env:"ADMIN_MOVIE_DURATION_MIN" env-default:"120"`
}

// Location resolves the display timezone.
func (b BookingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

// Price parses the default session price.
func (b BookingConfig) Price() (decimal.Decimal, error) {
	p, err := decimal.NewFromString(b.SessionPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse session price %q: %w", b.SessionPrice, err)
	}
	if p.IsNegative() {
		return decimal.Zero, fmt.Errorf("session price must not be negative: %s", b.SessionPrice)
	}
	return p.Round(2), nil
}

// Load reads the environment into a Config and normalizes dependent values.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	cfg.Cache.normalize()
	cfg.RateLimit.normalize()
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return Config{}, fmt.Errorf("invalid BCRYPT_COST: %d", cfg.Auth.BcryptCost)
	}
	if _, err := cfg.Booking.Location(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Booking.Price(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is like Load but exits the process on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}
