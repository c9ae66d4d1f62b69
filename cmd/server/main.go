package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // display timezone must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/scheduler"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	log := logger.SetupLogger(cfg.App.Debug)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connection established", "host", cfg.DB.Host, "db", cfg.DB.Name)

	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = database.Migrate(mctx, db)
	cancel()
	if err != nil {
		return err
	}

	defaults, err := service.DefaultsFromConfig(cfg.Booking)
	if err != nil {
		return err
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, catalog cache disabled and rate limiting in-process", "addr", cfg.Redis.Address())
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	catalog := repository.NewCatalogRepo(db)
	bookings := repository.NewBookingRepo(db)

	if cfg.Auth.CleanupInterval > 0 {
		jobs, err := scheduler.StartTokenCleanup(tokens, cfg.Auth.CleanupInterval, log)
		if err != nil {
			return err
		}
		defer func() { _ = jobs.Shutdown() }()
	}

	cache := middleware.NewResponseCache(cfg.Cache, rdb, log)

	var publisher handler.EventPublisher
	if cfg.AMQP.Enabled {
		publisher = queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.DialTimeout, log)
	}
	if cfg.AMQP.ConsumerEnabled {
		consumer := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.LogDir, log)
		go consumer.Run(ctx)
		log.Info("booking consumer started", "log", consumer.LogPath())
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Use(echomw.Recover())
	e.Use(requestLogger(log))

	router.Register(e, router.Deps{
		Accounts: handler.NewAccountHandler(cfg.Auth, users, tokens, log),
		Tokens:   handler.NewTokenHandler(cfg.Auth, users, tokens, log),
		Catalog:  handler.NewCatalogHandler(catalog, defaults.Location, log),
		Profile:  handler.NewProfileHandler(bookings, defaults.Location, log),
		Booking: handler.NewBookingHandler(service.NewBookingService(catalog, defaults),
			cache, publisher, defaults.Location, log),
		Admin: handler.NewAdminHandler(service.NewCatalogService(catalog, defaults), catalog, cache, defaults.Location, log),

		Authenticate: middleware.Authenticate(cfg.Auth.JWTSecret, tokens, users),
		RateLimit:    middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		CatalogCache: cache.Middleware(),
		CSRF:         middleware.CSRF(cfg.Auth.CookieSecure),
	})

	server := &http.Server{
		Addr:              net.JoinHostPort("", cfg.App.Port),
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.LogAdapter(log),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "url", fmt.Sprintf("http://%s", server.Addr), "env", cfg.App.Env)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down the server gracefully")
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := server.Shutdown(sctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("graceful shutdown timed out: %w", err)
		}
		return err
	}
	log.Info("server stopped")
	return nil
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}
			log.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}
