// Command manage runs administrative tasks against the database:
//
//	manage migrate
//	manage createstaff -username admin -email admin@example.com [-password ...]
//	manage seed [-genres "Drama,Comedy"]
//	manage revoke-tokens -username alice
//	manage cleanup-tokens
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: manage <migrate|createstaff|seed|revoke-tokens|cleanup-tokens> [flags]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	_ = godotenv.Load()
	cfg := config.MustLoad()
	log := logger.SetupLogger(cfg.App.Debug)

	if err := run(cfg, log, os.Args[1], os.Args[2:]); err != nil {
		log.Error("command failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger, cmd string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	switch cmd {
	case "migrate":
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("schema up to date")
		return nil

	case "createstaff":
		fs := flag.NewFlagSet("createstaff", flag.ExitOnError)
		username := fs.String("username", "", "username (required)")
		email := fs.String("email", "", "email (required for new users)")
		password := fs.String("password", os.Getenv("STAFF_PASSWORD"), "password for new users (default $STAFF_PASSWORD)")
		_ = fs.Parse(args)
		if *username == "" {
			return errors.New("-username is required")
		}
		users := repository.NewUserRepo(db)
		err := users.SetStaff(ctx, *username, true)
		if err == nil {
			log.Info("existing user promoted to staff", "username", *username)
			return nil
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return err
		}
		if *email == "" || len(*password) < 8 {
			return errors.New("new staff users need -email and a password of at least 8 characters")
		}
		id, err := users.Create(ctx, repository.NewUser{
			Username: *username, Email: *email, Password: *password, IsStaff: true,
		}, cfg.Auth.BcryptCost)
		if err != nil {
			return err
		}
		log.Info("staff user created", "user_id", id, "username", *username)
		return nil

	case "seed":
		fs := flag.NewFlagSet("seed", flag.ExitOnError)
		genres := fs.String("genres", "", "comma separated genre names")
		_ = fs.Parse(args)
		catalog := repository.NewCatalogRepo(db)
		hall, err := catalog.Queries().GetOrCreateHall(ctx, model.Hall{
			Name: cfg.Booking.HallName, Rows: cfg.Booking.HallRows, SeatsPerRow: cfg.Booking.HallSeatsPerRow,
		})
		if err != nil {
			return err
		}
		log.Info("hall ready", "hall_id", hall.ID, "name", hall.Name, "capacity", hall.Capacity())
		for _, name := range strings.Split(*genres, ",") {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			g, err := catalog.GetOrCreateGenre(ctx, name, model.GenreSlug(name))
			if err != nil {
				return err
			}
			log.Info("genre ready", "genre_id", g.ID, "slug", g.Slug)
		}
		return nil

	case "revoke-tokens":
		fs := flag.NewFlagSet("revoke-tokens", flag.ExitOnError)
		username := fs.String("username", "", "username (required)")
		_ = fs.Parse(args)
		if *username == "" {
			return errors.New("-username is required")
		}
		u, err := repository.NewUserRepo(db).GetByUsername(ctx, *username)
		if err != nil {
			return err
		}
		tokens := repository.NewTokenRepo(db)
		for _, kind := range []string{model.TokenKindSession, model.TokenKindRefresh} {
			if err := tokens.RevokeAllForUser(ctx, u.ID, kind); err != nil {
				return err
			}
		}
		log.Info("sessions and refresh tokens revoked", "user_id", u.ID, "username", u.Username)
		return nil

	case "cleanup-tokens":
		n, err := repository.NewTokenRepo(db).DeleteExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		log.Info("expired tokens removed", "count", n)
		return nil
	}
	usage()
	return fmt.Errorf("unknown command %q", cmd)
}
