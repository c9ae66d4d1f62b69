// Package scheduler runs periodic maintenance jobs inside the server process.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// TokenPurger deletes credentials that expired before cutoff.
type TokenPurger interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

const purgeTimeout = 30 * time.Second

// StartTokenCleanup purges expired tokens every interval, starting right
// away. The caller stops the returned scheduler with Shutdown.
func StartTokenCleanup(tokens TokenPurger, interval time.Duration, log *slog.Logger) (gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("token cleanup interval must be positive, got %s", interval)
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(purgeExpired, tokens, log),
		gocron.WithName("token-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule token cleanup: %w", err)
	}
	s.Start()
	return s, nil
}

func purgeExpired(tokens TokenPurger, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()
	n, err := tokens.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		log.Error("token cleanup failed", "err", err)
		return
	}
	if n > 0 {
		log.Info("expired tokens removed", "count", n)
	}
}
