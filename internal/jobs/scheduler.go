package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"picstoria/api/internal/repository"
)

// Scheduler runs the auth housekeeping: expired refresh sessions are
// deleted and stale verification/reset token pairs cleared.
type Scheduler struct {
	cron     *cron.Cron
	sessions *repository.SessionRepository
	users    *repository.UserRepository
	log      zerolog.Logger
}

func NewScheduler(sessions *repository.SessionRepository, users *repository.UserRepository, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sessions: sessions,
		users:    users,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.purgeExpired); err != nil { // hourly
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish, up to a short grace period.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	removed, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("purge expired sessions failed")
	} else if removed > 0 {
		s.log.Info().Int64("sessions", removed).Msg("purged expired sessions")
	}

	cleared, err := s.users.ClearExpiredOneTimeTokens(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("clear expired tokens failed")
	} else if cleared > 0 {
		s.log.Info().Int64("users", cleared).Msg("cleared expired one-time tokens")
	}
}
