package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Expirer marks quotes past their validity as expired.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// Scheduler runs the periodic quote maintenance jobs.
type Scheduler struct {
	cron    *cron.Cron
	expirer Expirer
	logger  *slog.Logger
	timeout time.Duration
}

func New(expirer Expirer, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		expirer: expirer,
		logger:  logger,
		timeout: time.Minute,
	}
}

// Start registers the expiry job on schedule (standard cron spec or
// descriptor such as @hourly) and starts the scheduler.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.ExpireQuotes); err != nil {
		return err
	}
	s.logger.Info("scheduled quote expiry job", "schedule", schedule)
	s.cron.Start()
	return nil
}

// Stop stops the scheduler; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ExpireQuotes is the job body.
func (s *Scheduler) ExpireQuotes() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error("quote expiry job failed", "error", err)
		return
	}
	s.logger.Debug("quote expiry job finished", "expired", n)
}
