// Package scheduler runs the periodic bill sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/finwise/internal/service"
)

// sweepTimeout bounds a single sweep.
const sweepTimeout = 5 * time.Minute

// Sweeper is the work done on every tick.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *slog.Logger
}

// New parses schedule (standard five-field cron syntax or a descriptor such
// as "@hourly") and registers the sweep. Overlapping runs are skipped.
func New(schedule string, sweeper Sweeper, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("failed to schedule sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("Sweep scheduled", "next", e.Next)
	}
}

// Stop prevents new runs and waits for a running sweep until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single sweep and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (service.SweepResult, error) {
	start := time.Now()
	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("Sweep failed", "error", err, "duration", time.Since(start))
		return result, err
	}
	s.logger.Info("Sweep finished",
		"reminders", result.Reminders,
		"auto_paid", result.AutoPaid,
		"failed", result.Failed,
		"duration", time.Since(start),
	)
	return result, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
