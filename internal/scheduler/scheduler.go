package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/metar-snapshot/internal/weather"
)

// Runner produces one snapshot per call.
type Runner interface {
	Run(ctx context.Context) (weather.Snapshot, error)
}

// Scheduler periodically refreshes the weather snapshot.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. Each run is bounded by timeout.
func New(interval, timeout time.Duration, runner Runner, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the job, runs it immediately, and starts the underlying
// scheduler. A run still in progress when the next tick fires is not doubled.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runOnce() {
	s.logger.Info("scheduler: running weather fetch job")

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("scheduler: weather fetch job failed", "err", err)
		return
	}
	s.logger.Info("scheduler: completed weather fetch job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
