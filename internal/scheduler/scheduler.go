// Package scheduler runs named jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fd1az/debt-rebalancer/internal/logger"
)

// Job represents a scheduled job.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler manages background jobs. Runs of the same job never overlap.
type Scheduler struct {
	cron   *cron.Cron
	logger logger.LoggerInterface
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler. Schedules use six fields (with seconds) or
// descriptors such as "@hourly" and "@every 30m".
func New(log logger.LoggerInterface) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers job on schedule.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.run(job)
	})
	if err != nil {
		return err
	}

	s.logger.Info(s.ctx, "job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(s.ctx, "scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info(context.Background(), "scheduler stopped")
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.logger.Info(s.ctx, "running job immediately", "job", job.Name())
	return s.run(job)
}

// Next returns the next activation of every registered job.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, len(entries))
	for i, e := range entries {
		out[i] = e.Next
	}
	return out
}

func (s *Scheduler) run(job Job) error {
	start := time.Now()
	s.logger.Debug(s.ctx, "running job", "job", job.Name())

	if err := job.Run(s.ctx); err != nil {
		s.logger.Error(s.ctx, "job failed", "job", job.Name(), "error", err)
		return err
	}

	s.logger.Debug(s.ctx, "job completed", "job", job.Name(), "duration_ms", time.Since(start).Milliseconds())
	return nil
}
