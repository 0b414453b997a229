// Package scheduler triggers scheduled jobs via cron.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"lakemerge/internal/domain"
	"lakemerge/internal/service/runner"
)

// Scheduler manages cron-based job execution. A job still running when its
// next tick fires is skipped, so overlapping runs of the same job never
// happen.
type Scheduler struct {
	cron     *cron.Cron
	runner   *runner.Runner
	logger   *slog.Logger
	entries  map[string]cron.EntryID // job name → cron entry
	inflight sync.Map                // job name → struct{}
}

// New creates a Scheduler for the given jobs.
func New(r *runner.Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		runner:  r,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Register adds every job carrying a schedule to the cron table. Invalid
// schedules are logged and skipped rather than failing startup.
func (s *Scheduler) Register(jobs []domain.Job) {
	for _, job := range jobs {
		if job.Schedule == "" {
			continue
		}
		entryID, err := s.cron.AddFunc(job.Schedule, func() {
			s.trigger(job)
		})
		if err != nil {
			s.logger.Warn("invalid cron schedule",
				"job", job.Name,
				"schedule", job.Schedule,
				"error", err,
			)
			continue
		}
		s.entries[job.Name] = entryID
		s.logger.Info("scheduled job", "job", job.Name, "schedule", job.Schedule)
	}
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("job scheduler started", "jobs", len(s.entries))
}

// Stop stops the cron scheduler and waits for in-progress runs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("job scheduler stopped")
}

func (s *Scheduler) trigger(job domain.Job) {
	if _, running := s.inflight.LoadOrStore(job.Name, struct{}{}); running {
		s.logger.Warn("skipping scheduled run, previous run still in progress", "job", job.Name)
		return
	}
	defer s.inflight.Delete(job.Name)

	if _, err := s.runner.Run(context.Background(), job, domain.TriggerTypeScheduled); err != nil {
		s.logger.Warn("scheduled run failed", "job", job.Name, "error", err)
	}
}
