package scheduler

import (
	"fmt"
	"time"

	"prepaid-billing-go/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *Jobs
}

// NewScheduler creates a scheduler in UTC with seconds precision and
// registers the settlement and snapshot jobs
func NewScheduler(cfg models.SchedulerConfig, jobs *Jobs) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobs,
	}

	if err := s.registerJobs(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs(cfg models.SchedulerConfig) error {
	// Monthly true-up of the previous month
	if _, err := s.cron.AddFunc(cfg.SettlementSpec, s.jobs.SettlePreviousMonth); err != nil {
		return fmt.Errorf("failed to register settlement job %q: %w", cfg.SettlementSpec, err)
	}

	if _, err := s.cron.AddFunc(cfg.SnapshotSpec, s.jobs.TakeSnapshot); err != nil {
		return fmt.Errorf("failed to register snapshot job %q: %w", cfg.SnapshotSpec, err)
	}

	zap.L().Info("Cron jobs registered",
		zap.String("settlement", cfg.SettlementSpec),
		zap.String("snapshot", cfg.SnapshotSpec))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	zap.L().Info("Starting cron scheduler")
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	zap.L().Info("Stopping cron scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.L().Info("Cron scheduler stopped")
}

// NextRuns reports the next activation of each registered job
func (s *Scheduler) NextRuns() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		next = append(next, e.Next)
	}
	return next
}

// IsRunning returns true if jobs are registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
