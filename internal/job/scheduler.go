package job

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the maintenance jobs on their cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Register adds a job under the given cron spec.
func (s *Scheduler) Register(spec string, job cron.Job) error {
	_, err := s.cron.AddJob(spec, job)
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Job scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Job scheduler stopped")
}
