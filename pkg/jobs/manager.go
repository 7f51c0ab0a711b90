package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fieldops/core/pkg/logger"
)

type cronJobManager struct {
	cron   *cron.Cron
	jobs   []Job
	logger *logger.Logger
}

// NewJobManager creates a new job manager
func NewJobManager(log *logger.Logger) JobManager {
	return &cronJobManager{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		jobs:   make([]Job, 0),
		logger: log,
	}
}

func (m *cronJobManager) RegisterJob(job Job) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}

	m.logger.LogJobStart(job.Name(), job.Schedule())

	_, err := m.cron.AddFunc(job.Schedule(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		log := m.logger.WithJob(job.Name())
		log.Info().Str("action", "job_run").Msg("Starting job")
		start := time.Now()

		if err := job.Execute(ctx); err != nil {
			log.Error().
				Err(err).
				Dur("duration", time.Since(start)).
				Msg("Job failed")
			return
		}
		log.Info().
			Dur("duration", time.Since(start)).
			Msg("Job completed")
	})

	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
	}

	m.jobs = append(m.jobs, job)
	return nil
}

func (m *cronJobManager) Start() {
	m.logger.Info().
		Int("job_count", len(m.jobs)).
		Msg("Starting job manager")
	m.cron.Start()
}

func (m *cronJobManager) Stop() {
	m.logger.Info().Msg("Stopping job manager...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info().Msg("Job manager stopped")
}

func (m *cronJobManager) GetJobs() []Job {
	return append([]Job(nil), m.jobs...)
}
