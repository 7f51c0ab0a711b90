package api

import (
	"time"

	"github.com/fieldops/core/pkg/models"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// PreviewResponse is the read-only projection of upcoming visits. The
// same DailyAggregate shape comes back from materialization, so calendar
// previews and job-creation forms render from one contract.
type PreviewResponse struct {
	Aggregates  []models.DailyAggregate `json:"aggregates"`
	Provenance  models.Provenance       `json:"provenance"`
	HorizonDays int                     `json:"horizon_days"`
	Count       int                     `json:"count"`
}

// MaterializeResponse reports a materialization. Parent job creation and
// the child batch are separate outcomes: the job can exist while some
// instances failed to insert.
type MaterializeResponse struct {
	Job                models.Job              `json:"job"`
	Aggregates         []models.DailyAggregate `json:"aggregates,omitempty"`
	Provenance         models.Provenance       `json:"provenance,omitempty"`
	InstancesRequested int                     `json:"instances_requested"`
	InstancesCreated   int                     `json:"instances_created"`
	InstancesFailed    int                     `json:"instances_failed"`
	IdempotentReplay   bool                    `json:"idempotent_replay"`
	BatchError         string                  `json:"batch_error,omitempty"`
}

// InstancesResponse lists the materialized children of a parent job.
type InstancesResponse struct {
	JobID     string               `json:"job_id"`
	Instances []models.JobInstance `json:"instances"`
	Count     int                  `json:"count"`
}

// Response represents a general API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}
