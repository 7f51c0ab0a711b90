package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldops/core/pkg/models"
)

// CreateJob inserts a parent job row.
func (q *Queries) CreateJob(ctx context.Context, j models.Job) (models.Job, error) {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.Status == "" {
		j.Status = models.JobStatusScheduled
	}
	j.CreatedAt = time.Now().UTC()

	_, err := q.pool.Exec(ctx, `
		INSERT INTO jobs (id, contract_id, property_id, title, notes, scheduled_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, j.ID, j.ContractID, j.PropertyID, j.Title, j.Notes, j.ScheduledDate, j.Status, j.CreatedAt)
	if err != nil {
		return models.Job{}, fmt.Errorf("insert job: %w", err)
	}
	return j, nil
}

// GetJob fetches a job by id.
func (q *Queries) GetJob(ctx context.Context, id string) (models.Job, error) {
	var j models.Job
	err := q.pool.QueryRow(ctx, `
		SELECT id, contract_id, property_id, title, notes, scheduled_date, status, created_at
		FROM jobs WHERE id = $1
	`, id).Scan(&j.ID, &j.ContractID, &j.PropertyID, &j.Title, &j.Notes, &j.ScheduledDate, &j.Status, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Job{}, ErrNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("query job: %w", err)
	}
	return j, nil
}

// BatchResult reports how a batch insert of job instances went. The
// store has no multi-row transactional guarantee for this path, so a
// partial failure leaves the earlier rows in place and is reported
// rather than rolled back.
type BatchResult struct {
	Created int
	Failed  int
	Err     error
}

// InsertJobInstances inserts the expanded instances for a parent job in
// one batch. Rows are queued together; each queued insert succeeds or
// fails on its own.
func (q *Queries) InsertJobInstances(ctx context.Context, instances []models.JobInstance) BatchResult {
	if len(instances) == 0 {
		return BatchResult{}
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, inst := range instances {
		id := inst.ID
		if id == "" {
			id = uuid.New().String()
		}
		batch.Queue(`
			INSERT INTO job_instances (id, base_job_id, sequence_number, scheduled_date,
				task_summary, is_recurring_instance, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, inst.BaseJobID, inst.SequenceNumber, inst.ScheduledDate, inst.TaskSummary,
			inst.IsRecurringInstance, now)
	}

	results := q.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	var res BatchResult
	for range instances {
		if _, err := results.Exec(); err != nil {
			res.Failed++
			if res.Err == nil {
				res.Err = fmt.Errorf("insert job instance: %w", err)
			}
			continue
		}
		res.Created++
	}
	return res
}

// ListJobInstances returns the materialized children of a parent job in
// sequence order.
func (q *Queries) ListJobInstances(ctx context.Context, baseJobID string) ([]models.JobInstance, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, base_job_id, sequence_number, scheduled_date, task_summary,
			is_recurring_instance, created_at
		FROM job_instances WHERE base_job_id = $1 ORDER BY sequence_number
	`, baseJobID)
	if err != nil {
		return nil, fmt.Errorf("query job instances: %w", err)
	}
	defer rows.Close()

	var instances []models.JobInstance
	for rows.Next() {
		var inst models.JobInstance
		if err := rows.Scan(&inst.ID, &inst.BaseJobID, &inst.SequenceNumber, &inst.ScheduledDate,
			&inst.TaskSummary, &inst.IsRecurringInstance, &inst.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job instance: %w", err)
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// ClaimIdempotencyKey records key -> job before any row is written. The
// bool reports whether this call won the key; a lost claim means another
// request already materialized under it.
func (q *Queries) ClaimIdempotencyKey(ctx context.Context, key, jobID string, ttl time.Duration) (bool, error) {
	var expires *time.Time
	if ttl > 0 {
		t := time.Now().UTC().Add(ttl)
		expires = &t
	}
	tag, err := q.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, job_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING
	`, key, jobID, expires)
	if err != nil {
		return false, fmt.Errorf("insert idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// FindJobByIdempotencyKey returns the job a key was claimed for, if the
// claim is still unexpired.
func (q *Queries) FindJobByIdempotencyKey(ctx context.Context, key string) (models.Job, bool, error) {
	var id string
	err := q.pool.QueryRow(ctx, `
		SELECT job_id FROM idempotency_keys
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())
	`, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Job{}, false, nil
	}
	if err != nil {
		return models.Job{}, false, fmt.Errorf("query idempotency key: %w", err)
	}

	job, err := q.GetJob(ctx, id)
	if err != nil {
		return models.Job{}, false, err
	}
	return job, true, nil
}
