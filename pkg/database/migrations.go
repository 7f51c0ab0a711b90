package database

import (
	"context"
	"fmt"
)

// migrations are applied in order at service startup. Statements are
// idempotent so repeated startups are safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS properties (
		id UUID PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL,
		borough TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS service_categories (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		tracks_collections BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY,
		property_id UUID NOT NULL REFERENCES properties(id),
		category_id INTEGER NOT NULL REFERENCES service_categories(id),
		frequency TEXT NOT NULL,
		interval INTEGER NOT NULL DEFAULT 1,
		weekdays JSONB NOT NULL DEFAULT '[]',
		end_date DATE,
		max_occurrences INTEGER NOT NULL DEFAULT 0,
		manual_label TEXT NOT NULL DEFAULT '',
		manual_weekdays JSONB NOT NULL DEFAULT '[]',
		monitored_types JSONB NOT NULL DEFAULT '[]',
		start_date DATE NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY,
		contract_id UUID NOT NULL REFERENCES contracts(id),
		property_id UUID NOT NULL REFERENCES properties(id),
		title TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		scheduled_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS job_instances (
		id UUID PRIMARY KEY,
		base_job_id UUID NOT NULL REFERENCES jobs(id),
		sequence_number INTEGER NOT NULL,
		scheduled_date DATE NOT NULL,
		task_summary TEXT NOT NULL,
		is_recurring_instance BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (base_job_id, sequence_number)
	)`,
	`CREATE TABLE IF NOT EXISTS collection_calendars (
		property_id UUID NOT NULL REFERENCES properties(id),
		collection_type TEXT NOT NULL,
		pickup_weekdays JSONB NOT NULL DEFAULT '[]',
		provenance TEXT NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (property_id, collection_type)
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT PRIMARY KEY,
		job_id UUID NOT NULL,
		expires_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_instances_base_job ON job_instances(base_job_id)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_contract ON jobs(contract_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_active ON contracts(active) WHERE active`,
}

// RunMigrations executes the schema statements in order.
func (q *Queries) RunMigrations(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := q.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration %d: %w", i, err)
		}
	}
	return nil
}
