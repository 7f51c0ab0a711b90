package models

import "time"

// Property is a serviced building or lot.
type Property struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Address   string    `json:"address"`
	Borough   string    `json:"borough,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ServiceCategory classifies the work a contract covers.
//
// TracksCollections is an explicit capability flag: only categories with
// it set consult the external pickup calendar. It replaces control flow
// keyed on a hardcoded category identifier.
type ServiceCategory struct {
	ID                int32  `json:"id"`
	Name              string `json:"name"`
	Slug              string `json:"slug"`
	TracksCollections bool   `json:"tracks_collections"`
}

// Contract binds a property to a service category with a recurrence rule,
// an independent manual-task weekday set, and the collection types the
// operator wants tracked.
type Contract struct {
	ID             string             `json:"id"`
	PropertyID     string             `json:"property_id"`
	CategoryID     int32              `json:"category_id"`
	Rule           RecurrenceRule     `json:"rule"`
	ManualTask     ManualTaskSchedule `json:"manual_task"`
	MonitoredTypes []CollectionType   `json:"monitored_types"`
	StartDate      time.Time          `json:"start_date"`
	Active         bool               `json:"active"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Job is a parent field visit record. Recurring contracts get one parent
// job plus a batch of JobInstance children.
type Job struct {
	ID            string    `json:"id"`
	ContractID    string    `json:"contract_id"`
	PropertyID    string    `json:"property_id"`
	Title         string    `json:"title"`
	Notes         string    `json:"notes,omitempty"`
	ScheduledDate time.Time `json:"scheduled_date"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Job status values persisted in Postgres.
const (
	JobStatusScheduled = "scheduled"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
)
