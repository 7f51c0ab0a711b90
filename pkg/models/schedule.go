package models

import (
	"errors"
	"fmt"
	"time"
)

// Frequency identifies how a recurrence rule advances between visits.
type Frequency string

const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

var ErrInvalidInterval = errors.New("recurrence interval must be a positive integer")

// RecurrenceRule describes when recurring field visits happen.
//
// Interval means "every N units" for daily/weekly/monthly and is ignored
// for custom rules, which are driven entirely by the Weekdays set
// (Sunday=0). EndDate is an inclusive upper bound; MaxOccurrences of 0
// means unbounded. When both are set, expansion stops at whichever bound
// is reached first.
type RecurrenceRule struct {
	Frequency      Frequency      `json:"frequency"`
	Interval       int            `json:"interval"`
	Weekdays       []time.Weekday `json:"weekdays,omitempty"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	MaxOccurrences int            `json:"max_occurrences,omitempty"`
}

// Validate rejects rules that must never reach expansion. An interval of
// zero is an input error, not shorthand for "every time".
func (r RecurrenceRule) Validate() error {
	switch r.Frequency {
	case FrequencyNone, FrequencyCustom:
		return nil
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		if r.Interval <= 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidInterval, r.Interval)
		}
		return nil
	default:
		return fmt.Errorf("unknown recurrence frequency %q", r.Frequency)
	}
}

// CollectionType labels a waste stream serviced by the external authority.
type CollectionType string

const (
	CollectionRefuse    CollectionType = "refuse"
	CollectionRecycling CollectionType = "recycling"
	CollectionOrganics  CollectionType = "organics"
	CollectionBulk      CollectionType = "bulk"
)

// Provenance records where a collection schedule came from, so previews
// and job notes can disclose data quality.
type Provenance string

const (
	// ProvenanceReal means the schedule came from a live authority lookup.
	ProvenanceReal Provenance = "real"
	// ProvenanceSampled means the schedule was served from a cached copy
	// of an earlier real lookup.
	ProvenanceSampled Provenance = "sampled"
	// ProvenanceSimulated means the lookup failed and a synthetic
	// schedule was substituted.
	ProvenanceSimulated Provenance = "simulated"
)

// CollectionSchedule is one monitored collection type at a property,
// with the weekdays the authority picks it up.
type CollectionSchedule struct {
	Type           CollectionType `json:"type"`
	PickupWeekdays []time.Weekday `json:"pickup_weekdays"`
	Provenance     Provenance     `json:"provenance"`
}

// ManualTaskSchedule is a fixed task recurring on a set of weekdays,
// independent of the recurrence rule that drives date expansion. The two
// sets are only ever combined inside the daily aggregator.
type ManualTaskSchedule struct {
	Label    string         `json:"label"`
	Weekdays []time.Weekday `json:"weekdays"`
}

// Active reports whether the manual task runs on the given weekday.
func (m ManualTaskSchedule) Active(day time.Weekday) bool {
	for _, w := range m.Weekdays {
		if w == day {
			return true
		}
	}
	return false
}

// DailyAggregate is every task that should appear on the single
// consolidated field visit for one calendar date.
type DailyAggregate struct {
	Date    time.Time `json:"date"`
	Weekday string    `json:"weekday"`
	Tasks   []string  `json:"tasks"`
}

// JobInstance is one materialized child visit of a recurring job.
type JobInstance struct {
	ID                  string    `json:"id"`
	BaseJobID           string    `json:"base_job_id"`
	SequenceNumber      int       `json:"sequence_number"`
	ScheduledDate       time.Time `json:"scheduled_date"`
	TaskSummary         string    `json:"task_summary"`
	IsRecurringInstance bool      `json:"is_recurring_instance"`
	CreatedAt           time.Time `json:"created_at"`
}
