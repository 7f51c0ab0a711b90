package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fieldops/core/pkg/database"
	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/models"
	"github.com/fieldops/core/pkg/schedule"
)

// MaxInstancesPerContract caps materialization when no end condition
// bounds the rule sooner: one year of weekly visits.
const MaxInstancesPerContract = 52

// idempotencyTTL is how long a materialization key blocks replays.
const idempotencyTTL = 24 * time.Hour

// MaterializeResult reports the two halves of a materialization
// separately: the parent job and the instance batch. The store gives no
// multi-row guarantee, so "parent created" and "children created" are
// never treated as one atomic outcome.
type MaterializeResult struct {
	Job                models.Job              `json:"job"`
	Aggregates         []models.DailyAggregate `json:"aggregates"`
	Provenance         models.Provenance       `json:"provenance"`
	InstancesRequested int                     `json:"instances_requested"`
	InstancesCreated   int                     `json:"instances_created"`
	InstancesFailed    int                     `json:"instances_failed"`
	IdempotentReplay   bool                    `json:"idempotent_replay"`
	BatchErr           error                   `json:"-"`
}

// MaterializerService turns a contract's recurrence into persisted job
// rows: one parent job plus a batch of children, one per expanded date.
type MaterializerService struct {
	db          *database.Queries
	collections *CollectionService
	logger      *logger.Logger
	maxPerBatch int
}

func NewMaterializerService(db *database.Queries, collections *CollectionService, log *logger.Logger, maxPerBatch int) *MaterializerService {
	if maxPerBatch <= 0 || maxPerBatch > MaxInstancesPerContract {
		maxPerBatch = MaxInstancesPerContract
	}
	return &MaterializerService{
		db:          db,
		collections: collections,
		logger:      log,
		maxPerBatch: maxPerBatch,
	}
}

// Materialize creates the job rows for a contract. A repeated
// idempotency key returns the original job and writes nothing; the
// submit button being disabled client-side is not a guarantee.
func (m *MaterializerService) Materialize(ctx context.Context, contractID, idempotencyKey string) (MaterializeResult, error) {
	start := time.Now()

	contract, err := m.db.GetContract(ctx, contractID)
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("load contract: %w", err)
	}
	if err := contract.Rule.Validate(); err != nil {
		return MaterializeResult{}, err
	}

	property, err := m.db.GetProperty(ctx, contract.PropertyID)
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("load property: %w", err)
	}
	category, err := m.db.GetServiceCategory(ctx, contract.CategoryID)
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("load service category: %w", err)
	}

	if idempotencyKey != "" {
		if existing, found, err := m.db.FindJobByIdempotencyKey(ctx, idempotencyKey); err == nil && found {
			instances, _ := m.db.ListJobInstances(ctx, existing.ID)
			return MaterializeResult{
				Job:              existing,
				InstancesCreated: len(instances),
				IdempotentReplay: true,
			}, nil
		} else if err != nil {
			return MaterializeResult{}, err
		}
	}

	// Only categories with the capability consult the pickup calendar.
	var schedules []models.CollectionSchedule
	if category.TracksCollections {
		schedules = m.collections.ResolveSchedules(ctx, property.ID, property.Address, contract.MonitoredTypes)
	}

	aggregates := expandAggregates(contract.Rule, contract.StartDate,
		schedule.Window{MaxDates: m.maxPerBatch}, contract.ManualTask, schedules)

	parent := models.Job{
		ContractID:    contract.ID,
		PropertyID:    property.ID,
		Title:         fmt.Sprintf("%s - %s", category.Name, property.Address),
		Notes:         materializationNotes(aggregates, schedules),
		ScheduledDate: schedule.Day(contract.StartDate),
		Status:        models.JobStatusScheduled,
	}
	if len(aggregates) > 0 {
		parent.ScheduledDate = aggregates[0].Date
	}

	parent, err = m.db.CreateJob(ctx, parent)
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("create parent job: %w", err)
	}

	if idempotencyKey != "" {
		won, err := m.db.ClaimIdempotencyKey(ctx, idempotencyKey, parent.ID, idempotencyTTL)
		if err != nil {
			m.logger.Warn().Err(err).Str("job_id", parent.ID).Msg("Failed to claim idempotency key")
		} else if !won {
			// Raced with another submit that claimed the key after our
			// initial check; report theirs and leave ours childless.
			if existing, found, err := m.db.FindJobByIdempotencyKey(ctx, idempotencyKey); err == nil && found {
				instances, _ := m.db.ListJobInstances(ctx, existing.ID)
				return MaterializeResult{
					Job:              existing,
					InstancesCreated: len(instances),
					IdempotentReplay: true,
				}, nil
			}
		}
	}

	instances := buildInstances(parent.ID, aggregates)
	batch := m.db.InsertJobInstances(ctx, instances)

	m.logger.LogMaterialization(contract.ID, parent.ID, len(instances), batch.Created, batch.Failed, time.Since(start))

	// Parent creation succeeded regardless of how the batch went; a
	// partial batch failure is surfaced alongside, never instead.
	return MaterializeResult{
		Job:                parent,
		Aggregates:         aggregates,
		Provenance:         WorstProvenance(schedules),
		InstancesRequested: len(instances),
		InstancesCreated:   batch.Created,
		InstancesFailed:    batch.Failed,
		BatchErr:           batch.Err,
	}, nil
}

// buildInstances assigns contiguous 1-based sequence numbers and a
// human-readable summary per expanded date.
func buildInstances(baseJobID string, aggregates []models.DailyAggregate) []models.JobInstance {
	instances := make([]models.JobInstance, 0, len(aggregates))
	for i, agg := range aggregates {
		instances = append(instances, models.JobInstance{
			BaseJobID:           baseJobID,
			SequenceNumber:      i + 1,
			ScheduledDate:       agg.Date,
			TaskSummary:         fmt.Sprintf("%s: %s", agg.Weekday, strings.Join(agg.Tasks, "; ")),
			IsRecurringInstance: true,
		})
	}
	return instances
}

// materializationNotes summarizes the batch for the parent job's notes
// field, including the data-quality disclosure when the collection
// schedule did not come from a live lookup.
func materializationNotes(aggregates []models.DailyAggregate, schedules []models.CollectionSchedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recurring schedule: %d visit(s)", len(aggregates))
	if len(aggregates) > 0 {
		fmt.Fprintf(&b, ", %s through %s",
			aggregates[0].Date.Format("2006-01-02"),
			aggregates[len(aggregates)-1].Date.Format("2006-01-02"))
	}
	if p := WorstProvenance(schedules); len(schedules) > 0 && p != models.ProvenanceReal {
		fmt.Fprintf(&b, ". Collection calendar data is %s", p)
	}
	return b.String()
}
