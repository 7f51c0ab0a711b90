package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldops/core/pkg/database"
	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/services"
)

// DailyDigestJob previews tomorrow across every active contract and logs
// the consolidated workload. It runs the same preview path the console
// uses, so a digest that looks wrong means previews look wrong too.
type DailyDigestJob struct {
	db      *database.Queries
	preview *services.PreviewService
	logger  *logger.Logger
	now     func() time.Time
}

func NewDailyDigestJob(db *database.Queries, preview *services.PreviewService, log *logger.Logger) Job {
	return &DailyDigestJob{
		db:      db,
		preview: preview,
		logger:  log.WithJob("daily_digest"),
		now:     time.Now,
	}
}

func (j *DailyDigestJob) Name() string {
	return "daily_digest"
}

func (j *DailyDigestJob) Execute(ctx context.Context) error {
	contracts, err := j.db.ListActiveContracts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active contracts: %w", err)
	}

	tomorrow := j.now().AddDate(0, 0, 1)
	visits := 0
	tasks := 0
	failures := 0

	for _, c := range contracts {
		property, err := j.db.GetProperty(ctx, c.PropertyID)
		if err != nil {
			j.logger.Warn().Err(err).Str("contract_id", c.ID).Msg("Skipping contract without property")
			failures++
			continue
		}

		result, err := j.preview.Preview(ctx, services.PreviewRequest{
			Rule:           c.Rule,
			ManualTask:     c.ManualTask,
			MonitoredTypes: c.MonitoredTypes,
			PropertyID:     property.ID,
			Address:        property.Address,
			StartDate:      c.StartDate,
			HorizonDays:    7,
		})
		if err != nil {
			j.logger.Warn().Err(err).Str("contract_id", c.ID).Msg("Preview failed for contract")
			failures++
			continue
		}

		for _, agg := range result.Aggregates {
			if !sameDate(agg.Date, tomorrow) {
				continue
			}
			visits++
			tasks += len(agg.Tasks)
			j.logger.Debug().
				Str("contract_id", c.ID).
				Str("address", property.Address).
				Strs("tasks", agg.Tasks).
				Str("provenance", string(result.Provenance)).
				Msg("Visit scheduled tomorrow")
		}
	}

	j.logger.Info().
		Int("contracts", len(contracts)).
		Int("visits_tomorrow", visits).
		Int("tasks_tomorrow", tasks).
		Int("failures", failures).
		Msg("Daily digest completed")
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (j *DailyDigestJob) Schedule() string {
	return "0 5 * * *"
}
