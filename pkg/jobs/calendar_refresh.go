package jobs

import (
	"context"
	"fmt"

	"github.com/fieldops/core/pkg/database"
	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/models"
	"github.com/fieldops/core/pkg/services"
)

// monitoredTypes is every stream the refresh keeps warm in the cache;
// contracts narrow this down to what they actually track.
var monitoredTypes = []models.CollectionType{
	models.CollectionRefuse,
	models.CollectionRecycling,
	models.CollectionOrganics,
	models.CollectionBulk,
}

// CalendarRefreshJob re-resolves the collection calendar for every
// active property so the cache stays close to the authority's data and
// fallbacks stay fresh.
type CalendarRefreshJob struct {
	db          *database.Queries
	collections *services.CollectionService
	logger      *logger.Logger
}

func NewCalendarRefreshJob(db *database.Queries, collections *services.CollectionService, log *logger.Logger) Job {
	return &CalendarRefreshJob{
		db:          db,
		collections: collections,
		logger:      log.WithJob("calendar_refresh"),
	}
}

func (j *CalendarRefreshJob) Name() string {
	return "calendar_refresh"
}

func (j *CalendarRefreshJob) Execute(ctx context.Context) error {
	properties, err := j.db.ListActiveProperties(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active properties: %w", err)
	}

	refreshed := 0
	degraded := 0
	for _, p := range properties {
		schedules := j.collections.ResolveSchedules(ctx, p.ID, p.Address, monitoredTypes)
		if services.WorstProvenance(schedules) != models.ProvenanceReal {
			degraded++
			continue
		}
		refreshed++
	}

	j.logger.Info().
		Int("properties", len(properties)).
		Int("refreshed", refreshed).
		Int("degraded", degraded).
		Msg("Calendar refresh completed")
	return nil
}

func (j *CalendarRefreshJob) Schedule() string {
	// Daily before the field day starts; authority data changes rarely.
	return "0 4 * * *"
}
