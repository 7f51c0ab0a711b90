package services

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/fieldops/core/pkg/database"
	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/models"
)

// CollectionService resolves the collection schedules for a property,
// falling back through cached and synthetic data when the authority
// lookup is unavailable. A lookup failure never reaches the caller; it
// only degrades the provenance tag on the returned schedules.
type CollectionService struct {
	db     *database.Queries
	lookup PickupLookup
	logger *logger.Logger
}

func NewCollectionService(db *database.Queries, lookup PickupLookup, log *logger.Logger) *CollectionService {
	return &CollectionService{
		db:     db,
		lookup: lookup,
		logger: log,
	}
}

// ResolveSchedules returns one schedule per wanted collection type, in
// the wanted order. That order flows through to the task list, so it is
// preserved everywhere. propertyID may be empty for ad-hoc previews, in
// which case the cache is skipped.
func (s *CollectionService) ResolveSchedules(ctx context.Context, propertyID, address string, wanted []models.CollectionType) []models.CollectionSchedule {
	if len(wanted) == 0 {
		return nil
	}
	start := time.Now()

	live, err := s.lookup.LookupPickupSchedule(ctx, address)
	if err == nil {
		schedules := make([]models.CollectionSchedule, 0, len(wanted))
		for _, ct := range wanted {
			days, ok := live[ct]
			if !ok {
				// Authority knows the address but not this stream.
				schedules = append(schedules, syntheticSchedule(address, ct))
				continue
			}
			cs := models.CollectionSchedule{
				Type:           ct,
				PickupWeekdays: days,
				Provenance:     models.ProvenanceReal,
			}
			schedules = append(schedules, cs)
			s.cacheSchedule(ctx, propertyID, cs)
		}
		s.logger.LogCalendarLookup(address, string(models.ProvenanceReal), len(schedules), time.Since(start), nil)
		return schedules
	}

	// Live lookup failed or the breaker is open: serve the cached copy of
	// an earlier real answer when there is one.
	if propertyID != "" {
		if cached, cacheErr := s.db.GetCollectionCalendars(ctx, propertyID); cacheErr == nil && len(cached) > 0 {
			schedules := fromCache(address, cached, wanted)
			s.logger.LogCalendarLookup(address, string(models.ProvenanceSampled), len(schedules), time.Since(start), err)
			return schedules
		}
	}

	schedules := make([]models.CollectionSchedule, 0, len(wanted))
	for _, ct := range wanted {
		schedules = append(schedules, syntheticSchedule(address, ct))
	}
	s.logger.LogCalendarLookup(address, string(models.ProvenanceSimulated), len(schedules), time.Since(start), err)
	return schedules
}

func (s *CollectionService) cacheSchedule(ctx context.Context, propertyID string, cs models.CollectionSchedule) {
	if propertyID == "" {
		return
	}
	if err := s.db.UpsertCollectionCalendar(ctx, propertyID, cs); err != nil {
		s.logger.Warn().
			Err(err).
			Str("property_id", propertyID).
			Str("collection_type", string(cs.Type)).
			Msg("Failed to cache collection calendar")
	}
}

// fromCache picks the wanted types out of the cached rows, re-tagged as
// sampled. Types never cached get the synthetic fallback.
func fromCache(address string, cached []models.CollectionSchedule, wanted []models.CollectionType) []models.CollectionSchedule {
	byType := make(map[models.CollectionType]models.CollectionSchedule, len(cached))
	for _, cs := range cached {
		byType[cs.Type] = cs
	}

	schedules := make([]models.CollectionSchedule, 0, len(wanted))
	for _, ct := range wanted {
		cs, ok := byType[ct]
		if !ok {
			schedules = append(schedules, syntheticSchedule(address, ct))
			continue
		}
		cs.Provenance = models.ProvenanceSampled
		schedules = append(schedules, cs)
	}
	return schedules
}

// syntheticSchedule builds a deterministic stand-in schedule for one
// collection type. Hashing the address keeps repeated previews of the
// same property stable.
func syntheticSchedule(address string, ct models.CollectionType) models.CollectionSchedule {
	h := fnv.New32a()
	_, _ = h.Write([]byte(address))
	_, _ = h.Write([]byte(ct))
	base := time.Weekday(h.Sum32() % 7)

	days := []time.Weekday{base}
	if ct == models.CollectionRefuse {
		// Refuse is typically picked up twice a week.
		days = append(days, (base+3)%7)
	}
	return models.CollectionSchedule{
		Type:           ct,
		PickupWeekdays: days,
		Provenance:     models.ProvenanceSimulated,
	}
}

// WorstProvenance reports the lowest data quality across schedules, for
// the single disclosure line shown in previews and job notes.
func WorstProvenance(schedules []models.CollectionSchedule) models.Provenance {
	rank := map[models.Provenance]int{
		models.ProvenanceReal:      0,
		models.ProvenanceSampled:   1,
		models.ProvenanceSimulated: 2,
	}
	worst := models.ProvenanceReal
	for _, cs := range schedules {
		if rank[cs.Provenance] > rank[worst] {
			worst = cs.Provenance
		}
	}
	return worst
}
