package services

import (
	"context"
	"time"

	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/models"
	"github.com/fieldops/core/pkg/schedule"
)

// Preview horizons selectable in the console, in days.
const DefaultPreviewHorizon = 30

var previewHorizons = map[int]bool{7: true, 14: true, 30: true, 60: true, 90: true}

// NormalizeHorizon clamps a requested horizon to the selectable set,
// falling back to the given default. A default outside the set falls
// back once more to DefaultPreviewHorizon.
func NormalizeHorizon(days, fallback int) int {
	if previewHorizons[days] {
		return days
	}
	if previewHorizons[fallback] {
		return fallback
	}
	return DefaultPreviewHorizon
}

// PreviewRequest carries everything a preview needs; the recurrence rule
// and the manual-task weekday set arrive as two independent inputs and
// are only combined inside the aggregator.
type PreviewRequest struct {
	Rule           models.RecurrenceRule     `json:"rule"`
	ManualTask     models.ManualTaskSchedule `json:"manual_task"`
	MonitoredTypes []models.CollectionType   `json:"monitored_types"`
	PropertyID     string                    `json:"property_id,omitempty"`
	Address        string                    `json:"address"`
	StartDate      time.Time                 `json:"start_date"`
	HorizonDays    int                       `json:"horizon_days"`
}

// PreviewResult is the read-only projection of what materialization
// would produce over the horizon.
type PreviewResult struct {
	Aggregates  []models.DailyAggregate `json:"aggregates"`
	Provenance  models.Provenance       `json:"provenance"`
	HorizonDays int                     `json:"horizon_days"`
}

// PreviewService renders upcoming visits without writing anything. It
// runs the exact expansion and aggregation the materializer runs; the
// preview being a faithful dry run of materialization is a correctness
// requirement, not a style choice.
type PreviewService struct {
	collections    *CollectionService
	logger         *logger.Logger
	defaultHorizon int
	now            func() time.Time
}

func NewPreviewService(collections *CollectionService, log *logger.Logger, defaultHorizon int) *PreviewService {
	if !previewHorizons[defaultHorizon] {
		defaultHorizon = DefaultPreviewHorizon
	}
	return &PreviewService{
		collections:    collections,
		logger:         log,
		defaultHorizon: defaultHorizon,
		now:            time.Now,
	}
}

// Preview expands the rule over the horizon and aggregates each date's
// tasks. An empty result is normal ("no scheduled visits"), not an
// error.
func (s *PreviewService) Preview(ctx context.Context, req PreviewRequest) (PreviewResult, error) {
	if err := req.Rule.Validate(); err != nil {
		return PreviewResult{}, err
	}

	horizon := NormalizeHorizon(req.HorizonDays, s.defaultHorizon)
	now := s.now()

	// A past start date stays the expansion anchor so the preview keeps
	// the exact weekday phase materialization persists; dates already
	// behind today are dropped by the window, never re-anchored.
	start := req.StartDate
	if start.IsZero() {
		start = now
	}

	schedules := s.collections.ResolveSchedules(ctx, req.PropertyID, req.Address, req.MonitoredTypes)
	aggregates := expandAggregates(req.Rule, start, schedule.PreviewWindow(now, horizon), req.ManualTask, schedules)

	return PreviewResult{
		Aggregates:  aggregates,
		Provenance:  WorstProvenance(schedules),
		HorizonDays: horizon,
	}, nil
}

// expandAggregates is the one path from a rule to per-date task lists.
// Preview and materialization both call it, which is what keeps the two
// from drifting apart.
func expandAggregates(rule models.RecurrenceRule, start time.Time, w schedule.Window, manual models.ManualTaskSchedule, schedules []models.CollectionSchedule) []models.DailyAggregate {
	dates := schedule.Expand(rule, start, w)
	prepByDay := schedule.PrepByWeekday(schedules)
	return schedule.AggregateAll(dates, manual, prepByDay)
}
