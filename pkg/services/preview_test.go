package services

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/models"
	"github.com/fieldops/core/pkg/schedule"
)

// 2025-06-02 is a Monday.
var testMonday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func newPreviewService(lookup PickupLookup) *PreviewService {
	svc := NewPreviewService(newCollectionService(lookup), logger.New("test"), 0)
	svc.now = func() time.Time { return testMonday }
	return svc
}

func TestNormalizeHorizon(t *testing.T) {
	tests := []struct {
		in       int
		fallback int
		want     int
	}{
		{in: 7, fallback: 30, want: 7},
		{in: 14, fallback: 30, want: 14},
		{in: 30, fallback: 30, want: 30},
		{in: 60, fallback: 30, want: 60},
		{in: 90, fallback: 30, want: 90},
		{in: 0, fallback: 30, want: 30},
		{in: 45, fallback: 30, want: 30},
		{in: -7, fallback: 30, want: 30},
		{in: 0, fallback: 7, want: 7},
		{in: 45, fallback: 90, want: 90},
		{in: 0, fallback: 13, want: 30},
	}
	for _, tt := range tests {
		if got := NormalizeHorizon(tt.in, tt.fallback); got != tt.want {
			t.Errorf("NormalizeHorizon(%d, %d) = %d, want %d", tt.in, tt.fallback, got, tt.want)
		}
	}
}

func TestPreview_ConfiguredDefaultHorizon(t *testing.T) {
	svc := NewPreviewService(newCollectionService(&fakeLookup{}), logger.New("test"), 7)
	svc.now = func() time.Time { return testMonday }

	result, err := svc.Preview(context.Background(), PreviewRequest{
		Rule:      models.RecurrenceRule{Frequency: models.FrequencyDaily, Interval: 1},
		StartDate: testMonday,
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if result.HorizonDays != 7 {
		t.Errorf("HorizonDays = %d, want the configured default 7", result.HorizonDays)
	}
	if len(result.Aggregates) != 7 {
		t.Errorf("Got %d aggregates, want 7 daily visits", len(result.Aggregates))
	}
}

func TestPreview_InvalidRuleRejected(t *testing.T) {
	svc := newPreviewService(&fakeLookup{})
	_, err := svc.Preview(context.Background(), PreviewRequest{
		Rule: models.RecurrenceRule{Frequency: models.FrequencyWeekly, Interval: 0},
	})
	if err == nil {
		t.Fatal("Expected error for zero interval")
	}
}

func TestPreview_EmptyHorizonIsNotAnError(t *testing.T) {
	svc := newPreviewService(&fakeLookup{})
	result, err := svc.Preview(context.Background(), PreviewRequest{
		Rule:        models.RecurrenceRule{Frequency: models.FrequencyCustom},
		HorizonDays: 14,
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(result.Aggregates) != 0 {
		t.Errorf("Expected no scheduled visits, got %d", len(result.Aggregates))
	}
}

func TestPreview_WeeklyTwoMondays(t *testing.T) {
	svc := newPreviewService(&fakeLookup{})
	result, err := svc.Preview(context.Background(), PreviewRequest{
		Rule:        models.RecurrenceRule{Frequency: models.FrequencyWeekly, Interval: 1},
		StartDate:   testMonday,
		HorizonDays: 14,
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(result.Aggregates) != 2 {
		t.Fatalf("Got %d aggregates, want 2", len(result.Aggregates))
	}
	for i, agg := range result.Aggregates {
		if agg.Weekday != "Monday" {
			t.Errorf("Aggregate %d weekday = %s, want Monday", i, agg.Weekday)
		}
		// Every date carries visible work even with nothing scheduled.
		if !reflect.DeepEqual(agg.Tasks, []string{schedule.FallbackTask}) {
			t.Errorf("Aggregate %d tasks = %v, want fallback only", i, agg.Tasks)
		}
	}
}

func TestPreview_CarriesProvenance(t *testing.T) {
	svc := newPreviewService(&fakeLookup{err: ErrScheduleNotFound})
	result, err := svc.Preview(context.Background(), PreviewRequest{
		Rule:           models.RecurrenceRule{Frequency: models.FrequencyDaily, Interval: 1},
		MonitoredTypes: []models.CollectionType{models.CollectionRefuse},
		Address:        "123 Graham Ave",
		StartDate:      testMonday,
		HorizonDays:    7,
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if result.Provenance != models.ProvenanceSimulated {
		t.Errorf("Provenance = %s, want simulated", result.Provenance)
	}
}

func TestPreview_MatchesSharedEngineOutput(t *testing.T) {
	// The preview is a dry run of materialization: its aggregates must be
	// exactly what the shared expansion/aggregation path yields.
	lookup := &fakeLookup{schedules: map[models.CollectionType][]time.Weekday{
		models.CollectionRecycling: {time.Monday},
	}}
	svc := newPreviewService(lookup)

	rule := models.RecurrenceRule{
		Frequency: models.FrequencyCustom,
		Weekdays:  []time.Weekday{time.Sunday, time.Wednesday},
	}
	manual := models.ManualTaskSchedule{Weekdays: []time.Weekday{time.Wednesday}}
	types := []models.CollectionType{models.CollectionRecycling}

	result, err := svc.Preview(context.Background(), PreviewRequest{
		Rule:           rule,
		ManualTask:     manual,
		MonitoredTypes: types,
		Address:        "123 Graham Ave",
		StartDate:      testMonday,
		HorizonDays:    30,
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	schedules := newCollectionService(lookup).ResolveSchedules(context.Background(), "", "123 Graham Ave", types)
	want := expandAggregates(rule, testMonday, schedule.PreviewWindow(testMonday, 30), manual, schedules)

	if !reflect.DeepEqual(result.Aggregates, want) {
		t.Errorf("Preview diverged from shared engine output.\n got %+v\nwant %+v", result.Aggregates, want)
	}
}

func TestPreview_PastStartKeepsMaterializedPhase(t *testing.T) {
	// A contract anchored on a Wednesday weeks before today must preview
	// the same Wednesday cadence the materializer persists, never a
	// sequence re-anchored on today's weekday.
	svc := newPreviewService(&fakeLookup{})
	start := time.Date(2025, 5, 21, 0, 0, 0, 0, time.UTC) // Wednesday
	rule := models.RecurrenceRule{Frequency: models.FrequencyWeekly, Interval: 1}

	result, err := svc.Preview(context.Background(), PreviewRequest{
		Rule:        rule,
		StartDate:   start,
		HorizonDays: 14,
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	// The materializer's expansion for the same contract, cut to the
	// preview horizon.
	today := schedule.Day(testMonday)
	horizonEnd := today.AddDate(0, 0, 14)
	var want []time.Time
	for _, d := range schedule.Expand(rule, start, schedule.Window{MaxDates: MaxInstancesPerContract}) {
		if !d.Before(today) && d.Before(horizonEnd) {
			want = append(want, d)
		}
	}

	if len(result.Aggregates) != len(want) {
		t.Fatalf("Got %d aggregates, want %d", len(result.Aggregates), len(want))
	}
	for i, agg := range result.Aggregates {
		if !agg.Date.Equal(want[i]) {
			t.Errorf("Aggregate %d date = %s, want %s", i, agg.Date, want[i])
		}
		if agg.Date.Weekday() != time.Wednesday {
			t.Errorf("Aggregate %d falls on %s, want Wednesday", i, agg.Date.Weekday())
		}
	}
	wednesdays := []time.Time{
		time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
	}
	if len(result.Aggregates) != 2 ||
		!result.Aggregates[0].Date.Equal(wednesdays[0]) ||
		!result.Aggregates[1].Date.Equal(wednesdays[1]) {
		t.Errorf("Aggregate dates = %v, want %v", result.Aggregates, wednesdays)
	}
}

func TestBuildInstances_SequenceNumbers(t *testing.T) {
	aggregates := []models.DailyAggregate{
		{Date: testMonday, Weekday: "Monday", Tasks: []string{"general maintenance"}},
		{Date: testMonday.AddDate(0, 0, 7), Weekday: "Monday", Tasks: []string{"general maintenance"}},
		{Date: testMonday.AddDate(0, 0, 14), Weekday: "Monday", Tasks: []string{"interior cleaning", "refuse prep (pickup tuesday)"}},
	}

	instances := buildInstances("job-1", aggregates)
	if len(instances) != 3 {
		t.Fatalf("Got %d instances, want 3", len(instances))
	}
	for i, inst := range instances {
		if inst.SequenceNumber != i+1 {
			t.Errorf("Instance %d sequence = %d, want %d", i, inst.SequenceNumber, i+1)
		}
		if inst.BaseJobID != "job-1" {
			t.Errorf("Instance %d base job = %s", i, inst.BaseJobID)
		}
		if !inst.IsRecurringInstance {
			t.Errorf("Instance %d not marked recurring", i)
		}
		if !inst.ScheduledDate.Equal(aggregates[i].Date) {
			t.Errorf("Instance %d date = %s, want %s", i, inst.ScheduledDate, aggregates[i].Date)
		}
	}
	if instances[2].TaskSummary != "Monday: interior cleaning; refuse prep (pickup tuesday)" {
		t.Errorf("Task summary = %q", instances[2].TaskSummary)
	}
}

func TestMaterializationNotes_DisclosesDegradedData(t *testing.T) {
	aggregates := []models.DailyAggregate{
		{Date: testMonday, Weekday: "Monday", Tasks: []string{"general maintenance"}},
	}
	schedules := []models.CollectionSchedule{{Type: models.CollectionRefuse, Provenance: models.ProvenanceSimulated}}

	notes := materializationNotes(aggregates, schedules)
	if want := "Recurring schedule: 1 visit(s), 2025-06-02 through 2025-06-02. Collection calendar data is simulated"; notes != want {
		t.Errorf("Notes = %q, want %q", notes, want)
	}

	// Real data needs no disclosure.
	schedules[0].Provenance = models.ProvenanceReal
	if notes := materializationNotes(aggregates, schedules); notes != "Recurring schedule: 1 visit(s), 2025-06-02 through 2025-06-02" {
		t.Errorf("Notes = %q, unexpected disclosure for real data", notes)
	}
}
