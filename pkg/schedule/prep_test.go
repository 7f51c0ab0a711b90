package schedule

import (
	"testing"
	"time"

	"github.com/fieldops/core/pkg/models"
)

func TestPrepWeekday(t *testing.T) {
	tests := []struct {
		pickup time.Weekday
		want   time.Weekday
	}{
		{pickup: time.Monday, want: time.Sunday},
		{pickup: time.Tuesday, want: time.Monday},
		{pickup: time.Sunday, want: time.Saturday},
		{pickup: time.Saturday, want: time.Friday},
	}

	for _, tt := range tests {
		if got := PrepWeekday(tt.pickup); got != tt.want {
			t.Errorf("PrepWeekday(%s) = %s, want %s", tt.pickup, got, tt.want)
		}
	}
}

func TestPrepWeekday_Bijection(t *testing.T) {
	seen := make(map[time.Weekday]bool)
	for d := time.Sunday; d <= time.Saturday; d++ {
		prep := PrepWeekday(d)
		if seen[prep] {
			t.Errorf("PrepWeekday maps two pickup days onto %s", prep)
		}
		seen[prep] = true

		if back := PickupWeekday(prep); back != d {
			t.Errorf("PickupWeekday(PrepWeekday(%s)) = %s, want round-trip", d, back)
		}
	}
	if len(seen) != 7 {
		t.Errorf("PrepWeekday covers %d weekdays, want 7", len(seen))
	}
}

func TestPrepByWeekday(t *testing.T) {
	schedules := []models.CollectionSchedule{
		{Type: models.CollectionRefuse, PickupWeekdays: []time.Weekday{time.Monday, time.Thursday}},
		{Type: models.CollectionRecycling, PickupWeekdays: []time.Weekday{time.Monday}},
		{Type: models.CollectionOrganics, PickupWeekdays: []time.Weekday{time.Wednesday}},
	}

	byDay := PrepByWeekday(schedules)

	// Monday pickups prep on Sunday, caller order preserved.
	sunday := byDay[time.Sunday]
	if len(sunday) != 2 || sunday[0] != models.CollectionRefuse || sunday[1] != models.CollectionRecycling {
		t.Errorf("Sunday prep = %v, want [refuse recycling]", sunday)
	}
	if got := byDay[time.Wednesday]; len(got) != 1 || got[0] != models.CollectionRefuse {
		t.Errorf("Wednesday prep = %v, want [refuse]", got)
	}
	if got := byDay[time.Tuesday]; len(got) != 1 || got[0] != models.CollectionOrganics {
		t.Errorf("Tuesday prep = %v, want [organics]", got)
	}
	if got := byDay[time.Friday]; len(got) != 0 {
		t.Errorf("Friday prep = %v, want none", got)
	}
}
