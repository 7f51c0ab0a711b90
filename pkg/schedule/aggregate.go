package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/fieldops/core/pkg/models"
)

// FallbackTask is emitted when a date has neither a manual task nor any
// collection prep. A visit date never carries an empty task list.
const FallbackTask = "general maintenance"

// DefaultManualTask labels manual-schedule work when the contract does
// not name its own.
const DefaultManualTask = "interior cleaning"

// Aggregate builds the consolidated task list for one expanded date.
//
// Order is a user-visible contract: the manual task comes first, then one
// prep task per collection type in the order the caller supplied to
// PrepByWeekday. Prep tasks name the pickup day, not the prep day, since
// that is what matters to the technician on site.
func Aggregate(date time.Time, manual models.ManualTaskSchedule, prepByDay map[time.Weekday][]models.CollectionType) models.DailyAggregate {
	date = Day(date)
	day := date.Weekday()

	var tasks []string
	if manual.Active(day) {
		label := manual.Label
		if label == "" {
			label = DefaultManualTask
		}
		tasks = append(tasks, label)
	}

	for _, ct := range prepByDay[day] {
		tasks = append(tasks, PrepTaskLabel(ct, day))
	}

	if len(tasks) == 0 {
		tasks = append(tasks, FallbackTask)
	}

	return models.DailyAggregate{
		Date:    date,
		Weekday: day.String(),
		Tasks:   tasks,
	}
}

// PrepTaskLabel formats the prep task for a collection type whose prep
// falls on the given weekday, e.g. "recycling prep (pickup monday)".
func PrepTaskLabel(ct models.CollectionType, prepDay time.Weekday) string {
	pickup := strings.ToLower(PickupWeekday(prepDay).String())
	return fmt.Sprintf("%s prep (pickup %s)", ct, pickup)
}

// AggregateAll runs Aggregate over an expanded date sequence. Both the
// preview projector and the job materializer consume this, which is what
// keeps the two from drifting apart.
func AggregateAll(dates []time.Time, manual models.ManualTaskSchedule, prepByDay map[time.Weekday][]models.CollectionType) []models.DailyAggregate {
	out := make([]models.DailyAggregate, 0, len(dates))
	for _, d := range dates {
		out = append(out, Aggregate(d, manual, prepByDay))
	}
	return out
}
