// Package schedule is the recurrence and daily-task engine: it expands a
// recurrence rule into concrete dates, maps external pickup weekdays to
// prep weekdays, and aggregates the tasks due on each date. Every caller
// (preview, materialization, cron digests) goes through the same
// functions; nothing here performs I/O.
package schedule

import (
	"time"

	"github.com/fieldops/core/pkg/models"
)

// Window bounds an expansion beyond what the rule itself says.
//
// From is an inclusive lower bound: occurrences before it are dropped
// from the output but still count toward the rule's occurrence budget,
// so the sequence stays phase-locked to the start date. Until is an
// exclusive upper bound: a horizon of N days from today covers today
// through day N-1. Zero means no bound on either side. MaxDates caps
// how many dates are emitted; zero means no cap. The rule's own end
// condition always applies on top.
type Window struct {
	From     time.Time
	Until    time.Time
	MaxDates int
}

// PreviewWindow returns the window for a preview horizon of n days from
// now. The horizon counts from today, not from the rule's start date;
// the start date stays the expansion anchor.
func PreviewWindow(now time.Time, days int) Window {
	today := Day(now)
	return Window{From: today, Until: today.AddDate(0, 0, days)}
}

// Day truncates t to midnight in its own location. All expansion works
// on whole calendar dates.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Expand turns a recurrence rule into an ordered, deduplicated sequence
// of dates >= start, bounded by the rule's end condition and the window.
//
// An exhausted horizon, an end date before start, or a custom rule with
// an empty weekday set all yield an empty sequence, never an error. The
// rule must have passed Validate; expansion does not re-check intervals.
func Expand(rule models.RecurrenceRule, start time.Time, w Window) []time.Time {
	start = Day(start)

	// A rule with no end condition inside a boundless window would never
	// terminate. Callers always bound one side (preview horizon or the
	// materialization ceiling); refuse rather than spin.
	if rule.EndDate == nil && rule.MaxOccurrences <= 0 && w.Until.IsZero() && w.MaxDates <= 0 {
		return nil
	}

	var dates []time.Time
	var last time.Time
	occurrences := 0
	emit := func(d time.Time) bool {
		if rule.EndDate != nil && d.After(Day(*rule.EndDate)) {
			return false
		}
		if !w.Until.IsZero() && !d.Before(w.Until) {
			return false
		}
		if !last.IsZero() && last.Equal(d) {
			return true
		}
		last = d
		occurrences++
		// An occurrence before the window consumes the rule's budget
		// without being emitted; only emission is suppressed, never the
		// anchoring on the start date.
		if w.From.IsZero() || !d.Before(w.From) {
			dates = append(dates, d)
		}
		if rule.MaxOccurrences > 0 && occurrences >= rule.MaxOccurrences {
			return false
		}
		if w.MaxDates > 0 && len(dates) >= w.MaxDates {
			return false
		}
		return true
	}

	switch rule.Frequency {
	case models.FrequencyDaily:
		for d := start; ; d = d.AddDate(0, 0, rule.Interval) {
			if !emit(d) {
				break
			}
		}
	case models.FrequencyWeekly:
		for d := start; ; d = d.AddDate(0, 0, rule.Interval*7) {
			if !emit(d) {
				break
			}
		}
	case models.FrequencyMonthly:
		for k := 0; ; k++ {
			if !emit(addMonthsClamped(start, k*rule.Interval)) {
				break
			}
		}
	case models.FrequencyCustom:
		if len(rule.Weekdays) == 0 {
			return nil
		}
		allowed := weekdaySet(rule.Weekdays)
		for d := start; ; d = d.AddDate(0, 0, 1) {
			if rule.EndDate != nil && d.After(Day(*rule.EndDate)) {
				break
			}
			if !w.Until.IsZero() && !d.Before(w.Until) {
				break
			}
			if !allowed[d.Weekday()] {
				continue
			}
			if !emit(d) {
				break
			}
		}
	}

	return dates
}

// addMonthsClamped advances by whole calendar months, clamping to the
// last day of the target month instead of letting Jan 31 + 1 month
// normalize into March.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func weekdaySet(days []time.Weekday) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}
