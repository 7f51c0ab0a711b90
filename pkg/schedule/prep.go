package schedule

import (
	"time"

	"github.com/fieldops/core/pkg/models"
)

// PrepWeekday maps an authority pickup weekday to the weekday prep work
// is done: the calendar day immediately before pickup. Pure arithmetic,
// independent of the current date.
func PrepWeekday(pickup time.Weekday) time.Weekday {
	return (pickup + 6) % 7
}

// PickupWeekday is the inverse of PrepWeekday, used when a prep task
// needs to name the pickup day it prepares for.
func PickupWeekday(prep time.Weekday) time.Weekday {
	return (prep + 1) % 7
}

// PrepByWeekday returns, for every weekday, the collection types whose
// prep work falls on it. Types keep the caller-supplied order; that
// order is what technicians read top to bottom in the task list.
func PrepByWeekday(schedules []models.CollectionSchedule) map[time.Weekday][]models.CollectionType {
	byDay := make(map[time.Weekday][]models.CollectionType, 7)
	for _, cs := range schedules {
		for _, pickup := range cs.PickupWeekdays {
			day := PrepWeekday(pickup)
			byDay[day] = append(byDay[day], cs.Type)
		}
	}
	return byDay
}
