package services

import (
	"context"
	"time"

	"github.com/fieldops/core/pkg/models"
)

// PickupLookup resolves an address to its pickup weekdays per collection
// type. Satisfied by CalendarClient; fakes implement it in tests.
type PickupLookup interface {
	LookupPickupSchedule(ctx context.Context, address string) (map[models.CollectionType][]time.Weekday, error)
}
