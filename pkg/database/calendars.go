package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldops/core/pkg/models"
)

// UpsertCollectionCalendar caches a looked-up schedule for a property.
// Refreshes overwrite the previous row per collection type.
func (q *Queries) UpsertCollectionCalendar(ctx context.Context, propertyID string, cs models.CollectionSchedule) error {
	weekdays, err := json.Marshal(cs.PickupWeekdays)
	if err != nil {
		return fmt.Errorf("marshal pickup weekdays: %w", err)
	}

	_, err = q.pool.Exec(ctx, `
		INSERT INTO collection_calendars (property_id, collection_type, pickup_weekdays, provenance, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (property_id, collection_type) DO UPDATE
		SET pickup_weekdays = EXCLUDED.pickup_weekdays,
			provenance = EXCLUDED.provenance,
			fetched_at = EXCLUDED.fetched_at
	`, propertyID, string(cs.Type), weekdays, string(cs.Provenance), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert collection calendar: %w", err)
	}
	return nil
}

// GetCollectionCalendars returns the cached schedules for a property.
// The result order follows collection type name so repeated reads render
// identically.
func (q *Queries) GetCollectionCalendars(ctx context.Context, propertyID string) ([]models.CollectionSchedule, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT collection_type, pickup_weekdays, provenance
		FROM collection_calendars WHERE property_id = $1
		ORDER BY collection_type
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("query collection calendars: %w", err)
	}
	defer rows.Close()

	var schedules []models.CollectionSchedule
	for rows.Next() {
		var cs models.CollectionSchedule
		var ctype, provenance string
		var weekdays []byte
		if err := rows.Scan(&ctype, &weekdays, &provenance); err != nil {
			return nil, fmt.Errorf("scan collection calendar: %w", err)
		}
		cs.Type = models.CollectionType(ctype)
		cs.Provenance = models.Provenance(provenance)
		if err := json.Unmarshal(weekdays, &cs.PickupWeekdays); err != nil {
			return nil, fmt.Errorf("unmarshal pickup weekdays: %w", err)
		}
		schedules = append(schedules, cs)
	}
	return schedules, rows.Err()
}
