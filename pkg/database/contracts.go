package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fieldops/core/pkg/models"
	"github.com/fieldops/core/pkg/utils"
)

var ErrNotFound = errors.New("record not found")

// propertySlug returns the caller's slug or derives one from the
// address and borough.
func propertySlug(p models.Property) string {
	if p.Slug != "" {
		return p.Slug
	}
	return utils.GeneratePropertySlug(p.Address, p.Borough)
}

// categorySlug returns the caller's slug or derives one from the name.
func categorySlug(c models.ServiceCategory) string {
	if c.Slug != "" {
		return c.Slug
	}
	return utils.GenerateCategorySlug(c.Name)
}

// CreateProperty inserts a property row, deriving the slug when the
// caller left it empty.
func (q *Queries) CreateProperty(ctx context.Context, p models.Property) (models.Property, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Slug = propertySlug(p)
	p.CreatedAt = time.Now().UTC()

	_, err := q.pool.Exec(ctx, `
		INSERT INTO properties (id, slug, address, borough, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Slug, p.Address, p.Borough, p.Active, p.CreatedAt)
	if err != nil {
		return models.Property{}, fmt.Errorf("insert property: %w", err)
	}
	return p, nil
}

// GetProperty fetches a property by id.
func (q *Queries) GetProperty(ctx context.Context, id string) (models.Property, error) {
	var p models.Property
	err := q.pool.QueryRow(ctx, `
		SELECT id, slug, address, borough, active, created_at
		FROM properties WHERE id = $1
	`, id).Scan(&p.ID, &p.Slug, &p.Address, &p.Borough, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Property{}, ErrNotFound
	}
	if err != nil {
		return models.Property{}, fmt.Errorf("query property: %w", err)
	}
	return p, nil
}

// ListActiveProperties returns every property still under service.
func (q *Queries) ListActiveProperties(ctx context.Context) ([]models.Property, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, slug, address, borough, active, created_at
		FROM properties WHERE active ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	var props []models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(&p.ID, &p.Slug, &p.Address, &p.Borough, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

// GetServiceCategory fetches a category with its capability flags.
func (q *Queries) GetServiceCategory(ctx context.Context, id int32) (models.ServiceCategory, error) {
	var c models.ServiceCategory
	err := q.pool.QueryRow(ctx, `
		SELECT id, name, slug, tracks_collections
		FROM service_categories WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Slug, &c.TracksCollections)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ServiceCategory{}, ErrNotFound
	}
	if err != nil {
		return models.ServiceCategory{}, fmt.Errorf("query service category: %w", err)
	}
	return c, nil
}

// UpsertServiceCategory inserts or updates a category by slug, deriving
// the slug from the name when the caller left it empty.
func (q *Queries) UpsertServiceCategory(ctx context.Context, c models.ServiceCategory) (models.ServiceCategory, error) {
	c.Slug = categorySlug(c)
	err := q.pool.QueryRow(ctx, `
		INSERT INTO service_categories (name, slug, tracks_collections)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, tracks_collections = EXCLUDED.tracks_collections
		RETURNING id
	`, c.Name, c.Slug, c.TracksCollections).Scan(&c.ID)
	if err != nil {
		return models.ServiceCategory{}, fmt.Errorf("upsert service category: %w", err)
	}
	return c, nil
}

// CreateContract inserts a contract row.
func (q *Queries) CreateContract(ctx context.Context, c models.Contract) (models.Contract, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	weekdays, err := json.Marshal(c.Rule.Weekdays)
	if err != nil {
		return models.Contract{}, fmt.Errorf("marshal weekdays: %w", err)
	}
	manualWeekdays, err := json.Marshal(c.ManualTask.Weekdays)
	if err != nil {
		return models.Contract{}, fmt.Errorf("marshal manual weekdays: %w", err)
	}
	monitored, err := json.Marshal(c.MonitoredTypes)
	if err != nil {
		return models.Contract{}, fmt.Errorf("marshal monitored types: %w", err)
	}

	_, err = q.pool.Exec(ctx, `
		INSERT INTO contracts (id, property_id, category_id, frequency, interval, weekdays,
			end_date, max_occurrences, manual_label, manual_weekdays, monitored_types,
			start_date, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, c.ID, c.PropertyID, c.CategoryID, string(c.Rule.Frequency), c.Rule.Interval, weekdays,
		c.Rule.EndDate, c.Rule.MaxOccurrences, c.ManualTask.Label, manualWeekdays, monitored,
		c.StartDate, c.Active, c.CreatedAt)
	if err != nil {
		return models.Contract{}, fmt.Errorf("insert contract: %w", err)
	}
	return c, nil
}

// GetContract fetches a contract by id.
func (q *Queries) GetContract(ctx context.Context, id string) (models.Contract, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, property_id, category_id, frequency, interval, weekdays,
			end_date, max_occurrences, manual_label, manual_weekdays, monitored_types,
			start_date, active, created_at
		FROM contracts WHERE id = $1
	`, id)
	return scanContract(row)
}

// ListActiveContracts returns every active contract.
func (q *Queries) ListActiveContracts(ctx context.Context) ([]models.Contract, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, property_id, category_id, frequency, interval, weekdays,
			end_date, max_occurrences, manual_label, manual_weekdays, monitored_types,
			start_date, active, created_at
		FROM contracts WHERE active ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func scanContract(row pgx.Row) (models.Contract, error) {
	var c models.Contract
	var frequency string
	var weekdays, manualWeekdays, monitored []byte
	var endDate pgtype.Date

	err := row.Scan(&c.ID, &c.PropertyID, &c.CategoryID, &frequency, &c.Rule.Interval, &weekdays,
		&endDate, &c.Rule.MaxOccurrences, &c.ManualTask.Label, &manualWeekdays, &monitored,
		&c.StartDate, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Contract{}, ErrNotFound
	}
	if err != nil {
		return models.Contract{}, fmt.Errorf("scan contract: %w", err)
	}

	c.Rule.Frequency = models.Frequency(frequency)
	if endDate.Valid {
		d := endDate.Time
		c.Rule.EndDate = &d
	}
	if err := json.Unmarshal(weekdays, &c.Rule.Weekdays); err != nil {
		return models.Contract{}, fmt.Errorf("unmarshal weekdays: %w", err)
	}
	if err := json.Unmarshal(manualWeekdays, &c.ManualTask.Weekdays); err != nil {
		return models.Contract{}, fmt.Errorf("unmarshal manual weekdays: %w", err)
	}
	if err := json.Unmarshal(monitored, &c.MonitoredTypes); err != nil {
		return models.Contract{}, fmt.Errorf("unmarshal monitored types: %w", err)
	}
	return c, nil
}
