package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fieldops/core/internal/config"
	"github.com/fieldops/core/pkg/models"
)

// ErrScheduleNotFound is returned when the authority has no calendar for
// an address. Callers are expected to fall back, not fail.
var ErrScheduleNotFound = errors.New("no collection schedule for address")

// CalendarClient talks to the external waste-collection calendar
// service. The authority endpoint is flaky, so every call goes through a
// circuit breaker; an open breaker surfaces as an ordinary lookup error
// and the caller degrades to cached or synthetic data.
type CalendarClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// calendarResponse is the authority's wire format: weekday names per
// collection type.
type calendarResponse struct {
	Address   string              `json:"address"`
	Schedules map[string][]string `json:"schedules"`
}

func NewCalendarClient(cfg *config.Config) *CalendarClient {
	return &CalendarClient{
		baseURL: cfg.Calendar.BaseURL,
		apiKey:  cfg.Calendar.APIKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.Calendar.Timeout) * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "collection-calendar",
			Timeout: 60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// LookupPickupSchedule resolves an address to its weekly pickup weekdays
// per collection type. A missing address returns ErrScheduleNotFound.
func (c *CalendarClient) LookupPickupSchedule(ctx context.Context, address string) (map[models.CollectionType][]time.Weekday, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, address)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[models.CollectionType][]time.Weekday), nil
}

func (c *CalendarClient) fetch(ctx context.Context, address string) (map[models.CollectionType][]time.Weekday, error) {
	u := fmt.Sprintf("%s/calendars?address=%s", c.baseURL, url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrScheduleNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar API returned status %d", resp.StatusCode)
	}

	var result calendarResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Schedules) == 0 {
		return nil, ErrScheduleNotFound
	}

	schedules := make(map[models.CollectionType][]time.Weekday, len(result.Schedules))
	for ctype, days := range result.Schedules {
		weekdays, err := parseWeekdays(days)
		if err != nil {
			return nil, fmt.Errorf("collection type %q: %w", ctype, err)
		}
		schedules[models.CollectionType(strings.ToLower(ctype))] = weekdays
	}
	return schedules, nil
}

// weekdayNames is the single canonical name table; every weekday parse
// in the codebase goes through it.
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	weekdays := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		weekdays = append(weekdays, day)
	}
	return weekdays, nil
}
