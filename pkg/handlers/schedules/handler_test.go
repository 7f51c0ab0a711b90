package schedules

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fieldops/core/pkg/database"
	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/models"
	"github.com/fieldops/core/pkg/models/api"
	"github.com/fieldops/core/pkg/services"
)

type fakeLookup struct {
	schedules map[models.CollectionType][]time.Weekday
}

func (f *fakeLookup) LookupPickupSchedule(ctx context.Context, address string) (map[models.CollectionType][]time.Weekday, error) {
	if f.schedules == nil {
		return nil, services.ErrScheduleNotFound
	}
	return f.schedules, nil
}

func newTestHandler(lookup services.PickupLookup) *Handler {
	log := logger.New("test")
	queries := database.New(nil)
	collections := services.NewCollectionService(queries, lookup, log)
	preview := services.NewPreviewService(collections, log, 0)
	materializer := services.NewMaterializerService(queries, collections, log, 0)
	return NewHandler(queries, preview, materializer, log)
}

func TestPreview_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(&fakeLookup{})
	req := httptest.NewRequest(http.MethodGet, "/api/schedule/preview", nil)
	rec := httptest.NewRecorder()

	h.Preview(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", rec.Code)
	}
}

func TestPreview_InvalidBody(t *testing.T) {
	h := newTestHandler(&fakeLookup{})
	req := httptest.NewRequest(http.MethodPost, "/api/schedule/preview", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	h.Preview(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestPreview_ZeroIntervalRejected(t *testing.T) {
	h := newTestHandler(&fakeLookup{})
	body := `{"rule": {"frequency": "weekly", "interval": 0}, "horizon_days": 14}`
	req := httptest.NewRequest(http.MethodPost, "/api/schedule/preview", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Preview(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400 for zero interval", rec.Code)
	}
}

func TestPreview_WeeklyRule(t *testing.T) {
	h := newTestHandler(&fakeLookup{schedules: map[models.CollectionType][]time.Weekday{
		models.CollectionRecycling: {time.Monday},
	}})

	body := `{
		"rule": {"frequency": "weekly", "interval": 1},
		"monitored_types": ["recycling"],
		"address": "123 Graham Ave",
		"horizon_days": 14
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/schedule/preview", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Preview(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp api.PreviewResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if resp.HorizonDays != 14 {
		t.Errorf("HorizonDays = %d, want 14", resp.HorizonDays)
	}
	if resp.Count != len(resp.Aggregates) {
		t.Errorf("Count = %d but %d aggregates", resp.Count, len(resp.Aggregates))
	}
	if resp.Count != 2 {
		t.Errorf("Count = %d, want 2 weekly visits in a 14-day horizon", resp.Count)
	}
	if resp.Provenance != models.ProvenanceReal {
		t.Errorf("Provenance = %s, want real", resp.Provenance)
	}
	for _, agg := range resp.Aggregates {
		if len(agg.Tasks) == 0 {
			t.Error("Aggregate with empty task list leaked through")
		}
	}
}

func TestPreview_UnboundedCustomRuleEmptyResult(t *testing.T) {
	h := newTestHandler(&fakeLookup{})
	body := `{"rule": {"frequency": "custom", "weekdays": []}, "horizon_days": 30}`
	req := httptest.NewRequest(http.MethodPost, "/api/schedule/preview", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Preview(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200; an empty horizon is not an error", rec.Code)
	}

	var resp api.PreviewResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("Count = %d, want 0 scheduled visits", resp.Count)
	}
}

func TestMaterialize_RequiresContractID(t *testing.T) {
	h := newTestHandler(&fakeLookup{})
	req := httptest.NewRequest(http.MethodPost, "/api/contracts/materialize", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.Materialize(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestMaterialize_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(&fakeLookup{})
	req := httptest.NewRequest(http.MethodGet, "/api/contracts/materialize", nil)
	rec := httptest.NewRecorder()

	h.Materialize(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", rec.Code)
	}
}

func TestInstances_BadPath(t *testing.T) {
	h := newTestHandler(&fakeLookup{})

	for _, path := range []string{"/api/jobs/abc", "/api/contracts/abc/instances"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		h.Instances(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404 for malformed path", path, rec.Code)
		}
	}
}
