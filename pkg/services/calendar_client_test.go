package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldops/core/internal/config"
	"github.com/fieldops/core/pkg/models"
)

func newTestClient(serverURL string) *CalendarClient {
	cfg := config.Load()
	cfg.Calendar.BaseURL = serverURL
	cfg.Calendar.Timeout = 5
	return NewCalendarClient(cfg)
}

func TestCalendarClient_LookupPickupSchedule(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse string
		serverStatus   int
		wantErr        bool
		wantNotFound   bool
		wantTypes      int
	}{
		{
			name: "successful response",
			serverResponse: `{
				"address": "123 Graham Ave",
				"schedules": {
					"refuse": ["monday", "thursday"],
					"recycling": ["monday"],
					"organics": ["wednesday"]
				}
			}`,
			serverStatus: http.StatusOK,
			wantTypes:    3,
		},
		{
			name:           "address not found",
			serverResponse: `{"error": "not found"}`,
			serverStatus:   http.StatusNotFound,
			wantErr:        true,
			wantNotFound:   true,
		},
		{
			name:           "empty schedule map treated as not found",
			serverResponse: `{"address": "1 Empty St", "schedules": {}}`,
			serverStatus:   http.StatusOK,
			wantErr:        true,
			wantNotFound:   true,
		},
		{
			name:           "HTTP error",
			serverResponse: "",
			serverStatus:   http.StatusInternalServerError,
			wantErr:        true,
		},
		{
			name:           "invalid JSON",
			serverResponse: "invalid json",
			serverStatus:   http.StatusOK,
			wantErr:        true,
		},
		{
			name:           "unknown weekday name",
			serverResponse: `{"address": "x", "schedules": {"refuse": ["someday"]}}`,
			serverStatus:   http.StatusOK,
			wantErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/calendars" {
					t.Errorf("Expected path /calendars, got %s", r.URL.Path)
				}
				if r.URL.Query().Get("address") == "" {
					t.Error("Expected address query parameter")
				}
				w.WriteHeader(tt.serverStatus)
				_, _ = w.Write([]byte(tt.serverResponse))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			schedules, err := client.LookupPickupSchedule(context.Background(), "123 Graham Ave")

			if (err != nil) != tt.wantErr {
				t.Fatalf("LookupPickupSchedule() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantNotFound && !errors.Is(err, ErrScheduleNotFound) {
				t.Errorf("Expected ErrScheduleNotFound, got %v", err)
			}
			if err != nil {
				return
			}
			if len(schedules) != tt.wantTypes {
				t.Errorf("Got %d collection types, want %d", len(schedules), tt.wantTypes)
			}
			refuse := schedules[models.CollectionRefuse]
			if len(refuse) != 2 || refuse[0] != time.Monday || refuse[1] != time.Thursday {
				t.Errorf("Refuse weekdays = %v, want [Monday Thursday]", refuse)
			}
		})
	}
}

func TestCalendarClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 10; i++ {
		_, _ = client.LookupPickupSchedule(context.Background(), "123 Graham Ave")
	}

	// After five consecutive failures the breaker stops calling out.
	if hits >= 10 {
		t.Errorf("Breaker never opened: server saw %d requests", hits)
	}
}
