package schedules

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fieldops/core/pkg/database"
	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/models"
	"github.com/fieldops/core/pkg/models/api"
	"github.com/fieldops/core/pkg/services"
)

// Handler exposes the scheduling engine to the console: previews,
// materialization, and instance listings.
type Handler struct {
	queries      *database.Queries
	preview      *services.PreviewService
	materializer *services.MaterializerService
	logger       *logger.Logger
}

func NewHandler(queries *database.Queries, preview *services.PreviewService, materializer *services.MaterializerService, log *logger.Logger) *Handler {
	return &Handler{
		queries:      queries,
		preview:      preview,
		materializer: materializer,
		logger:       log,
	}
}

// Preview handles POST /api/schedule/preview. The body carries the
// recurrence rule and the manual-task weekdays as two independent sets.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req services.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.preview.Preview(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInterval) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("action", "preview_failed").Msg("Preview failed")
		writeError(w, http.StatusInternalServerError, "preview failed")
		return
	}

	writeJSON(w, http.StatusOK, api.PreviewResponse{
		Aggregates:  result.Aggregates,
		Provenance:  result.Provenance,
		HorizonDays: result.HorizonDays,
		Count:       len(result.Aggregates),
	})

	h.logger.Debug().
		Str("action", "preview").
		Int("dates", len(result.Aggregates)).
		Int("horizon_days", result.HorizonDays).
		Dur("duration", time.Since(start)).
		Msg("Schedule preview served")
}

type materializeRequest struct {
	ContractID     string `json:"contract_id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Materialize handles POST /api/contracts/materialize. A replayed
// idempotency key returns the originally created job with 200 instead of
// creating a second batch.
func (h *Handler) Materialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req materializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ContractID == "" {
		writeError(w, http.StatusBadRequest, "contract_id is required")
		return
	}

	result, err := h.materializer.Materialize(r.Context(), req.ContractID, req.IdempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			writeError(w, http.StatusNotFound, "contract not found")
		case errors.Is(err, models.ErrInvalidInterval):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("action", "materialize_failed").
				Str("contract_id", req.ContractID).Msg("Materialization failed")
			writeError(w, http.StatusInternalServerError, "materialization failed")
		}
		return
	}

	resp := api.MaterializeResponse{
		Job:                result.Job,
		Aggregates:         result.Aggregates,
		Provenance:         result.Provenance,
		InstancesRequested: result.InstancesRequested,
		InstancesCreated:   result.InstancesCreated,
		InstancesFailed:    result.InstancesFailed,
		IdempotentReplay:   result.IdempotentReplay,
	}
	if result.BatchErr != nil {
		resp.BatchError = result.BatchErr.Error()
	}

	status := http.StatusCreated
	if result.IdempotentReplay {
		status = http.StatusOK
	}
	// A partial batch failure still reports the created parent; the
	// caller sees both outcomes in one response.
	writeJSON(w, status, resp)
}

// Instances handles GET /api/jobs/{jobID}/instances, listing the
// materialized children of a parent job.
func (h *Handler) Instances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Path shape: /api/jobs/{jobID}/instances
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[1] != "jobs" || parts[3] != "instances" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	jobID := parts[2]

	if _, err := h.queries.GetJob(r.Context(), jobID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error().Err(err).Str("action", "instances_failed").Msg("Failed to load job")
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	instances, err := h.queries.ListJobInstances(r.Context(), jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("action", "instances_failed").Msg("Failed to list instances")
		writeError(w, http.StatusInternalServerError, "failed to list instances")
		return
	}

	writeJSON(w, http.StatusOK, api.InstancesResponse{
		JobID:     jobID,
		Instances: instances,
		Count:     len(instances),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.Response{Success: false, Message: message})
}
