package contracts

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fieldops/core/pkg/database"
	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/models"
	"github.com/fieldops/core/pkg/models/api"
)

// Handler owns the write side of contract onboarding: the properties
// under service, the service categories, and the contracts binding the
// two. Materialization and previews read what is created here.
type Handler struct {
	queries *database.Queries
	logger  *logger.Logger
}

func NewHandler(queries *database.Queries, log *logger.Logger) *Handler {
	return &Handler{
		queries: queries,
		logger:  log,
	}
}

type createPropertyRequest struct {
	Address string `json:"address"`
	Borough string `json:"borough,omitempty"`
	Slug    string `json:"slug,omitempty"`
}

// CreateProperty handles POST /api/properties. The slug is derived from
// the address and borough unless the caller supplies one.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	property, err := h.queries.CreateProperty(r.Context(), models.Property{
		Slug:    req.Slug,
		Address: req.Address,
		Borough: req.Borough,
		Active:  true,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("action", "create_property_failed").
			Str("address", req.Address).Msg("Failed to create property")
		writeError(w, http.StatusInternalServerError, "failed to create property")
		return
	}

	h.logger.Info().
		Str("action", "property_created").
		Str("property_id", property.ID).
		Str("slug", property.Slug).
		Msg("Property created")
	writeJSON(w, http.StatusCreated, property)
}

type upsertCategoryRequest struct {
	Name              string `json:"name"`
	Slug              string `json:"slug,omitempty"`
	TracksCollections bool   `json:"tracks_collections"`
}

// UpsertCategory handles POST /api/categories. Categories are keyed by
// slug, so re-posting the same category updates it in place.
func (h *Handler) UpsertCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req upsertCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	category, err := h.queries.UpsertServiceCategory(r.Context(), models.ServiceCategory{
		Name:              req.Name,
		Slug:              req.Slug,
		TracksCollections: req.TracksCollections,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("action", "upsert_category_failed").
			Str("name", req.Name).Msg("Failed to upsert service category")
		writeError(w, http.StatusInternalServerError, "failed to upsert service category")
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

type createContractRequest struct {
	PropertyID     string                    `json:"property_id"`
	CategoryID     int32                     `json:"category_id"`
	Rule           models.RecurrenceRule     `json:"rule"`
	ManualTask     models.ManualTaskSchedule `json:"manual_task"`
	MonitoredTypes []models.CollectionType   `json:"monitored_types"`
	StartDate      time.Time                 `json:"start_date"`
}

// CreateContract handles POST /api/contracts. The recurrence rule is
// validated here so a contract with a bad interval never reaches the
// expansion engine.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "property_id is required")
		return
	}
	if req.StartDate.IsZero() {
		writeError(w, http.StatusBadRequest, "start_date is required")
		return
	}
	if err := req.Rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.queries.GetProperty(r.Context(), req.PropertyID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "property not found")
			return
		}
		h.logger.Error().Err(err).Str("action", "create_contract_failed").Msg("Failed to load property")
		writeError(w, http.StatusInternalServerError, "failed to create contract")
		return
	}
	if _, err := h.queries.GetServiceCategory(r.Context(), req.CategoryID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "service category not found")
			return
		}
		h.logger.Error().Err(err).Str("action", "create_contract_failed").Msg("Failed to load service category")
		writeError(w, http.StatusInternalServerError, "failed to create contract")
		return
	}

	contract, err := h.queries.CreateContract(r.Context(), models.Contract{
		PropertyID:     req.PropertyID,
		CategoryID:     req.CategoryID,
		Rule:           req.Rule,
		ManualTask:     req.ManualTask,
		MonitoredTypes: req.MonitoredTypes,
		StartDate:      req.StartDate,
		Active:         true,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("action", "create_contract_failed").
			Str("property_id", req.PropertyID).Msg("Failed to create contract")
		writeError(w, http.StatusInternalServerError, "failed to create contract")
		return
	}

	h.logger.Info().
		Str("action", "contract_created").
		Str("contract_id", contract.ID).
		Str("property_id", contract.PropertyID).
		Str("frequency", string(contract.Rule.Frequency)).
		Msg("Contract created")
	writeJSON(w, http.StatusCreated, contract)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.Response{Success: false, Message: message})
}
