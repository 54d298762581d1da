package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/carworth/carworth/internal/domain"
	"github.com/carworth/carworth/internal/engine"
)

// Handlers holds the endpoint implementations over the engine facade.
type Handlers struct {
	engine *engine.Engine
}

// NewHandlers creates the handler set.
func NewHandlers(eng *engine.Engine) *Handlers {
	return &Handlers{engine: eng}
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ValuationRequest is the POST /valuations body.
type ValuationRequest struct {
	Vehicle domain.VehicleDescriptor `json:"vehicle"`
	Usage   domain.VehicleUsage      `json:"usage"`
	Finance *domain.FinanceData      `json:"finance,omitempty"`
}

// TrackingRequest is the POST /tracking body.
type TrackingRequest struct {
	UserID    string                   `json:"user_id"`
	VehicleID string                   `json:"vehicle_id"`
	Vehicle   domain.VehicleDescriptor `json:"vehicle"`
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// Valuate runs the full valuation pipeline for the posted vehicle.
func (h *Handlers) Valuate(w http.ResponseWriter, r *http.Request) {
	var req ValuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := h.engine.Valuate(r.Context(), req.Vehicle, req.Usage, req.Finance)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// InitTracking starts refresh tracking for a vehicle.
func (h *Handlers) InitTracking(w http.ResponseWriter, r *http.Request) {
	var req TrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.UserID == "" || req.VehicleID == "" {
		h.writeError(w, r, http.StatusBadRequest, "user_id and vehicle_id are required")
		return
	}

	rec, err := h.engine.InitTracking(r.Context(), req.UserID, req.VehicleID, req.Vehicle)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

// RemoveTracking stops tracking the vehicle in the path.
func (h *Handlers) RemoveTracking(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicleID"]
	if err := h.engine.RemoveTracking(r.Context(), vehicleID); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshEligibility reports manual refresh availability for a tracked
// vehicle.
func (h *Handlers) RefreshEligibility(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicleID"]
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeError(w, r, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	elig, err := h.engine.CheckRefreshEligibility(r.Context(), userID, vehicleID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, elig)
}

// ManualRefresh runs a user-initiated refresh, respecting the plan window.
func (h *Handlers) ManualRefresh(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicleID"]
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeError(w, r, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	value, err := h.engine.ManualRefresh(r.Context(), userID, vehicleID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"value": value})
}

// ActiveAlerts lists unexpired market-shift alerts matching the query
// vehicle.
func (h *Handlers) ActiveAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "year query parameter is required")
		return
	}
	desc := domain.VehicleDescriptor{
		Make:  q.Get("make"),
		Model: q.Get("model"),
		Year:  year,
	}

	alerts, err := h.engine.Detector().ActiveAlerts(r.Context(), desc)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// TriggerAlertRefresh refreshes tracked vehicles in an alert's scope.
func (h *Handlers) TriggerAlertRefresh(w http.ResponseWriter, r *http.Request) {
	alertID := mux.Vars(r)["alertID"]
	refreshed, err := h.engine.Detector().TriggerRefresh(r.Context(), alertID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"refreshed": refreshed})
}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "the requested endpoint does not exist")
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		RequestID: requestID(r),
		Timestamp: time.Now().UTC(),
	})
}

// writeEngineError maps domain errors onto HTTP statuses.
func (h *Handlers) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotTracked):
		h.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable), errors.Is(err, domain.ErrAllKeysExhausted):
		h.writeError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		h.writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}
