/*
handlers.go - HTTP API handlers for the oil budget engine

PURPOSE:
  Exposes the budget and scoring engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Profiles:
    PUT    /api/users/{id}/profile        Create or replace physiology inputs
    GET    /api/users/{id}/profile        Fetch physiology inputs

  Scores:
    PUT    /api/users/{id}/scores/{day}   Upsert one day's external scores

  Consumption:
    POST   /api/users/{id}/consumptions   Log an oil event
    GET    /api/users/{id}/consumptions   List events for a day (?day=)
    PUT    /api/consumptions/{id}         Amend an event
    DELETE /api/consumptions/{id}         Remove an event (?user_id=)

  Budget / status:
    GET    /api/users/{id}/status         Budget + remaining for a day (?day=)
    GET    /api/users/{id}/goal           The day's budget record (?day=)

  Reference:
    GET    /api/oils                      Known oil types and harm scores

  Admin:
    POST   /api/admin/audit               Recheck and repair counters

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, missing profile, invalid input
  - 404: Event or budget not found (including not-owned events)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.
  The user id in the path is trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/swasthyam/oil-engine/engine"
)

const timeFormat = time.RFC3339

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *engine.Engine

	// AuditLookbackDays bounds how far back the admin audit walks when the
	// request doesn't say. Zero falls back to the rolling window length.
	AuditLookbackDays int
}

// NewHandler creates a new handler around the engine.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{Engine: eng}
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// SaveProfile handles PUT /api/users/{id}/profile
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	var req SaveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p := engine.UserProfile{
		UserID:         userID,
		BMR:            req.BMR,
		ActivityFactor: req.ActivityFactor,
	}
	if err := h.Engine.SaveProfile(r.Context(), p); err != nil {
		writeDomainError(w, "Failed to save profile", err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileDTO{
		UserID:         string(p.UserID),
		BMR:            p.BMR,
		ActivityFactor: p.ActivityFactor,
	})
}

// GetProfile handles GET /api/users/{id}/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	p, err := h.Engine.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, engine.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileDTO{
		UserID:         string(p.UserID),
		BMR:            p.BMR,
		ActivityFactor: p.ActivityFactor,
	})
}

// =============================================================================
// SCORE HANDLERS
// =============================================================================

// UpsertScore handles PUT /api/users/{id}/scores/{day}
func (h *Handler) UpsertScore(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	day, err := engine.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid day (use YYYY-MM-DD)", err)
		return
	}

	var req UpsertScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	swastha, err := decimal.NewFromString(req.SwasthaScore)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid swastha_score", err)
		return
	}
	harm, err := decimal.NewFromString(req.HarmIndex)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid harm_index", err)
		return
	}

	rec := engine.ScoreRecord{
		UserID:         userID,
		Day:            day,
		SwasthaScore:   swastha,
		HarmIndex:      harm,
		MealsCount:     req.MealsCount,
		OilEventsCount: req.OilEventsCount,
	}
	if err := h.Engine.RecordScore(r.Context(), rec); err != nil {
		writeDomainError(w, "Failed to record score", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": string(userID),
		"day":     day.String(),
		"status":  "recorded",
	})
}

// =============================================================================
// CONSUMPTION HANDLERS
// =============================================================================

// LogConsumption handles POST /api/users/{id}/consumptions
func (h *Handler) LogConsumption(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	var req LogConsumptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	consumedAt := time.Now().UTC()
	if req.ConsumedAt != "" {
		t, err := time.Parse(timeFormat, req.ConsumedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid consumed_at (use RFC 3339)", err)
			return
		}
		consumedAt = t
	}

	res, err := h.Engine.LogConsumption(r.Context(), engine.LogRequest{
		UserID:     userID,
		OilTypeID:  engine.OilTypeID(req.OilType),
		Grams:      req.Grams,
		Quantity:   req.Quantity,
		MealType:   req.MealType,
		ConsumedAt: consumedAt,
		GroupID:    engine.GroupID(req.GroupID),
		LoggedBy:   engine.UserID(req.LoggedBy),
	})
	if err != nil {
		writeDomainError(w, "Failed to log consumption", err)
		return
	}

	writeJSON(w, http.StatusCreated, toLogResultDTO(res))
}

// ListConsumption handles GET /api/users/{id}/consumptions?day=YYYY-MM-DD
func (h *Handler) ListConsumption(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	day, ok := dayFromQuery(w, r)
	if !ok {
		return
	}

	events, err := h.Engine.ListConsumption(r.Context(), userID, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list consumption", err)
		return
	}

	dtos := make([]EventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, toEventDTO(ev))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpdateConsumption handles PUT /api/consumptions/{id}
func (h *Handler) UpdateConsumption(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	var req UpdateConsumptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	upd := engine.UpdateRequest{
		Grams:    req.Grams,
		Quantity: req.Quantity,
		MealType: req.MealType,
	}
	if req.OilType != nil {
		oil := engine.OilTypeID(*req.OilType)
		upd.OilTypeID = &oil
	}

	res, err := h.Engine.UpdateConsumption(r.Context(), eventID, engine.UserID(req.UserID), upd)
	if err != nil {
		writeDomainError(w, "Failed to update consumption", err)
		return
	}

	writeJSON(w, http.StatusOK, toLogResultDTO(res))
}

// DeleteConsumption handles DELETE /api/consumptions/{id}?user_id=
func (h *Handler) DeleteConsumption(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	userID := engine.UserID(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required", nil)
		return
	}

	res, err := h.Engine.DeleteConsumption(r.Context(), eventID, userID)
	if err != nil {
		writeDomainError(w, "Failed to delete consumption", err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResultDTO(res))
}

// =============================================================================
// BUDGET / STATUS HANDLERS
// =============================================================================

// GetStatus handles GET /api/users/{id}/status?day=YYYY-MM-DD
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	day, ok := dayFromQuery(w, r)
	if !ok {
		return
	}

	res, err := h.Engine.GetStatus(r.Context(), userID, day)
	if err != nil {
		writeDomainError(w, "Failed to get status", err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResultDTO(res))
}

// GetGoal handles GET /api/users/{id}/goal?day=YYYY-MM-DD
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	day, ok := dayFromQuery(w, r)
	if !ok {
		return
	}

	rec, err := h.Engine.ComputeGoal(r.Context(), userID, day)
	if err != nil {
		writeDomainError(w, "Failed to compute goal", err)
		return
	}

	writeJSON(w, http.StatusOK, toBudgetDTO(*rec))
}

// =============================================================================
// REFERENCE / ADMIN HANDLERS
// =============================================================================

// ListOils handles GET /api/oils
func (h *Handler) ListOils(w http.ResponseWriter, r *http.Request) {
	harm := h.Engine.HarmTable()
	oils := harm.Oils()

	dtos := make([]OilDTO, 0, len(oils))
	for _, id := range oils {
		score, _ := harm.Lookup(id)
		dtos = append(dtos, OilDTO{ID: string(id), HarmScore: score})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// TriggerAudit handles POST /api/admin/audit
func (h *Handler) TriggerAudit(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	lookback := req.LookbackDays
	if lookback <= 0 {
		lookback = h.AuditLookbackDays
	}
	if lookback <= 0 {
		lookback = h.Engine.Config().RollingWindowDays
	}

	since := engine.Today().AddDays(-lookback)
	results, err := h.Engine.AuditBudgets(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Audit failed", err)
		return
	}

	dtos := make([]AuditResultDTO, 0, len(results))
	for _, res := range results {
		dtos = append(dtos, AuditResultDTO{
			UserID:       string(res.UserID),
			Day:          res.Day.String(),
			StoredKcal:   res.StoredKcal.String(),
			ActualKcal:   res.ActualKcal.String(),
			StoredEvents: res.StoredEvents,
			ActualEvents: res.ActualEvents,
			Repaired:     res.Repaired,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"since":    since.String(),
		"checked":  "ok",
		"repaired": dtos,
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// dayFromQuery reads the optional ?day= parameter, defaulting to today.
// Writes a 400 and returns ok=false on a malformed value.
func dayFromQuery(w http.ResponseWriter, r *http.Request) (engine.Day, bool) {
	raw := r.URL.Query().Get("day")
	if raw == "" {
		return engine.Today(), true
	}
	day, err := engine.ParseDay(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid day (use YYYY-MM-DD)", err)
		return engine.Day{}, false
	}
	return day, true
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		resp := ErrorResponse{Error: message, Details: ve.Error()}
		for _, v := range ve.Violations {
			resp.Fields = append(resp.Fields, FieldErrorDTO{Field: v.Field, Message: v.Message})
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	if engine.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Not found", err)
		return
	}
	if engine.IsClientError(err) {
		writeError(w, http.StatusBadRequest, message, err)
		return
	}
	writeError(w, http.StatusInternalServerError, message, err)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
