package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/blaisecz/sleepsense/internal/api/validation"
	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/blaisecz/sleepsense/internal/service"
	"github.com/blaisecz/sleepsense/pkg/problem"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SessionHandler struct {
	manual       service.ManualSessionService
	consolidator service.Consolidator
}

func NewSessionHandler(manual service.ManualSessionService, consolidator service.Consolidator) *SessionHandler {
	return &SessionHandler{
		manual:       manual,
		consolidator: consolidator,
	}
}

// Create handles POST /v1/users/{userId}/sessions
// @Summary Record a manual sleep session
// @Description Add a manual session. If a manual session already exists on the same local day, a pending overwrite decision is returned (202) which must be confirmed or cancelled. Use client_request_id for safe retries.
// @Tags sessions
// @Accept json
// @Produce json
// @Param userId path string true "User UUID" format(uuid)
// @Param request body domain.CreateSessionRequest true "Session data"
// @Success 201 {object} domain.SessionResponse "New session created"
// @Success 200 {object} domain.SessionResponse "Existing session returned (idempotent duplicate)"
// @Success 202 {object} domain.PendingOverwriteDecision "Overwrite decision pending"
// @Failure 400 {object} problem.Problem "Invalid request body"
// @Failure 404 {object} problem.Problem "User not found"
// @Failure 422 {object} problem.Problem "Validation failed (e.g. inverted time range)"
// @Failure 500 {object} problem.Problem "Server error"
// @Router /users/{userId}/sessions [post]
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		problem.BadRequest("Invalid user ID format").Write(w)
		return
	}

	var req domain.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.BadRequest("Invalid JSON body").Write(w)
		return
	}

	if fieldErrors := validation.Validate(req); fieldErrors != nil {
		problem.ValidationError("Request body contains invalid fields", fieldErrors).Write(w)
		return
	}

	result, err := h.manual.Add(r.Context(), userID, &req)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case result.Decision != nil:
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(result.Decision)
	case result.Existing:
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(result.Session.ToResponse())
	default:
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(result.Session.ToResponse())
	}
}

// ConfirmOverwrite handles POST /v1/users/{userId}/sessions/decisions/{decisionId}/confirm
// @Summary Confirm a pending overwrite
// @Description Replace the existing manual session of that day with the proposed one.
// @Tags sessions
// @Produce json
// @Param userId path string true "User UUID" format(uuid)
// @Param decisionId path string true "Decision UUID" format(uuid)
// @Success 201 {object} domain.SessionResponse "Replacement session created"
// @Failure 400 {object} problem.Problem "Invalid path parameters"
// @Failure 404 {object} problem.Problem "Decision not found or expired"
// @Failure 500 {object} problem.Problem "Server error"
// @Router /users/{userId}/sessions/decisions/{decisionId}/confirm [post]
func (h *SessionHandler) ConfirmOverwrite(w http.ResponseWriter, r *http.Request) {
	userID, decisionID, ok := parseUserAndID(w, r, "decisionId")
	if !ok {
		return
	}

	session, err := h.manual.ConfirmOverwrite(r.Context(), userID, decisionID)
	if err != nil {
		if errors.Is(err, domain.ErrDecisionNotFound) {
			problem.NotFound("Overwrite decision not found or expired").Write(w)
			return
		}
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session.ToResponse())
}

// CancelOverwrite handles POST /v1/users/{userId}/sessions/decisions/{decisionId}/cancel
// @Summary Cancel a pending overwrite
// @Description Discard the proposed session; the existing one stays untouched.
// @Tags sessions
// @Param userId path string true "User UUID" format(uuid)
// @Param decisionId path string true "Decision UUID" format(uuid)
// @Success 204 "Decision cancelled"
// @Failure 400 {object} problem.Problem "Invalid path parameters"
// @Failure 404 {object} problem.Problem "Decision not found or expired"
// @Router /users/{userId}/sessions/decisions/{decisionId}/cancel [post]
func (h *SessionHandler) CancelOverwrite(w http.ResponseWriter, r *http.Request) {
	userID, decisionID, ok := parseUserAndID(w, r, "decisionId")
	if !ok {
		return
	}

	if err := h.manual.CancelOverwrite(r.Context(), userID, decisionID); err != nil {
		if errors.Is(err, domain.ErrDecisionNotFound) {
			problem.NotFound("Overwrite decision not found or expired").Write(w)
			return
		}
		problem.InternalError("Failed to cancel overwrite").Write(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetByID handles GET /v1/users/{userId}/sessions/{sessionId}
// @Summary Get a manual session
// @Tags sessions
// @Produce json
// @Param userId path string true "User UUID" format(uuid)
// @Param sessionId path string true "Session UUID" format(uuid)
// @Success 200 {object} domain.SessionResponse "Session"
// @Failure 400 {object} problem.Problem "Invalid path parameters"
// @Failure 404 {object} problem.Problem "Session not found"
// @Failure 500 {object} problem.Problem "Server error"
// @Router /users/{userId}/sessions/{sessionId} [get]
func (h *SessionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := parseUserAndID(w, r, "sessionId")
	if !ok {
		return
	}

	session, err := h.manual.GetByID(r.Context(), userID, sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.ToResponse())
}

// Update handles PATCH /v1/users/{userId}/sessions/{sessionId}
// @Summary Update a manual session
// @Tags sessions
// @Accept json
// @Produce json
// @Param userId path string true "User UUID" format(uuid)
// @Param sessionId path string true "Session UUID" format(uuid)
// @Param request body domain.UpdateSessionRequest true "Fields to update"
// @Success 200 {object} domain.SessionResponse "Updated session"
// @Failure 400 {object} problem.Problem "Invalid request"
// @Failure 404 {object} problem.Problem "Session not found"
// @Failure 422 {object} problem.Problem "Validation failed"
// @Failure 500 {object} problem.Problem "Server error"
// @Router /users/{userId}/sessions/{sessionId} [patch]
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := parseUserAndID(w, r, "sessionId")
	if !ok {
		return
	}

	var req domain.UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.BadRequest("Invalid JSON body").Write(w)
		return
	}

	if fieldErrors := validation.Validate(req); fieldErrors != nil {
		problem.ValidationError("Request body contains invalid fields", fieldErrors).Write(w)
		return
	}

	session, err := h.manual.Update(r.Context(), userID, sessionID, &req)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.ToResponse())
}

// Delete handles DELETE /v1/users/{userId}/sessions/{sessionId}
// @Summary Delete a manual session
// @Tags sessions
// @Param userId path string true "User UUID" format(uuid)
// @Param sessionId path string true "Session UUID" format(uuid)
// @Success 204 "Session deleted"
// @Failure 400 {object} problem.Problem "Invalid path parameters"
// @Failure 404 {object} problem.Problem "Session not found"
// @Failure 500 {object} problem.Problem "Server error"
// @Router /users/{userId}/sessions/{sessionId} [delete]
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := parseUserAndID(w, r, "sessionId")
	if !ok {
		return
	}

	if err := h.manual.Delete(r.Context(), userID, sessionID); err != nil {
		writeSessionError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /v1/users/{userId}/sessions
// @Summary List merged sleep sessions
// @Description Fetch the merged, deduplicated history across all sources (platform + manual), sorted by start time descending.
// @Tags sessions
// @Produce json
// @Param userId path string true "User UUID" format(uuid)
// @Param from query string false "Start of range (RFC3339)" format(date-time)
// @Param to query string false "End of range (RFC3339)" format(date-time)
// @Param limit query integer false "Results per page (1-100)" default(20)
// @Param cursor query string false "Cursor from previous response's next_cursor"
// @Success 200 {object} domain.SessionListResponse "Merged sessions"
// @Failure 400 {object} problem.Problem "Invalid query parameters"
// @Failure 500 {object} problem.Problem "Server error"
// @Router /users/{userId}/sessions [get]
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		problem.BadRequest("Invalid user ID format").Write(w)
		return
	}

	filter, fieldErrors := parseListFilter(r)
	if fieldErrors != nil {
		problem.ValidationError("Invalid query parameters", fieldErrors).Write(w)
		return
	}

	response, err := h.consolidator.List(r.Context(), userID, filter)
	if err != nil {
		problem.InternalError("Failed to list sessions").Write(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListConsolidated handles GET /v1/users/{userId}/sessions/consolidated
// @Summary List consolidated nights
// @Description One entry per local calendar day, with same-day fragments merged. full_day=true sums non-adjacent fragments too.
// @Tags sessions
// @Produce json
// @Param userId path string true "User UUID" format(uuid)
// @Param from query string true "Start of range (RFC3339)" format(date-time)
// @Param to query string true "End of range (RFC3339)" format(date-time)
// @Param full_day query boolean false "Force full-day consolidation" default(false)
// @Success 200 {array} domain.ConsolidatedNight "Consolidated nights"
// @Failure 400 {object} problem.Problem "Invalid query parameters"
// @Failure 500 {object} problem.Problem "Server error"
// @Router /users/{userId}/sessions/consolidated [get]
func (h *SessionHandler) ListConsolidated(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		problem.BadRequest("Invalid user ID format").Write(w)
		return
	}

	from, to, fieldErrors := parseRequiredRange(r)
	if fieldErrors != nil {
		problem.ValidationError("Invalid query parameters", fieldErrors).Write(w)
		return
	}

	fullDay := r.URL.Query().Get("full_day") == "true"

	nights, err := h.consolidator.ConsolidateRange(r.Context(), userID, from, to, fullDay)
	if err != nil {
		problem.InternalError("Failed to consolidate sessions").Write(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(nights)
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		problem.NotFound("Resource not found").Write(w)
	case errors.Is(err, domain.ErrInvalidTimeRange):
		problem.ValidationError("Invalid time range", []problem.FieldError{
			{Field: "end_at", Message: "must be after start_at"},
		}).Write(w)
	default:
		problem.InternalError("Request failed").Write(w)
	}
}

func parseUserAndID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, uuid.UUID, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		problem.BadRequest("Invalid user ID format").Write(w)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		problem.BadRequest("Invalid " + param + " format").Write(w)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func parseListFilter(r *http.Request) (domain.SessionFilter, []problem.FieldError) {
	var filter domain.SessionFilter
	var fieldErrors []problem.FieldError

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			fieldErrors = append(fieldErrors, problem.FieldError{
				Field:   "from",
				Message: "must be a valid RFC3339 timestamp",
			})
		} else {
			filter.From = &from
		}
	}

	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			fieldErrors = append(fieldErrors, problem.FieldError{
				Field:   "to",
				Message: "must be a valid RFC3339 timestamp",
			})
		} else {
			filter.To = &to
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			fieldErrors = append(fieldErrors, problem.FieldError{
				Field:   "limit",
				Message: "must be a positive integer",
			})
		} else {
			filter.Limit = limit
		}
	}

	filter.Cursor = r.URL.Query().Get("cursor")

	if len(fieldErrors) > 0 {
		return filter, fieldErrors
	}
	return filter, nil
}

func parseRequiredRange(r *http.Request) (time.Time, time.Time, []problem.FieldError) {
	var fieldErrors []problem.FieldError

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		fieldErrors = append(fieldErrors, problem.FieldError{
			Field:   "from",
			Message: "must be a valid RFC3339 timestamp",
		})
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		fieldErrors = append(fieldErrors, problem.FieldError{
			Field:   "to",
			Message: "must be a valid RFC3339 timestamp",
		})
	}

	if len(fieldErrors) > 0 {
		return time.Time{}, time.Time{}, fieldErrors
	}
	return from, to, nil
}
