package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/blaisecz/sleepsense/internal/service"
	"github.com/blaisecz/sleepsense/pkg/problem"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type AnalysisHandler struct {
	orchestrator service.AnalysisOrchestrator
	manual       service.ManualSessionService
	consolidator service.Consolidator
	naps         service.NapDetector
	users        service.UserService
}

func NewAnalysisHandler(
	orchestrator service.AnalysisOrchestrator,
	manual service.ManualSessionService,
	consolidator service.Consolidator,
	naps service.NapDetector,
	users service.UserService,
) *AnalysisHandler {
	return &AnalysisHandler{
		orchestrator: orchestrator,
		manual:       manual,
		consolidator: consolidator,
		naps:         naps,
		users:        users,
	}
}

// WeekAnalysisResponse bundles the trend aggregates with the advice built
// from them.
type WeekAnalysisResponse struct {
	Trend  *domain.WeeklyTrend `json:"trend"`
	Advice *domain.SleepAdvice `json:"advice"`
	State  string              `json:"analysis_state"`
}

// AnalyzeSession handles GET /v1/users/{userId}/sessions/{sessionId}/analysis
// @Summary Analyze a single session
// @Description Compute stage metrics and recommendations for one session. When remote enrichment is unavailable the advice is local-only and flagged degraded.
// @Tags analysis
// @Produce json
// @Param userId path string true "User UUID" format(uuid)
// @Param sessionId path string true "Session UUID" format(uuid)
// @Success 200 {object} domain.SleepAdvice "Advice for the session"
// @Failure 400 {object} problem.Problem "Invalid path parameters"
// @Failure 404 {object} problem.Problem "Session not found"
// @Failure 500 {object} problem.Problem "Server error"
// @Router /users/{userId}/sessions/{sessionId}/analysis [get]
func (h *AnalysisHandler) AnalyzeSession(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := parseUserAndID(w, r, "sessionId")
	if !ok {
		return
	}

	session, err := h.manual.GetByID(r.Context(), userID, sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	advice := h.orchestrator.AnalyzeSession(r.Context(), session)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(advice)
}

// AnalyzeWeek handles GET /v1/users/{userId}/analysis/week
// @Summary Analyze the trailing week
// @Description Consolidate the seven days ending at end (default: now), compute trend aggregates and generate weekly advice.
// @Tags analysis
// @Produce json
// @Param userId path string true "User UUID" format(uuid)
// @Param end query string false "End of the window (RFC3339, defaults to now)" format(date-time)
// @Success 200 {object} WeekAnalysisResponse "Weekly trend and advice"
// @Failure 400 {object} problem.Problem "Invalid parameters"
// @Failure 404 {object} problem.Problem "User not found"
// @Failure 500 {object} problem.Problem "Server error"
// @Router /users/{userId}/analysis/week [get]
func (h *AnalysisHandler) AnalyzeWeek(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		problem.BadRequest("Invalid user ID format").Write(w)
		return
	}

	end := time.Now()
	if endStr := r.URL.Query().Get("end"); endStr != "" {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			problem.ValidationError("Invalid query parameters", []problem.FieldError{
				{Field: "end", Message: "must be a valid RFC3339 timestamp"},
			}).Write(w)
			return
		}
	}

	advice, trend, err := h.orchestrator.AnalyzeWeek(r.Context(), userID, end)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(WeekAnalysisResponse{
		Trend:  trend,
		Advice: advice,
		State:  string(h.orchestrator.State()),
	})
}

// ListNaps handles GET /v1/users/{userId}/naps
// @Summary List detected naps
// @Description Classify short sessions outside the user's nocturnal window as naps and score their impact on night sleep.
// @Tags analysis
// @Produce json
// @Param userId path string true "User UUID" format(uuid)
// @Param from query string true "Start of range (RFC3339)" format(date-time)
// @Param to query string true "End of range (RFC3339)" format(date-time)
// @Success 200 {array} domain.Nap "Detected naps"
// @Failure 400 {object} problem.Problem "Invalid query parameters"
// @Failure 404 {object} problem.Problem "User not found"
// @Failure 500 {object} problem.Problem "Server error"
// @Router /users/{userId}/naps [get]
func (h *AnalysisHandler) ListNaps(w http.ResponseWriter, r *http.Request) {
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

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	sessions, err := h.consolidator.Sessions(r.Context(), userID, from, to)
	if err != nil {
		problem.InternalError("Failed to fetch sessions").Write(w)
		return
	}

	naps := h.naps.Detect(sessions, user)
	if naps == nil {
		naps = []domain.Nap{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(naps)
}
