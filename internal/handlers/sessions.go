package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/boostday/boostday/internal/database"
	"github.com/boostday/boostday/internal/middleware"
	"github.com/boostday/boostday/internal/models"
	"github.com/boostday/boostday/internal/services/stats"
	"github.com/boostday/boostday/internal/validation"
)

// SessionHandler handles pomodoro session requests
type SessionHandler struct {
	sessionRepo  database.SessionRepositoryInterface
	statsService *stats.Service
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionRepo database.SessionRepositoryInterface, statsService *stats.Service) *SessionHandler {
	return &SessionHandler{sessionRepo: sessionRepo, statsService: statsService}
}

// RegisterRoutes registers session routes on the given router
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListSessions).Methods("GET")
	r.HandleFunc("", h.StartSession).Methods("POST")
	r.HandleFunc("/{id}/complete", h.CompleteSession).Methods("POST")
}

// StartSessionRequest represents a start session request
type StartSessionRequest struct {
	TaskName string `json:"task_name" validate:"max=500"`
	Mode     string `json:"mode" validate:"required,session_mode"`
	Duration int    `json:"duration" validate:"required,min=60,max=14400"`
}

// ListSessions lists the user's sessions. The window defaults to the current
// day, which is also all the history that survives the nightly cleanup.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.Add(24 * time.Hour)
	if f := r.URL.Query().Get("from"); f != "" {
		parsed, err := time.Parse(time.RFC3339, f)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid 'from' timestamp, expected RFC3339")
			return
		}
		from = parsed
	}
	if t := r.URL.Query().Get("to"); t != "" {
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid 'to' timestamp, expected RFC3339")
			return
		}
		to = parsed
	}

	sessions, err := h.sessionRepo.GetByUserID(ctx, user.ID, from, to)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve sessions")
		return
	}

	if sessions == nil {
		sessions = []*models.PomodoroSession{}
	}

	respondJSON(w, http.StatusOK, sessions)
}

// StartSession records the start of a new timer run
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req StartSessionRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	// Validate request
	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	ctx := r.Context()
	session := &models.PomodoroSession{
		ID:        uuid.New(),
		UserID:    user.ID,
		TaskName:  validation.SanitizeText(req.TaskName),
		Mode:      models.SessionMode(req.Mode),
		Duration:  req.Duration,
		StartedAt: time.Now(),
	}

	if err := h.sessionRepo.Create(ctx, session); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// CompleteSession marks a session as completed. For work sessions the run is
// folded into the day's stats; the session ID serves as the activity event ID
// so a retried call cannot double count. Break sessions are closed without a
// stats delta.
func (h *SessionHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid session ID")
		return
	}

	ctx := r.Context()
	session, err := h.sessionRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Session not found")
		return
	}

	// Verify session belongs to user
	if session.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Session does not belong to user")
		return
	}

	now := time.Now()
	if _, err := h.sessionRepo.MarkCompleted(ctx, id, now); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete session")
		return
	}

	session.Completed = true
	if session.CompletedAt == nil {
		session.CompletedAt = &now
	}

	// Break sessions close without touching stats. Work sessions record
	// unconditionally: the events ledger dedupes by session ID, so a replay
	// cannot double count, and a retry after a failed recording still lands
	// the delta instead of dropping it.
	if session.Mode != models.SessionModeWork {
		respondJSON(w, http.StatusOK, map[string]any{
			"session": session,
		})
		return
	}

	updated, err := h.statsService.RecordActivity(ctx, user.ID, session.ID, *session.CompletedAt, models.ActivityDelta{
		PomodoroSessions: 1,
		FocusMinutes:     session.FocusMinutes(),
	})
	if err != nil {
		if errors.Is(err, stats.ErrStorageUnavailable) {
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Storage is temporarily unavailable, please retry")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record session completion")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"stats":   updated,
	})
}
