package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/boostday/boostday/internal/middleware"
	"github.com/boostday/boostday/internal/models"
	"github.com/boostday/boostday/internal/services/stats"
	"github.com/boostday/boostday/internal/validation"
)

const (
	// DefaultHistoryDays is the history window returned when no limit is given
	DefaultHistoryDays = 30
	// MaxHistoryDays caps the history window a single request can ask for
	MaxHistoryDays = 365
)

// StatsHandler serves the productivity metrics endpoints
type StatsHandler struct {
	statsService *stats.Service
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *stats.Service) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// RegisterRoutes registers stats routes on the given router
func (h *StatsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/today", h.Today).Methods("GET")
	r.HandleFunc("/history", h.History).Methods("GET")
	r.HandleFunc("/summary", h.Summary).Methods("GET")
	r.HandleFunc("/patterns", h.Patterns).Methods("GET")
	r.HandleFunc("/achievements", h.Achievements).Methods("GET")
	r.HandleFunc("/activity", h.RecordActivity).Methods("POST")
}

// RecordActivityRequest represents a raw activity event. The client supplies
// the event ID so that a retried request lands on the same row instead of
// double counting.
type RecordActivityRequest struct {
	EventID          uuid.UUID `json:"event_id" validate:"required"`
	Date             time.Time `json:"date" validate:"required"`
	FocusMinutes     int       `json:"focus_minutes" validate:"min=0"`
	PomodoroSessions int       `json:"pomodoro_sessions" validate:"min=0"`
	TasksCompleted   int       `json:"tasks_completed" validate:"min=0"`
}

// Today returns the user's stats row for the current day
func (h *StatsHandler) Today(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	row, err := h.statsService.Today(ctx, user.ID, time.Now())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve today's stats")
		return
	}

	respondJSON(w, http.StatusOK, row)
}

// History returns recent daily rows, newest first
func (h *StatsHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	limit := DefaultHistoryDays
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid 'limit' value, expected a positive integer")
			return
		}
		if parsed > MaxHistoryDays {
			parsed = MaxHistoryDays
		}
		limit = parsed
	}

	upTo := time.Now()
	if u := r.URL.Query().Get("up_to"); u != "" {
		parsed, err := time.Parse("2006-01-02", u)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid 'up_to' date, expected YYYY-MM-DD")
			return
		}
		upTo = parsed
	}

	ctx := r.Context()
	history, err := h.statsService.History(ctx, user.ID, upTo, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve stats history")
		return
	}

	if history == nil {
		history = []*models.DailyStats{}
	}

	respondJSON(w, http.StatusOK, history)
}

// Summary returns the all-time rollup: totals, points, level, achievements
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	summary, err := h.statsService.Summarize(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build stats summary")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Patterns returns the derived weekly focus pattern and monthly progress
func (h *StatsHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	report, err := h.statsService.Patterns(ctx, user.ID, time.Now())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build activity patterns")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Achievements returns the evaluated achievement list
func (h *StatsHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	achievements, err := h.statsService.Achievements(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to evaluate achievements")
		return
	}

	respondJSON(w, http.StatusOK, achievements)
}

// RecordActivity applies a client-supplied activity event to the user's daily
// stats and returns the updated row
func (h *StatsHandler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req RecordActivityRequest
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
	delta := models.ActivityDelta{
		FocusMinutes:     req.FocusMinutes,
		PomodoroSessions: req.PomodoroSessions,
		TasksCompleted:   req.TasksCompleted,
	}

	row, err := h.statsService.RecordActivity(ctx, user.ID, req.EventID, req.Date, delta)
	if err != nil {
		switch {
		case errors.Is(err, stats.ErrInvalidInput):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		case errors.Is(err, stats.ErrStorageUnavailable):
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Storage is temporarily unavailable, please retry")
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record activity")
		}
		return
	}

	respondJSON(w, http.StatusOK, row)
}
