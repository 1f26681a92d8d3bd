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

// TaskHandler handles calendar task requests
type TaskHandler struct {
	taskRepo     database.TaskRepositoryInterface
	statsService *stats.Service
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskRepo database.TaskRepositoryInterface, statsService *stats.Service) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo, statsService: statsService}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix (e.g., from apiRouter.PathPrefix("/tasks"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
}

const (
	// MaxTaskTitleLength is the maximum length for task titles
	MaxTaskTitleLength = 500
)

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title     string    `json:"title" validate:"required,min=1,max=500"`
	Type      string    `json:"type" validate:"required,task_type"`
	StartTime time.Time `json:"start_time" validate:"required"`
}

// UpdateTaskRequest represents an update task request
type UpdateTaskRequest struct {
	Title     *string    `json:"title,omitempty"`
	Type      *string    `json:"type,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
}

// ListTasks lists tasks for the authenticated user, optionally bounded to a
// time window
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()

	var from, to *time.Time
	if f := r.URL.Query().Get("from"); f != "" {
		parsed, err := time.Parse(time.RFC3339, f)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid 'from' timestamp, expected RFC3339")
			return
		}
		from = &parsed
	}
	if t := r.URL.Query().Get("to"); t != "" {
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid 'to' timestamp, expected RFC3339")
			return
		}
		to = &parsed
	}

	var completed *bool
	if c := r.URL.Query().Get("completed"); c != "" {
		switch c {
		case "true":
			v := true
			completed = &v
		case "false":
			v := false
			completed = &v
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid 'completed' value, expected true or false")
			return
		}
	}

	tasks, err := h.taskRepo.GetByUserID(ctx, user.ID, from, to, completed)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	if tasks == nil {
		tasks = []*models.Task{}
	}

	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTaskRequest
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

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}
	if len(req.Title) > MaxTaskTitleLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTaskTitleLength))
		return
	}

	ctx := r.Context()
	task := &models.Task{
		ID:        uuid.New(),
		UserID:    user.ID,
		Title:     req.Title,
		Type:      models.TaskType(req.Type),
		StartTime: req.StartTime,
	}

	if err := h.taskRepo.Create(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	// Verify task belongs to user
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask updates an existing task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	// Verify task belongs to user
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return
	}

	var req UpdateTaskRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if req.Title != nil {
		sanitized := validation.SanitizeText(*req.Title)
		if sanitized == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		if len(sanitized) > MaxTaskTitleLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTaskTitleLength))
			return
		}
		task.Title = sanitized
	}
	if req.Type != nil {
		if err := validation.ValidateTaskType(*req.Type); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.Type = models.TaskType(*req.Type)
	}
	if req.StartTime != nil {
		task.StartTime = *req.StartTime
	}

	if err := h.taskRepo.Update(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	// Verify task belongs to user
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return
	}

	if err := h.taskRepo.Delete(ctx, id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask marks a task as completed and folds the completion into the
// day's stats. The task ID doubles as the activity event ID, so hitting the
// endpoint twice cannot double count.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	// Verify task belongs to user
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return
	}

	now := time.Now()
	if _, err := h.taskRepo.MarkCompleted(ctx, id, now); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete task")
		return
	}

	if !task.Completed || task.CompletedAt == nil {
		task.Completed = true
		task.CompletedAt = &now
	}

	// Recorded unconditionally: the events ledger dedupes by task ID, so a
	// replay cannot double count, and a retry after a failed recording still
	// lands the delta instead of dropping it.
	updated, err := h.statsService.RecordActivity(ctx, user.ID, task.ID, *task.CompletedAt, models.ActivityDelta{TasksCompleted: 1})
	if err != nil {
		if errors.Is(err, stats.ErrStorageUnavailable) {
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Storage is temporarily unavailable, please retry")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record task completion")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"task":  task,
		"stats": updated,
	})
}
