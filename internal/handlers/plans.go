package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/boostday/boostday/internal/database"
	"github.com/boostday/boostday/internal/middleware"
	"github.com/boostday/boostday/internal/models"
	"github.com/boostday/boostday/internal/queue"
	"github.com/boostday/boostday/internal/validation"
)

const (
	// MaxGoalLength is the maximum length for plan goals
	MaxGoalLength = 1000
)

// PlanHandler handles AI plan requests
type PlanHandler struct {
	planRepo database.PlanRepositoryInterface
	jobQueue queue.JobQueue
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(planRepo database.PlanRepositoryInterface, jobQueue queue.JobQueue) *PlanHandler {
	return &PlanHandler{planRepo: planRepo, jobQueue: jobQueue}
}

// RegisterRoutes registers plan routes on the given router
func (h *PlanHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListPlans).Methods("GET")
	r.HandleFunc("", h.CreatePlan).Methods("POST")
	r.HandleFunc("/{id}", h.GetPlan).Methods("GET")
	r.HandleFunc("/{id}", h.DeletePlan).Methods("DELETE")
}

// CreatePlanRequest represents a create plan request
type CreatePlanRequest struct {
	Goal     string `json:"goal" validate:"required,min=1,max=1000"`
	PlanType string `json:"plan_type" validate:"required,plan_type"`
	Timeline string `json:"timeline" validate:"required,max=100"`
	Details  string `json:"details" validate:"max=2000"`
	Deadline string `json:"deadline" validate:"max=100"`
}

// ListPlans lists the user's plans, newest first
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	plans, err := h.planRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve plans")
		return
	}

	if plans == nil {
		plans = []*models.Plan{}
	}

	respondJSON(w, http.StatusOK, plans)
}

// CreatePlan stores a pending plan and enqueues its generation job. The plan
// comes back in pending status; clients poll GetPlan until it flips to ready
// or failed.
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreatePlanRequest
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

	req.Goal = validation.SanitizeText(req.Goal)
	if req.Goal == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Goal is required and cannot be empty after sanitization")
		return
	}
	if len(req.Goal) > MaxGoalLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Goal exceeds maximum length of %d characters", MaxGoalLength))
		return
	}

	ctx := r.Context()
	plan := &models.Plan{
		ID:       uuid.New(),
		UserID:   user.ID,
		Goal:     req.Goal,
		PlanType: req.PlanType,
		Timeline: validation.SanitizeText(req.Timeline),
		Details:  validation.SanitizeText(req.Details),
		Deadline: validation.SanitizeText(req.Deadline),
		Status:   models.PlanStatusPending,
	}

	if err := h.planRepo.Create(ctx, plan); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create plan")
		return
	}

	job := queue.NewJob(queue.JobTypePlanGeneration, user.ID, &plan.ID)
	if err := h.jobQueue.Enqueue(ctx, job); err != nil {
		// The plan row exists but no worker will pick it up; mark it failed
		// so clients don't poll a pending plan forever.
		if stErr := h.planRepo.SetStatus(ctx, plan.ID, models.PlanStatusFailed); stErr != nil {
			log.Printf("Failed to mark plan %s failed after enqueue error: %v", plan.ID, stErr)
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to queue plan generation")
		return
	}

	respondJSON(w, http.StatusAccepted, plan)
}

// GetPlan retrieves a plan by ID
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid plan ID")
		return
	}

	ctx := r.Context()
	plan, err := h.planRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Plan not found")
		return
	}

	// Verify plan belongs to user
	if plan.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Plan does not belong to user")
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

// DeletePlan deletes a plan
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid plan ID")
		return
	}

	ctx := r.Context()
	plan, err := h.planRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Plan not found")
		return
	}

	// Verify plan belongs to user
	if plan.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Plan does not belong to user")
		return
	}

	if err := h.planRepo.Delete(ctx, id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete plan")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
