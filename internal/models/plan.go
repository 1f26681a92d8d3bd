package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanStatus tracks an AI-generated plan through the queue.
type PlanStatus string

const (
	PlanStatusPending PlanStatus = "pending"
	PlanStatusReady   PlanStatus = "ready"
	PlanStatusFailed  PlanStatus = "failed"
)

// Plan is an AI-generated study/work plan.
type Plan struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	Goal      string       `json:"goal"`
	PlanType  string       `json:"plan_type"`
	Timeline  string       `json:"timeline"`
	Details   string       `json:"details,omitempty"`
	Deadline  string       `json:"deadline,omitempty"`
	Status    PlanStatus   `json:"status"`
	Content   *PlanContent `json:"content,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PlanContent is the structured plan returned by the model.
type PlanContent struct {
	Title      string      `json:"title"`
	Duration   string      `json:"duration"`
	TotalHours float64     `json:"totalHours"`
	Phases     []PlanPhase `json:"phases"`
}

// PlanPhase is one stage of a plan.
type PlanPhase struct {
	Title    string     `json:"title"`
	Duration string     `json:"duration"`
	Tasks    []PlanTask `json:"tasks"`
}

// PlanTask is one actionable item within a phase.
type PlanTask struct {
	Task     string  `json:"task"`
	Hours    float64 `json:"hours"`
	Priority string  `json:"priority"` // high, medium, low
}
